// Package config handles loading TinyOPDS configuration from a YAML file
// with environment variable overrides.
//
// Configuration sources, in increasing priority order:
//  1. Built-in defaults
//  2. YAML config file (located by FindConfigFile or an explicit path)
//  3. Environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tinyopds/tinyopds/internal/catalogerrors"
)

// SortOrder selects how the culture-aware comparator breaks ties between
// Cyrillic and Latin codepoints.
type SortOrder string

const (
	SortLatinFirst    SortOrder = "latin-first"
	SortCyrillicFirst SortOrder = "cyrillic-first"
)

// UpdatesCheck selects how often the (external) update-check task should
// run. TinyOPDS's core never performs the check itself; the field only
// flows through configuration for the external collaborator.
type UpdatesCheck string

const (
	UpdatesNever   UpdatesCheck = "never"
	UpdatesWeekly  UpdatesCheck = "weekly"
	UpdatesMonthly UpdatesCheck = "monthly"
)

// newBooksPeriods is the fixed set of valid values for NewBooksPeriod.
var newBooksPeriods = []int{7, 14, 21, 30, 44, 60, 90}

// OPDSStructure is a compact bitmap enabling/disabling each navigation
// endpoint.
type OPDSStructure uint32

const (
	OPDSNewBooks OPDSStructure = 1 << iota
	OPDSAuthors
	OPDSSequences
	OPDSGenres
	OPDSDownloadHistory
)

// DefaultOPDSStructure enables every navigation endpoint.
const DefaultOPDSStructure = OPDSNewBooks | OPDSAuthors | OPDSSequences | OPDSGenres | OPDSDownloadHistory

// Config holds all application configuration.
type Config struct {
	LibraryPath string `yaml:"libraryPath"`
	ServerName  string `yaml:"serverName"`
	ServerPort  int    `yaml:"serverPort"`
	RootPrefix  string `yaml:"rootPrefix"`

	UseUPnP     bool `yaml:"useUPnP"`
	OpenNATPort bool `yaml:"openNATPort"`

	UseHTTPAuth        bool `yaml:"useHTTPAuth"`
	BanClients         bool `yaml:"banClients"`
	WrongAttemptsCount int  `yaml:"wrongAttemptsCount"`
	RememberClients    bool `yaml:"rememberClients"`

	// Credentials is the "user:pass;user2:pass2;..." table. main.go reads it
	// as plain text via credentials.ParsePlain; it is not stored or read in
	// encrypted form (internal/credentials has Encrypt/Decrypt, unused here).
	Credentials string `yaml:"credentials"`

	SortOrder SortOrder `yaml:"sortOrder"`

	// NewBooksPeriod is in days; must be one of newBooksPeriods.
	NewBooksPeriod int `yaml:"newBooksPeriod"`

	Language string `yaml:"language"`
	LogLevel string `yaml:"logLevel"`

	UpdatesCheck      UpdatesCheck  `yaml:"updatesCheck"`
	UseAuthorsAliases bool          `yaml:"useAuthorsAliases"`
	OPDSStructure     OPDSStructure `yaml:"opdsStructure"`

	// MaxConnections bounds the HTTP server's concurrent-connection pool.
	MaxConnections int `yaml:"maxConnections"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		ServerName:         "TinyOPDS",
		ServerPort:         8080,
		RootPrefix:         "",
		UseHTTPAuth:        false,
		BanClients:         true,
		WrongAttemptsCount: 5,
		RememberClients:    true,
		SortOrder:          SortLatinFirst,
		NewBooksPeriod:     30,
		Language:           "en",
		LogLevel:           "Info",
		UpdatesCheck:       UpdatesNever,
		UseAuthorsAliases:  true,
		OPDSStructure:      DefaultOPDSStructure,
		MaxConnections:     100,
	}
}

// Load reads configuration from the YAML file at path (if non-empty), then
// applies environment variable overrides on top, then validates. Invalid
// fields are reset to a safe default; an invalid serverPort or libraryPath
// also yields a ConfigError describing the first such reset, while an
// invalid newBooksPeriod is reset without an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, validate(&cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TINYOPDS_LIBRARY_PATH"); v != "" {
		cfg.LibraryPath = v
	}
	if v := os.Getenv("TINYOPDS_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if v := os.Getenv("TINYOPDS_SERVER_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.ServerPort)
	}
	if v := os.Getenv("TINYOPDS_ROOT_PREFIX"); v != "" {
		cfg.RootPrefix = strings.Trim(v, "/")
	}
	if v := os.Getenv("TINYOPDS_CREDENTIALS"); v != "" {
		cfg.Credentials = v
	}
	if v := os.Getenv("TINYOPDS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// validate resets invalid fields to a safe default and returns a
// catalogerrors.ConfigError describing the first serverPort or libraryPath
// problem found (if any); a newBooksPeriod reset is not reported.
// It deliberately keeps going after the first reset so a single Load call
// repairs every bad field in one pass.
func validate(cfg *Config) error {
	var first error

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		if first == nil {
			first = &catalogerrors.ConfigError{Field: "serverPort", Err: fmt.Errorf("out of range: %d", cfg.ServerPort)}
		}
		cfg.ServerPort = 8080
	}

	if cfg.LibraryPath != "" {
		if info, err := os.Stat(cfg.LibraryPath); err != nil || !info.IsDir() {
			if first == nil {
				first = &catalogerrors.ConfigError{Field: "libraryPath", Err: fmt.Errorf("not a directory: %q", cfg.LibraryPath)}
			}
			cfg.LibraryPath = ""
		}
	}

	if !validNewBooksPeriod(cfg.NewBooksPeriod) {
		cfg.NewBooksPeriod = 30
	}

	cfg.RootPrefix = strings.Trim(cfg.RootPrefix, "/")

	return first
}

func validNewBooksPeriod(n int) bool {
	for _, p := range newBooksPeriods {
		if p == n {
			return true
		}
	}
	return false
}

// FindConfigFile returns the path to the first config file found in the
// standard search order, or "" if none is found.
//
// Search order:
//  1. TINYOPDS_CONFIG environment variable (explicit override)
//  2. ./tinyopds.yaml (current working directory)
//  3. ~/.config/tinyopds/config.yaml (XDG user config)
func FindConfigFile() string {
	if p := os.Getenv("TINYOPDS_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("tinyopds.yaml"); err == nil {
		return "tinyopds.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "tinyopds", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DBPath returns the path of the SQLite database file for the given library
// path and service-files directory: a name-based UUID(libraryPath) filename.
func DBPath(serviceDir, libraryPath string) string {
	return filepath.Join(serviceDir, libraryUUID(libraryPath)+".db")
}
