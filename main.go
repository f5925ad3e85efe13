package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tinyopds/tinyopds/internal/alias"
	"github.com/tinyopds/tinyopds/internal/config"
	"github.com/tinyopds/tinyopds/internal/credentials"
	"github.com/tinyopds/tinyopds/internal/downloads"
	"github.com/tinyopds/tinyopds/internal/httpserver"
	"github.com/tinyopds/tinyopds/internal/logging"
	"github.com/tinyopds/tinyopds/internal/opds"
	"github.com/tinyopds/tinyopds/internal/scanner"
	"github.com/tinyopds/tinyopds/internal/search"
	"github.com/tinyopds/tinyopds/internal/statscache"
	"github.com/tinyopds/tinyopds/internal/store"
	"github.com/tinyopds/tinyopds/internal/watcher"
)

func main() {
	cfgPath := config.FindConfigFile()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("configuration warning: %v", err)
	}
	if cfgPath != "" {
		log.Printf("loaded configuration from %q", cfgPath)
	}
	if cfg.LibraryPath == "" {
		log.Fatal("libraryPath is not configured")
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	if !cfg.UseHTTPAuth {
		logger.Warningf("HTTP authentication is disabled; the catalog is unauthenticated")
	}

	aliases, err := alias.Default()
	if err != nil {
		logger.Warningf("author alias table unavailable, continuing without it: %v", err)
		aliases = nil
	}
	if !cfg.UseAuthorsAliases {
		aliases = nil
	}

	serviceDir := filepath.Join(cfg.LibraryPath, ".tinyopds")
	if err := os.MkdirAll(serviceDir, 0o755); err != nil {
		log.Fatalf("cannot create service directory %q: %v", serviceDir, err)
	}
	dbPath := config.DBPath(serviceDir, cfg.LibraryPath)

	st, err := store.Open(dbPath, aliases)
	if err != nil {
		log.Fatalf("open catalog store: %v", err)
	}
	defer st.Close()
	logger.Infof("catalog database: %s", dbPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sc := scanner.New(cfg.LibraryPath, st, aliases, logger, func(p scanner.Progress) {
		logger.Infof("scan progress: found=%d skipped=%d invalid=%d duplicates=%d rate=%.1f/s",
			p.Found, p.Skipped, p.Invalid, p.Duplicates, p.RatePerSec)
	})
	if _, err := sc.Scan(ctx); err != nil {
		logger.Errorf("initial library scan failed: %v", err)
	}

	statsCache := statscache.New(st, cfg.NewBooksPeriod)
	if err := statsCache.Warm(); err != nil {
		logger.Warningf("statistics cache warm-up failed: %v", err)
	}

	w, err := watcher.New(cfg.LibraryPath, st, aliases, logger, func(ev watcher.Event) {
		statsCache.Invalidate()
		if ev.Err != nil {
			logger.Warningf("watcher: %s: %v", ev.Path, ev.Err)
		}
	})
	if err != nil {
		log.Fatalf("start filesystem watcher: %v", err)
	}
	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("filesystem watcher stopped: %v", err)
		}
	}()

	cyrillicFirst := cfg.SortOrder == config.SortCyrillicFirst
	authorSearcher := search.NewAuthorSearcher(st.Reader(), cyrillicFirst)
	titleSearcher := search.NewTitleSearcher(st.Reader(), cyrillicFirst)

	gen := opds.New(st, authorSearcher, titleSearcher, statsCache, opds.GenConfig{
		ServerName:     cfg.ServerName,
		RootPrefix:     cfg.RootPrefix,
		NewBooksPeriod: cfg.NewBooksPeriod,
		SortOrder:      cfg.SortOrder,
		Structure:      cfg.OPDSStructure,
	})

	tracker := downloads.New(st)

	srv := httpserver.New(gen, st, tracker, logger, httpserver.Options{
		LibraryPath:    cfg.LibraryPath,
		RootPrefix:     cfg.RootPrefix,
		UseHTTPAuth:    cfg.UseHTTPAuth,
		BanClients:     cfg.BanClients,
		WrongAttempts:  cfg.WrongAttemptsCount,
		MaxConnections: cfg.MaxConnections,
		Credentials:    credentials.ParsePlain(cfg.Credentials),
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	logger.Infof("tinyopds listening on %s (library: %s)", addr, cfg.LibraryPath)
	if err := httpserver.Run(ctx, addr, srv, logger); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Infof("tinyopds stopped")
}
