// Package credentials encodes and decodes the HTTP Basic Auth credential
// table (spec.md §6). The plaintext form is "user:pass;user2:pass2;...";
// Encrypt/Decrypt convert it to and from an AES-256-GCM blob. The server
// reads the configuration's Credentials field in the plaintext form.
//
// No dedicated envelope-encryption library appears anywhere in the
// retrieved pack for this domain, so stdlib crypto/aes + crypto/cipher is
// used deliberately (see DESIGN.md).
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table is an ordered set of username/password pairs.
type Table struct {
	entries []Entry
}

// Entry is one username/password pair.
type Entry struct {
	User string
	Pass string
}

// Check reports whether user/pass matches an entry in the table.
func (t *Table) Check(user, pass string) bool {
	if t == nil {
		return false
	}
	for _, e := range t.entries {
		if e.User == user && e.Pass == pass {
			return true
		}
	}
	return false
}

// Empty reports whether the table has no entries, i.e. Basic Auth should be
// treated as disabled regardless of the useHTTPAuth flag.
func (t *Table) Empty() bool {
	return t == nil || len(t.entries) == 0
}

// ParsePlain parses the unencrypted "user:pass;user2:pass2" form.
func ParsePlain(s string) *Table {
	t := &Table{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		t.entries = append(t.entries, Entry{User: parts[0], Pass: parts[1]})
	}
	return t
}

// Plain renders the table back to its "user:pass;..." form.
func (t *Table) Plain() string {
	if t == nil {
		return ""
	}
	parts := make([]string, len(t.entries))
	for i, e := range t.entries {
		parts[i] = e.User + ":" + e.Pass
	}
	return strings.Join(parts, ";")
}

// Encrypt AES-256-GCM encrypts the plaintext table under key (which must be
// exactly 32 bytes), returning a base64-encoded "nonce||ciphertext" blob
// suitable for Config.Credentials.
func Encrypt(t *Table, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("credentials: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("credentials: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("credentials: nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(t.Plain()), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. An empty blob decodes to an empty Table rather
// than an error, matching an unconfigured credentials field.
func Decrypt(blob string, key []byte) (*Table, error) {
	if strings.TrimSpace(blob) == "" {
		return &Table{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode base64: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("credentials: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credentials: new gcm: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("credentials: ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("credentials: decrypt: %w", err)
	}
	return ParsePlain(string(plain)), nil
}
