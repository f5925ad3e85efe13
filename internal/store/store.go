// Package store implements TinyOPDS's metadata store: the relational schema
// of §4.3, indexed and full-text queries, and the single-writer/multi-reader
// discipline the rest of the system relies on. It is the only component that
// touches SQL directly.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tinyopds/tinyopds/internal/alias"
)

// Store owns one writer connection (serialized by writeMu, matching the
// single-writer discipline) and a separate pooled reader connection for
// concurrent queries. Both point at the same database file.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	writeMu sync.Mutex

	aliases *alias.Resolver
}

// Open creates (if absent) and migrates the database at path, then returns a
// ready Store. Author names are always written as given; alias resolution
// happens in the callers before books reach the store. aliases is used only
// to refresh the aliases table, and may be nil, in which case that table is
// left as it is.
func Open(path string, aliases *alias.Resolver) (*Store, error) {
	writer, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open writer connection %q: %w", path, err)
	}
	writer.SetMaxOpenConns(1)

	if _, err := writer.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON; PRAGMA busy_timeout=5000;`); err != nil {
		writer.Close()
		return nil, fmt.Errorf("configure writer connection: %w", err)
	}
	if err := migrateSchema(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	reader, err := sql.Open("sqlite", path)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader pool %q: %w", path, err)
	}
	if _, err := reader.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("configure reader pool: %w", err)
	}

	s := &Store{writer: writer, reader: reader, aliases: aliases}
	if err := s.seedGenres(); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed genre taxonomy: %w", err)
	}
	if aliases != nil {
		if err := s.mirrorAliases(); err != nil {
			s.Close()
			return nil, fmt.Errorf("mirror alias table: %w", err)
		}
	}
	return s, nil
}

// Close releases both connections.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Reader exposes the read-only pooled connection for callers (search,
// statscache) that build their own queries against it.
func (s *Store) Reader() *sql.DB { return s.reader }

// mirrorAliases copies the embedded alias table into the aliases SQL table
// so it's visible via ordinary queries for diagnostics; resolution itself
// always goes through the in-memory Resolver, never this table.
func (s *Store) mirrorAliases() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM aliases`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO aliases (alias_name, canonical_name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, canonical := range s.aliases.AllCanonical() {
		for _, variant := range s.aliases.Variants(canonical) {
			if _, err := stmt.Exec(variant, canonical); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
