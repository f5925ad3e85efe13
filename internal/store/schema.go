package store

import (
	"database/sql"
	"fmt"
)

// currentSchemaVersion is the schema version this binary expects. Bump it
// and append a migration whenever the schema changes.
const currentSchemaVersion = 1

type schemaMigration struct {
	version int
	apply   func(db *sql.DB) error
}

var schemaMigrations = []schemaMigration{
	{version: 1, apply: migration1},
}

// migrateSchema applies every migration whose version exceeds the database's
// current PRAGMA user_version, in order, each inside its own transaction-free
// DDL batch (SQLite DDL is implicitly transactional per statement group).
func migrateSchema(db *sql.DB) error {
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return err
	}
	for _, m := range schemaMigrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(db); err != nil {
			return err
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, m.version)); err != nil {
			return err
		}
	}
	return nil
}

// migration1 creates the full schema: books/authors/genres/sequences and
// their join tables, the downloads log, the read-only aliases mirror, and
// the books_fts full-text index. There are no triggers; books_fts is kept
// in sync by hand alongside every books write (writeBookTx, deleteBookTx
// in books.go).
func migration1(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS books (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL DEFAULT '',
    title_normalized TEXT NOT NULL DEFAULT '',
    annotation       TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT '',
    book_date        INTEGER NOT NULL DEFAULT 0,
    document_date    INTEGER NOT NULL DEFAULT 0,
    added_date       INTEGER NOT NULL DEFAULT 0,
    doc_version      REAL NOT NULL DEFAULT 0,
    book_type        INTEGER NOT NULL DEFAULT 0,
    file_path        TEXT NOT NULL UNIQUE,
    file_name        TEXT NOT NULL DEFAULT '',
    document_size    INTEGER NOT NULL DEFAULT 0,
    has_cover        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS authors (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT NOT NULL UNIQUE,
    name_soundex  TEXT NOT NULL DEFAULT '',
    name_translit TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS book_authors (
    book_id   TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
    position  INTEGER NOT NULL DEFAULT 0,
    role      TEXT NOT NULL DEFAULT 'author',
    PRIMARY KEY (book_id, author_id, role)
);

CREATE TABLE IF NOT EXISTS genres (
    tag         TEXT PRIMARY KEY,
    english_name TEXT NOT NULL DEFAULT '',
    translation TEXT NOT NULL DEFAULT '',
    parent_tag  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS book_genres (
    book_id  TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    genre_tag TEXT NOT NULL REFERENCES genres(tag),
    PRIMARY KEY (book_id, genre_tag)
);

CREATE TABLE IF NOT EXISTS sequences (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL UNIQUE,
    name_soundex TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS book_sequences (
    book_id           TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    sequence_id       INTEGER NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
    number_in_sequence INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (book_id, sequence_id)
);

CREATE TABLE IF NOT EXISTS downloads (
    book_id           TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    client_fingerprint TEXT NOT NULL,
    ts                INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS aliases (
    alias_name     TEXT PRIMARY KEY,
    canonical_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_book_authors_author   ON book_authors(author_id);
CREATE INDEX IF NOT EXISTS idx_book_genres_tag        ON book_genres(genre_tag);
CREATE INDEX IF NOT EXISTS idx_book_sequences_seq     ON book_sequences(sequence_id);
CREATE INDEX IF NOT EXISTS idx_books_added_date        ON books(added_date DESC);
CREATE INDEX IF NOT EXISTS idx_books_title_normalized  ON books(title_normalized);
CREATE INDEX IF NOT EXISTS idx_authors_soundex         ON authors(name_soundex);
CREATE INDEX IF NOT EXISTS idx_downloads_book          ON downloads(book_id);

CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts5(
    book_id UNINDEXED, title, annotation, authors,
    tokenize = 'unicode61 remove_diacritics 2'
);
`)
	return err
}
