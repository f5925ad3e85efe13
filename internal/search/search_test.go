package search_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/search"
	"github.com/tinyopds/tinyopds/internal/translit"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT, name_soundex TEXT, name_translit TEXT)`,
		`CREATE TABLE books (id TEXT PRIMARY KEY, title TEXT)`,
		`CREATE VIRTUAL TABLE books_fts USING fts5(book_id UNINDEXED, title)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func seedAuthor(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	code := translit.Soundex(name)
	iso := translit.ToISO9(name)
	if _, err := db.Exec(`INSERT INTO authors (name, name_soundex, name_translit) VALUES (?, ?, ?)`, name, code, iso); err != nil {
		t.Fatalf("seedAuthor(%q): %v", name, err)
	}
}

func seedBook(t *testing.T, db *sql.DB, id, title string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO books (id, title) VALUES (?, ?)`, id, title); err != nil {
		t.Fatalf("seedBook: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO books_fts (book_id, title) VALUES (?, ?)`, id, title); err != nil {
		t.Fatalf("seedBook fts: %v", err)
	}
}

func TestAuthorSearcher_OpenSearch_ExactMatch(t *testing.T) {
	db := openTestDB(t)
	seedAuthor(t, db, "Пушкин Александр Сергеевич")

	s := search.NewAuthorSearcher(db, false)
	results, method, err := s.OpenSearch(context.Background(), "Пушкин Александр Сергеевич")
	if err != nil {
		t.Fatalf("OpenSearch: %v", err)
	}
	if method != catalog.MethodExact {
		t.Errorf("method: got %v, want MethodExact", method)
	}
	if len(results) != 1 || results[0].Name != "Пушкин Александр Сергеевич" {
		t.Errorf("results: got %+v", results)
	}
}

func TestAuthorSearcher_OpenSearch_Transliteration(t *testing.T) {
	db := openTestDB(t)
	seedAuthor(t, db, "Достоевский Фёдор Михайлович")

	s := search.NewAuthorSearcher(db, false)
	results, method, err := s.OpenSearch(context.Background(), "Dostoevskij")
	if err != nil {
		t.Fatalf("OpenSearch: %v", err)
	}
	if method != catalog.MethodTransliteration {
		t.Errorf("method: got %v, want MethodTransliteration", method)
	}
	if len(results) != 1 || results[0].Name != "Достоевский Фёдор Михайлович" {
		t.Errorf("results: got %+v", results)
	}
}

func TestAuthorSearcher_OpenSearch_TransliterationFullName(t *testing.T) {
	db := openTestDB(t)
	seedAuthor(t, db, "Достоевский Фёдор Михайлович")

	s := search.NewAuthorSearcher(db, false)
	results, method, err := s.OpenSearch(context.Background(), "Dostoevskij Fedor Mihajlovich")
	if err != nil {
		t.Fatalf("OpenSearch: %v", err)
	}
	if method != catalog.MethodTransliteration {
		t.Errorf("method: got %v, want MethodTransliteration", method)
	}
	if len(results) != 1 || results[0].Name != "Достоевский Фёдор Михайлович" {
		t.Errorf("results: got %+v", results)
	}
}

func TestAuthorSearcher_NavigationPrefix(t *testing.T) {
	db := openTestDB(t)
	seedAuthor(t, db, "Толстой Лев Николаевич")
	seedAuthor(t, db, "Толстой Алексей Константинович")
	seedAuthor(t, db, "Чехов Антон Павлович")

	s := search.NewAuthorSearcher(db, false)
	names, err := s.NavigationPrefix(context.Background(), "Толстой")
	if err != nil {
		t.Fatalf("NavigationPrefix: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("NavigationPrefix: got %d names, want 2", len(names))
	}
}

func TestTitleSearcher_OpenSearch_ExactRanksFirst(t *testing.T) {
	db := openTestDB(t)
	seedBook(t, db, "b1", "Война и мир")
	seedBook(t, db, "b2", "Война и мир книга вторая")

	s := search.NewTitleSearcher(db, false)
	results, err := s.OpenSearch(context.Background(), "Война и мир")
	if err != nil {
		t.Fatalf("OpenSearch: %v", err)
	}
	if len(results) < 1 {
		t.Fatalf("expected at least one result")
	}
	if results[0].BookID != "b1" {
		t.Errorf("first result: got %q, want b1 (exact match ranked first)", results[0].BookID)
	}
}

func TestTitleSearcher_NavigationPrefix(t *testing.T) {
	db := openTestDB(t)
	seedBook(t, db, "b1", "Мастер и Маргарита")

	s := search.NewTitleSearcher(db, false)
	results, err := s.NavigationPrefix(context.Background(), "Мастер")
	if err != nil {
		t.Fatalf("NavigationPrefix: %v", err)
	}
	if len(results) != 1 || results[0].BookID != "b1" {
		t.Errorf("results: got %+v", results)
	}
}
