package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/scanner"
	"github.com/tinyopds/tinyopds/internal/store"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description>
    <title-info>
      <genre>sf</genre>
      <author><first-name>Лев</first-name><last-name>Толстой</last-name></author>
      <book-title>Война и мир</book-title>
      <lang>ru</lang>
    </title-info>
    <document-info>
      <id>abc-123</id>
      <version>1.2</version>
    </document-info>
  </description>
</FictionBook>`

// fakeStore is an in-memory stand-in for *store.Store, enough to satisfy
// scanner.Store without a real database.
type fakeStore struct {
	mu    sync.Mutex
	books map[string]catalog.Book
}

func newFakeStore() *fakeStore {
	return &fakeStore{books: make(map[string]catalog.Book)}
}

func (f *fakeStore) BookByID(id string) (*catalog.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.books[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeStore) FindByNormalizedTitleAuthor(title, author string) (*catalog.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if store.NormalizeTitle(b.Title) == title {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) HasArchiveMember(filePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.books[filePath]
	return ok, nil
}

func (f *fakeStore) ApplyBatch(ops []store.BatchOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		if op.ReplaceID != "" {
			delete(f.books, op.ReplaceID)
		}
		f.books[op.Book.ID] = op.Book
	}
	return nil
}

func (f *fakeStore) AllBooks(offset, limit int) ([]catalog.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]catalog.Book, 0, len(f.books))
	for _, b := range f.books {
		all = append(all, b)
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) DeleteBook(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.books, id)
	return nil
}

func TestScan_FindsAndInsertsOneBook(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "war-and-peace.fb2"), []byte(sampleFB2), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st := newFakeStore()
	sc := scanner.New(dir, st, nil, nil, nil)

	p, err := sc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p.Found != 1 {
		t.Errorf("Found = %d, want 1", p.Found)
	}
	if len(st.books) != 1 {
		t.Fatalf("expected 1 book committed, got %d", len(st.books))
	}
}

func TestScan_IgnoresUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st := newFakeStore()
	sc := scanner.New(dir, st, nil, nil, nil)

	p, err := sc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p.Found != 0 {
		t.Errorf("Found = %d, want 0", p.Found)
	}
}

func TestScan_ContextCancellationStopsEarly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "war-and-peace.fb2"), []byte(sampleFB2), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st := newFakeStore()
	sc := scanner.New(dir, st, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sc.Scan(ctx); err != nil {
		t.Fatalf("Scan with canceled context should return cleanly, got: %v", err)
	}
}

func TestRemoveMissingFiles_DeletesBooksWhoseFileIsGone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "war-and-peace.fb2")
	if err := os.WriteFile(path, []byte(sampleFB2), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st := newFakeStore()
	sc := scanner.New(dir, st, nil, nil, nil)
	if _, err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(st.books) != 1 {
		t.Fatalf("expected 1 book after scan, got %d", len(st.books))
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove fixture: %v", err)
	}

	removed, err := sc.RemoveMissingFiles(context.Background())
	if err != nil {
		t.Fatalf("RemoveMissingFiles: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(st.books) != 0 {
		t.Errorf("expected 0 books remaining, got %d", len(st.books))
	}
}

func TestRemoveMissingFiles_KeepsBooksWhoseFileStillExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "war-and-peace.fb2"), []byte(sampleFB2), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st := newFakeStore()
	sc := scanner.New(dir, st, nil, nil, nil)
	if _, err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	removed, err := sc.RemoveMissingFiles(context.Background())
	if err != nil {
		t.Fatalf("RemoveMissingFiles: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(st.books) != 1 {
		t.Errorf("expected book to survive, got %d", len(st.books))
	}
}
