package opds_test

import (
	"testing"
	"time"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/config"
	"github.com/tinyopds/tinyopds/internal/opds"
	"github.com/tinyopds/tinyopds/internal/statscache"
	"github.com/tinyopds/tinyopds/internal/store"
)

type fakeSource struct {
	books   []catalog.Book
	authors []catalog.AuthorEntry
}

func (f *fakeSource) AllBooks(offset, limit int) ([]catalog.Book, int, error) {
	return f.books, len(f.books), nil
}
func (f *fakeSource) NewBooks(sinceDays, offset, limit int, byTitle bool) ([]catalog.Book, int, error) {
	return f.books, len(f.books), nil
}
func (f *fakeSource) BookByID(id string) (*catalog.Book, error) {
	for _, b := range f.books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}
func (f *fakeSource) Authors() ([]catalog.AuthorEntry, error) { return f.authors, nil }
func (f *fakeSource) AuthorsByPrefix(prefix string) ([]catalog.AuthorEntry, error) {
	return f.authors, nil
}
func (f *fakeSource) Sequences() ([]catalog.SequenceEntry, error) { return nil, nil }
func (f *fakeSource) SequencesByPrefix(prefix string) ([]catalog.SequenceEntry, error) {
	return nil, nil
}
func (f *fakeSource) GenresWithBooks() ([]catalog.GenreWithBooks, error) { return nil, nil }
func (f *fakeSource) BooksByAuthor(author string, offset, limit int) ([]catalog.Book, int, error) {
	return f.books, len(f.books), nil
}
func (f *fakeSource) BooksByAuthorDate(author string, offset, limit int) ([]catalog.Book, int, error) {
	return f.books, len(f.books), nil
}
func (f *fakeSource) BooksByAuthorNoSeries(author string, offset, limit int) ([]catalog.Book, int, error) {
	return nil, 0, nil
}
func (f *fakeSource) BooksByAuthorSequence(author, sequence string, offset, limit int) ([]catalog.Book, int, error) {
	return nil, 0, nil
}
func (f *fakeSource) BooksBySequence(name string, offset, limit int) ([]catalog.Book, int, error) {
	return nil, 0, nil
}
func (f *fakeSource) BooksByGenre(tag string, offset, limit int) ([]catalog.Book, int, error) {
	return nil, 0, nil
}
func (f *fakeSource) BooksByIDs(ids []string) ([]catalog.Book, error) { return f.books, nil }
func (f *fakeSource) AuthorHasSeries(author string) (bool, bool, error) {
	if len(f.books) == 0 {
		return false, false, nil
	}
	return false, true, nil
}
func (f *fakeSource) UniqueDownloadsByDate(offset, limit int) ([]store.DownloadedBook, int, error) {
	return nil, 0, nil
}
func (f *fakeSource) UniqueDownloadsByTitle(offset, limit int) ([]store.DownloadedBook, int, error) {
	return nil, 0, nil
}

type fakeStats struct{}

func (fakeStats) Counts() (statscache.StatCounts, error) {
	return statscache.StatCounts{AuthorsCount: 1, SeqCount: 0}, nil
}
func (fakeStats) NewBooksCount() (int, error) { return 1, nil }

func newTestGenerator(src *fakeSource) *opds.Generator {
	return opds.New(src, nil, nil, fakeStats{}, opds.GenConfig{
		ServerName:     "TinyOPDS",
		NewBooksPeriod: 14,
		SortOrder:      config.SortLatinFirst,
		Structure:      config.DefaultOPDSStructure,
	})
}

func sampleBook(id string) catalog.Book {
	return catalog.Book{
		ID:        id,
		Title:     "Test Book",
		BookType:  catalog.FB2,
		AddedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Authors:   []catalog.Author{{Name: "Doe John"}},
	}
}

func TestGenerator_Root_ListsEnabledSections(t *testing.T) {
	gen := newTestGenerator(&fakeSource{})
	feed, err := gen.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if len(feed.Entries) == 0 {
		t.Fatal("expected at least one navigation entry")
	}
}

func TestGenerator_NewBooks_RendersAcquisitionEntries(t *testing.T) {
	src := &fakeSource{books: []catalog.Book{sampleBook("b1")}}
	gen := newTestGenerator(src)
	feed, err := gen.NewBooks(false, 0)
	if err != nil {
		t.Fatalf("NewBooks: %v", err)
	}
	if len(feed.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(feed.Entries))
	}
	if feed.TotalResults != 1 {
		t.Errorf("TotalResults = %d, want 1", feed.TotalResults)
	}
}

func TestGenerator_AuthorDetails_RedirectsWithoutIntermediatePage(t *testing.T) {
	src := &fakeSource{books: []catalog.Book{sampleBook("b1")}}
	gen := newTestGenerator(src)
	result, err := gen.AuthorDetails("Doe John")
	if err != nil {
		t.Fatalf("AuthorDetails: %v", err)
	}
	if result.RedirectTo == "" {
		t.Error("expected a redirect when the author has only one kind of book")
	}
}

func TestGenerator_AuthorDetails_UnknownAuthorIsNotFound(t *testing.T) {
	gen := newTestGenerator(&fakeSource{})
	_, err := gen.AuthorDetails("Nobody")
	if err == nil {
		t.Fatal("expected a NotFound error for an unknown author")
	}
}

func TestGenerator_DownstatDate_EmptyHistoryIsOK(t *testing.T) {
	src := &fakeSource{books: []catalog.Book{sampleBook("b1")}}
	gen := newTestGenerator(src)
	feed, err := gen.DownstatDate(0)
	if err != nil {
		t.Fatalf("DownstatDate: %v", err)
	}
	if len(feed.Entries) != 0 {
		t.Errorf("expected no entries with an empty download history, got %d", len(feed.Entries))
	}
}
