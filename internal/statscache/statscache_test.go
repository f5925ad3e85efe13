package statscache_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/statscache"
	"github.com/tinyopds/tinyopds/internal/store"
)

type fakeSource struct {
	counts   store.StatCounts
	newCount int
	calls    int
}

func (f *fakeSource) Counts() (store.StatCounts, error) {
	f.calls++
	return f.counts, nil
}
func (f *fakeSource) NewBooksCount(int) (int, error)                { return f.newCount, nil }
func (f *fakeSource) Authors() ([]catalog.AuthorEntry, error)       { return nil, nil }
func (f *fakeSource) Sequences() ([]catalog.SequenceEntry, error)   { return nil, nil }
func (f *fakeSource) GenresWithBooks() ([]catalog.GenreWithBooks, error) { return nil, nil }

func TestCountsMemoizedUntilInvalidated(t *testing.T) {
	src := &fakeSource{counts: store.StatCounts{TotalBooks: 5}}
	c := statscache.New(src, 30)

	if _, err := c.Counts(); err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if _, err := c.Counts(); err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", src.calls)
	}

	c.Invalidate()
	src.counts.TotalBooks = 7
	got, err := c.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if got.TotalBooks != 7 {
		t.Errorf("TotalBooks after invalidate: got %d, want 7", got.TotalBooks)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 underlying calls after invalidate, got %d", src.calls)
	}
}

func TestMonotonicityAcrossReadsWithoutDelete(t *testing.T) {
	src := &fakeSource{counts: store.StatCounts{TotalBooks: 3}}
	c := statscache.New(src, 30)

	first, _ := c.Counts()
	c.Invalidate()
	src.counts.TotalBooks = 4
	second, _ := c.Counts()
	if second.TotalBooks < first.TotalBooks {
		t.Errorf("count decreased without a delete: %d -> %d", first.TotalBooks, second.TotalBooks)
	}
}
