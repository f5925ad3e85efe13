package dedup_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/dedup"
	"github.com/tinyopds/tinyopds/internal/store"
)

type fakeLookup struct {
	byID        map[string]catalog.Book
	byTitleAuth map[string]catalog.Book // key: normalizedTitle+"|"+author
	archived    map[string]bool
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		byID:        map[string]catalog.Book{},
		byTitleAuth: map[string]catalog.Book{},
		archived:    map[string]bool{},
	}
}

func (f *fakeLookup) BookByID(id string) (*catalog.Book, error) {
	if b, ok := f.byID[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeLookup) FindByNormalizedTitleAuthor(normalizedTitle, primaryAuthor string) (*catalog.Book, error) {
	if b, ok := f.byTitleAuth[normalizedTitle+"|"+primaryAuthor]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeLookup) HasArchiveMember(filePath string) (bool, error) {
	return f.archived[filePath], nil
}

func (f *fakeLookup) add(b catalog.Book) {
	f.byID[b.ID] = b
	primary := "Unknown"
	if len(b.Authors) > 0 {
		primary = b.Authors[0].Name
	}
	f.byTitleAuth[store.NormalizeTitle(b.Title)+"|"+primary] = b
}

func TestDecide_NewBook(t *testing.T) {
	lookup := newFakeLookup()
	candidate := catalog.Book{ID: "id-1", Title: "Title", Authors: []catalog.Author{{Name: "Author"}}}

	v, err := dedup.Decide(lookup, candidate)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if v.Decision != catalog.InsertNew {
		t.Errorf("Decision: got %v, want InsertNew", v.Decision)
	}
}

func TestDecide_FB2HigherVersionReplaces(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(catalog.Book{ID: "old", Title: "War", BookType: catalog.FB2, DocVersion: 1.1,
		Authors: []catalog.Author{{Name: "Tolstoy"}}})

	candidate := catalog.Book{ID: "new", Title: "War", BookType: catalog.FB2, DocVersion: 1.2,
		Authors: []catalog.Author{{Name: "Tolstoy"}}}

	v, err := dedup.Decide(lookup, candidate)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if v.Decision != catalog.ReplaceExisting || v.ExistingID != "old" {
		t.Errorf("got %+v, want ReplaceExisting(old)", v)
	}
}

func TestDecide_FB2LowerVersionRejected(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(catalog.Book{ID: "old", Title: "War", BookType: catalog.FB2, DocVersion: 1.2,
		Authors: []catalog.Author{{Name: "Tolstoy"}}})

	candidate := catalog.Book{ID: "new", Title: "War", BookType: catalog.FB2, DocVersion: 1.1,
		Authors: []catalog.Author{{Name: "Tolstoy"}}}

	v, err := dedup.Decide(lookup, candidate)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if v.Decision != catalog.Reject {
		t.Errorf("Decision: got %v, want Reject", v.Decision)
	}
}

func TestDecide_ArchivedDuplicateRejected(t *testing.T) {
	lookup := newFakeLookup()
	lookup.archived["lib.zip@book1.epub"] = true

	candidate := catalog.Book{ID: "new", Title: "T", FilePath: "lib.zip@book1.epub",
		Authors: []catalog.Author{{Name: "A"}}}

	v, err := dedup.Decide(lookup, candidate)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if v.Decision != catalog.Reject {
		t.Errorf("Decision: got %v, want Reject", v.Decision)
	}
}

func TestDecide_EPUBandFB2Coexist(t *testing.T) {
	lookup := newFakeLookup()
	lookup.add(catalog.Book{ID: "fb2-1", Title: "Book", BookType: catalog.FB2,
		Authors: []catalog.Author{{Name: "A"}}})

	candidate := catalog.Book{ID: "fb2-1", Title: "Book", BookType: catalog.EPUB,
		Authors: []catalog.Author{{Name: "A"}}}

	v, err := dedup.Decide(lookup, candidate)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if v.Decision != catalog.InsertNew {
		t.Errorf("Decision: got %v, want InsertNew (coexist)", v.Decision)
	}
}
