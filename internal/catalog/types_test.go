package catalog_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalog"
)

func TestBook_ArchivePath_SplitsCompositePath(t *testing.T) {
	b := catalog.Book{FilePath: "fiction.zip@inner/book.fb2"}
	archive, inner, ok := b.ArchivePath()
	if !ok {
		t.Fatal("expected ok = true for a composite path")
	}
	if archive != "fiction.zip" || inner != "inner/book.fb2" {
		t.Errorf("got (%q, %q), want (fiction.zip, inner/book.fb2)", archive, inner)
	}
}

func TestBook_ArchivePath_PlainFileIsNotArchiveMember(t *testing.T) {
	b := catalog.Book{FilePath: "author/book.fb2"}
	_, _, ok := b.ArchivePath()
	if ok {
		t.Error("expected ok = false for a plain file path")
	}
}

func TestBookType_String(t *testing.T) {
	if got := catalog.FB2.String(); got != "fb2" {
		t.Errorf("FB2.String() = %q, want fb2", got)
	}
	if got := catalog.EPUB.String(); got != "epub" {
		t.Errorf("EPUB.String() = %q, want epub", got)
	}
}

func TestSearchMethod_String(t *testing.T) {
	cases := map[catalog.SearchMethod]string{
		catalog.MethodNone:            "none",
		catalog.MethodExact:           "exact",
		catalog.MethodPartial:         "partial",
		catalog.MethodTransliteration: "transliteration",
		catalog.MethodSoundex:         "soundex",
	}
	for method, want := range cases {
		if got := method.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", method, got, want)
		}
	}
}
