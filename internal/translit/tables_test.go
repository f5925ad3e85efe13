package translit_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/translit"
)

func TestToISO9_BasicWord(t *testing.T) {
	got := translit.ToISO9("Толстой")
	want := "Tolstoj"
	if got != want {
		t.Errorf("ToISO9: got %q, want %q", got, want)
	}
}

func TestToGOST_PreservesCase(t *testing.T) {
	got := translit.ToGOST("Щука")
	want := "Shchuka"
	if got != want {
		t.Errorf("ToGOST: got %q, want %q", got, want)
	}
}

func TestBackGOST_RoundTrip(t *testing.T) {
	original := "Достоевский"
	latin := translit.ToGOST(original)
	back := translit.BackGOST(latin)
	if back != original {
		t.Errorf("BackGOST(ToGOST(%q)) = %q, want %q", original, back, original)
	}
}

func TestBackGOST_NonLetterRunesPassThrough(t *testing.T) {
	got := translit.BackGOST("12345!")
	if got != "12345!" {
		t.Errorf("BackGOST on digits/punctuation: got %q, want unchanged", got)
	}
}
