package fb2

import (
	"errors"
	"strings"
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalogerrors"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description>
    <title-info>
      <genre>sf</genre>
      <author>
        <first-name>Лев</first-name>
        <middle-name>Николаевич</middle-name>
        <last-name>Толстой</last-name>
      </author>
      <book-title>Война и мир</book-title>
      <annotation><p>Роман-эпопея.</p></annotation>
      <date value="1869">1869</date>
      <lang>ru</lang>
      <sequence name="Классика" number="1"/>
      <coverpage><image href="#cover.jpg"/></coverpage>
    </title-info>
    <document-info>
      <id>abc-123</id>
      <version>1.2</version>
      <date value="2020-01-15">15 January 2020</date>
    </document-info>
  </description>
  <binary id="cover.jpg" content-type="image/jpeg">aGVsbG8=</binary>
</FictionBook>`

func TestParse_BasicFields(t *testing.T) {
	b, err := Parse(strings.NewReader(sampleFB2), "war-and-peace.fb2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Title != "Война и мир" {
		t.Errorf("Title: got %q", b.Title)
	}
	if b.ID != "abc-123" {
		t.Errorf("ID: got %q, want publisher id", b.ID)
	}
	if len(b.Authors) != 1 || b.Authors[0].Name != "Толстой Лев Николаевич" {
		t.Errorf("Authors: got %+v", b.Authors)
	}
	if b.BookDate != 1869 {
		t.Errorf("BookDate: got %d, want 1869", b.BookDate)
	}
	if b.DocVersion != 1.2 {
		t.Errorf("DocVersion: got %v, want 1.2", b.DocVersion)
	}
	if !b.HasCover {
		t.Error("HasCover: got false, want true")
	}
	if len(b.Sequences) != 1 || b.Sequences[0].Name != "Классика" || b.Sequences[0].NumberInSequence != 1 {
		t.Errorf("Sequences: got %+v", b.Sequences)
	}
	if b.Annotation != "Роман-эпопея." {
		t.Errorf("Annotation: got %q", b.Annotation)
	}
}

func TestParse_MissingAuthorSynthesizesUnknown(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description><title-info><book-title>Untitled Work</book-title></title-info></description>
</FictionBook>`
	b, err := Parse(strings.NewReader(doc), "mystery.fb2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(b.Authors) != 1 || b.Authors[0].Name != "Unknown" {
		t.Errorf("Authors: got %+v, want synthesized Unknown", b.Authors)
	}
	if b.ID == "" {
		t.Error("ID: got empty, want path-derived fallback")
	}
}

func TestExtractCover(t *testing.T) {
	data, contentType, err := ExtractCover(strings.NewReader(sampleFB2))
	if err != nil {
		t.Fatalf("ExtractCover: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("cover data: got %q, want %q", data, "hello")
	}
	if contentType != "image/jpeg" {
		t.Errorf("content type: got %q", contentType)
	}
}

func TestParse_MalformedXMLReturnsParseError(t *testing.T) {
	_, err := Parse(strings.NewReader("<FictionBook><description>"), "broken.fb2")
	if err == nil {
		t.Fatal("Parse: want error for truncated XML")
	}
	var pe *catalogerrors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("Parse: got %T, want *catalogerrors.ParseError", err)
	}
}
