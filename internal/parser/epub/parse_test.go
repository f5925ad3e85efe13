package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalogerrors"
)

const containerXMLBody = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

const opfBody = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Пикник на обочине</dc:title>
    <dc:creator opf:role="aut">Стругацкий Аркадий</dc:creator>
    <dc:creator opf:role="aut">Стругацкий Борис</dc:creator>
    <dc:language>ru</dc:language>
    <dc:subject>sf</dc:subject>
    <dc:date>1972-01-01</dc:date>
    <meta name="calibre:series" content="Condlers"/>
    <meta name="calibre:series_index" content="1"/>
  </metadata>
  <manifest>
    <item id="cover-image" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
</package>`

func buildTestEPUB(t *testing.T) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	write("META-INF/container.xml", containerXMLBody)
	write("OEBPS/content.opf", opfBody)
	write("OEBPS/images/cover.jpg", "coverbytes")
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParse_BasicFields(t *testing.T) {
	r := buildTestEPUB(t)
	b, err := Parse(r, int64(r.Len()), "roadside-picnic.epub")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Title != "Пикник на обочине" {
		t.Errorf("Title: got %q", b.Title)
	}
	if len(b.Authors) != 2 {
		t.Errorf("Authors: got %+v", b.Authors)
	}
	if b.Language != "ru" {
		t.Errorf("Language: got %q", b.Language)
	}
	if len(b.Genres) != 1 || b.Genres[0] != "sf" {
		t.Errorf("Genres: got %+v", b.Genres)
	}
	if b.BookDate != 1972 {
		t.Errorf("BookDate: got %d, want 1972", b.BookDate)
	}
	if len(b.Sequences) != 1 || b.Sequences[0].Name != "Condlers" || b.Sequences[0].NumberInSequence != 1 {
		t.Errorf("Sequences: got %+v", b.Sequences)
	}
	if !b.HasCover {
		t.Error("HasCover: got false, want true")
	}
	if b.ID == "" {
		t.Error("ID: got empty")
	}
}

func TestExtractCover(t *testing.T) {
	r := buildTestEPUB(t)
	data, mediaType, err := ExtractCover(r, int64(r.Len()))
	if err != nil {
		t.Fatalf("ExtractCover: %v", err)
	}
	if string(data) != "coverbytes" {
		t.Errorf("cover data: got %q", data)
	}
	if mediaType != "image/jpeg" {
		t.Errorf("media type: got %q", mediaType)
	}
}

func TestParse_MalformedArchiveReturnsParseError(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("not a zip")), 9, "broken.epub")
	if err == nil {
		t.Fatal("Parse: want error for non-zip data")
	}
	var pe *catalogerrors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("Parse: got %T, want *catalogerrors.ParseError", err)
	}
}
