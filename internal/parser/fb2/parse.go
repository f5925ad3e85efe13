package fb2

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tinyopds/tinyopds/internal/bookid"
	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
)

// Parse reads the whole FB2 document into memory, decodes its <description>
// and <binary> elements (the decoder skips <body>), and returns the catalog
// entry built from the description. fileName
// is the book's FilePath (including any "archive.zip@" prefix) and seeds the
// fallback id when the document carries no publisher id.
func Parse(r io.Reader, fileName string) (catalog.Book, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return catalog.Book{}, &catalogerrors.IOError{Path: fileName, Err: err}
	}
	raw = stripBOM(raw)

	var fb fictionBook
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader
	dec.Strict = false
	if err := dec.Decode(&fb); err != nil {
		return catalog.Book{}, &catalogerrors.ParseError{Path: fileName, Err: err}
	}

	ti := fb.Description.TitleInfo
	book := catalog.Book{
		Title:      strings.TrimSpace(ti.BookTitle),
		Language:   strings.TrimSpace(ti.Language),
		BookType:   catalog.FB2,
		FilePath:   fileName,
		FileName:   fileName,
		AddedDate:  time.Now(),
		Genres:     append([]string{}, ti.Genre...),
	}

	if book.Title == "" {
		book.Title = fileName
	}

	if ti.Annotation != nil {
		book.Annotation = joinAnnotation(*ti.Annotation)
	}

	for _, a := range ti.Author {
		if name := formatAuthorName(a); name != "" {
			book.Authors = append(book.Authors, catalog.Author{Name: name})
		}
	}
	for _, a := range ti.Translator {
		if name := formatAuthorName(a); name != "" {
			book.Translators = append(book.Translators, catalog.Author{Name: name})
		}
	}
	if len(book.Authors) == 0 {
		book.Authors = []catalog.Author{{Name: "Unknown"}}
	}

	sequences := ti.Sequence
	if len(sequences) == 0 {
		sequences = fb.Description.PublishInfo.Sequence
	}
	for _, s := range sequences {
		name := strings.TrimSpace(s.Name)
		if name != "" {
			book.Sequences = append(book.Sequences, catalog.Sequence{Name: name, NumberInSequence: s.Number})
		}
	}

	book.BookDate = parseYear(ti.Date)
	if docDate := parseDocDate(fb.Description.DocumentInfo.Date); !docDate.IsZero() {
		book.DocumentDate = docDate
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(fb.Description.DocumentInfo.Version), 64); err == nil {
		book.DocVersion = v
	}

	book.DocumentSize = int64(len(raw))
	book.HasCover = coverBinaryID(ti.Coverpage, fb.Binaries) != ""

	if fb.Description.DocumentInfo.ID != "" {
		book.ID = strings.TrimSpace(fb.Description.DocumentInfo.ID)
	} else {
		book.ID = bookid.FromPath(fileName)
	}

	return book, nil
}

// ExtractCover decodes and returns the cover image bytes referenced by the
// FB2 <coverpage>, kept out of the hot metadata-scan path since most scans
// never need the pixel data.
func ExtractCover(r io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	raw = stripBOM(raw)

	var fb fictionBook
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader
	dec.Strict = false
	if err := dec.Decode(&fb); err != nil {
		return nil, "", &catalogerrors.ParseError{Path: "", Err: err}
	}

	id := coverBinaryID(fb.Description.TitleInfo.Coverpage, fb.Binaries)
	if id == "" {
		return nil, "", fmt.Errorf("fb2: no cover present")
	}
	for _, b := range fb.Binaries {
		if b.ID == id {
			data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b.Data))
			if err != nil {
				return nil, "", fmt.Errorf("fb2: decode cover: %w", err)
			}
			return data, b.ContentType, nil
		}
	}
	return nil, "", fmt.Errorf("fb2: cover binary %q not found", id)
}

func coverBinaryID(c coverpage, binaries []binary) string {
	href := strings.TrimPrefix(c.Image.resolvedHref(), "#")
	if href == "" {
		return ""
	}
	for _, b := range binaries {
		if b.ID == href {
			return b.ID
		}
	}
	return ""
}

func formatAuthorName(a author) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.LastName, a.FirstName, a.MiddleName} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(a.Nickname)
	}
	return strings.Join(parts, " ")
}

func joinAnnotation(t textContainer) string {
	if len(t.P) > 0 {
		return strings.TrimSpace(strings.Join(t.P, "\n\n"))
	}
	return strings.TrimSpace(t.Text)
}

// parseYear extracts a publication year from the loosely structured FB2
// <date> element: the value attribute if present, else the first four
// digits found in the chardata.
func parseYear(d fbDate) int {
	candidate := d.Value
	if candidate == "" {
		candidate = d.Text
	}
	for i := 0; i+4 <= len(candidate); i++ {
		if y, err := strconv.Atoi(candidate[i : i+4]); err == nil && y > 1000 && y < 3000 {
			return y
		}
	}
	return 0
}

func parseDocDate(d fbDate) time.Time {
	candidate := d.Value
	if candidate == "" {
		candidate = d.Text
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", candidate); err == nil {
		return t
	}
	if y := parseYear(d); y != 0 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}
