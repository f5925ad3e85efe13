package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/tinyopds/tinyopds/internal/bookid"
	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
)

// Parse opens the ZIP central directory of an EPUB, reads its container and
// OPF package document, and returns the catalog entry for it. fileName is
// the book's FilePath (including any "archive.zip@" prefix).
func Parse(ra io.ReaderAt, size int64, fileName string) (catalog.Book, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return catalog.Book{}, &catalogerrors.ParseError{Path: fileName, Err: err}
	}

	opfPath, err := readContainer(zr)
	if err != nil {
		return catalog.Book{}, &catalogerrors.ParseError{Path: fileName, Err: err}
	}

	pkg, err := readPackage(zr, opfPath)
	if err != nil {
		return catalog.Book{}, &catalogerrors.ParseError{Path: fileName, Err: err}
	}
	meta := pkg.Metadata

	book := catalog.Book{
		ID:           bookid.FromPath(fileName),
		Title:        firstNonEmpty(meta.Titles),
		Annotation:   strings.TrimSpace(meta.Description),
		Language:     strings.TrimSpace(meta.Language),
		BookType:     catalog.EPUB,
		FilePath:     fileName,
		FileName:     fileName,
		AddedDate:    time.Now(),
		DocumentSize: size,
	}
	if book.Title == "" {
		book.Title = fileName
	}

	for _, c := range meta.Creators {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if strings.EqualFold(c.Role, "trl") {
			book.Translators = append(book.Translators, catalog.Author{Name: name})
		} else {
			book.Authors = append(book.Authors, catalog.Author{Name: name})
		}
	}
	if len(book.Authors) == 0 {
		book.Authors = []catalog.Author{{Name: "Unknown"}}
	}

	book.Genres = append(book.Genres, meta.Subjects...)

	if meta.Date != "" {
		if y := parseYearPrefix(meta.Date); y != 0 {
			book.BookDate = y
		}
		if t, err := time.Parse("2006-01-02", trimToDate(meta.Date)); err == nil {
			book.DocumentDate = t
		}
	}

	if name, index := calibreSeries(meta.Metas); name != "" {
		book.Sequences = append(book.Sequences, catalog.Sequence{Name: name, NumberInSequence: index})
	}

	book.HasCover = coverItem(zr, opfPath, pkg) != nil

	return book, nil
}

// ExtractCover returns the raw bytes and content-type of the EPUB's declared
// cover image, resolved the same way a reading app would: the manifest item
// flagged "cover-image", falling back to the legacy <meta name="cover"> id.
func ExtractCover(ra io.ReaderAt, size int64) ([]byte, string, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, "", err
	}
	opfPath, err := readContainer(zr)
	if err != nil {
		return nil, "", err
	}
	pkg, err := readPackage(zr, opfPath)
	if err != nil {
		return nil, "", err
	}

	item := coverItem(zr, opfPath, pkg)
	if item == nil {
		return nil, "", fmt.Errorf("epub: no cover present")
	}
	opfDir := dirOf(opfPath)
	f := findFile(zr, joinZipPath(opfDir, item.Href))
	if f == nil {
		return nil, "", fmt.Errorf("epub: cover item %q missing from archive", item.Href)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", err
	}
	return data, item.MediaType, nil
}

func readContainer(zr *zip.Reader) (string, error) {
	f := findFile(zr, "META-INF/container.xml")
	if f == nil {
		return "", fmt.Errorf("META-INF/container.xml not found")
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var c containerXML
	dec := xml.NewDecoder(rc)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&c); err != nil {
		return "", err
	}
	if c.Rootfile.FullPath == "" {
		return "", fmt.Errorf("no rootfile in container.xml")
	}
	return c.Rootfile.FullPath, nil
}

func readPackage(zr *zip.Reader, opfPath string) (opfPackage, error) {
	f := findFile(zr, opfPath)
	if f == nil {
		return opfPackage{}, fmt.Errorf("opf %q not found", opfPath)
	}
	rc, err := f.Open()
	if err != nil {
		return opfPackage{}, err
	}
	defer rc.Close()

	var pkg opfPackage
	dec := xml.NewDecoder(rc)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&pkg); err != nil {
		return opfPackage{}, err
	}
	return pkg, nil
}

func coverItem(zr *zip.Reader, opfPath string, pkg opfPackage) *opfItem {
	for i := range pkg.Manifest.Items {
		if strings.Contains(pkg.Manifest.Items[i].Properties, "cover-image") {
			return &pkg.Manifest.Items[i]
		}
	}

	coverID := ""
	for _, m := range pkg.Metadata.Metas {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			coverID = m.Content
			break
		}
	}
	if coverID == "" {
		return nil
	}
	for i := range pkg.Manifest.Items {
		if pkg.Manifest.Items[i].ID == coverID {
			return &pkg.Manifest.Items[i]
		}
	}
	return nil
}

// calibreSeries reads the two-tag convention Calibre writes into the OPF
// <meta> list: calibre:series and calibre:series_index.
func calibreSeries(metas []opfMeta) (name string, index int) {
	for _, m := range metas {
		switch {
		case strings.EqualFold(m.Name, "calibre:series"):
			name = strings.TrimSpace(m.Content)
		case strings.EqualFold(m.Name, "calibre:series_index"):
			if n, err := strconv.ParseFloat(strings.TrimSpace(m.Content), 64); err == nil {
				index = int(n)
			}
		}
	}
	return name, index
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseYearPrefix(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y < 1000 || y > 3000 {
		return 0
	}
	return y
}

func trimToDate(date string) string {
	date = strings.TrimSpace(date)
	if len(date) >= 10 {
		return date[:10]
	}
	return date
}

func dirOf(opfPath string) string {
	i := strings.LastIndexByte(opfPath, '/')
	if i < 0 {
		return ""
	}
	return opfPath[:i]
}

func joinZipPath(dir, href string) string {
	if dir == "" {
		return href
	}
	return dir + "/" + href
}
