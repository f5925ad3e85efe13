// Package scanner walks a library tree, parses every FB2/EPUB file found
// (including ones packed inside .zip archives), and applies the duplicate
// detector's verdict before committing each book to the store in batches.
package scanner

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyopds/tinyopds/internal/alias"
	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
	"github.com/tinyopds/tinyopds/internal/dedup"
	"github.com/tinyopds/tinyopds/internal/logging"
	"github.com/tinyopds/tinyopds/internal/parser/epub"
	"github.com/tinyopds/tinyopds/internal/parser/fb2"
	"github.com/tinyopds/tinyopds/internal/store"
)

// batchSize is the number of decided books accumulated before one
// transaction is committed, keeping a full library import from paying one
// fsync per book.
const batchSize = 500

// parseConcurrency bounds how many files are parsed in parallel; XML/ZIP
// parsing is CPU-bound enough that unbounded fan-out just thrashes.
const parseConcurrency = 8

// Store is the subset of *store.Store the scanner needs: the dedup lookup,
// the batch writer, and enough read/delete surface for the operator-invoked
// "remove missing files" sweep (spec.md §3 lifecycle).
type Store interface {
	dedup.Lookup
	ApplyBatch(ops []store.BatchOp) error
	AllBooks(offset, limit int) ([]catalog.Book, int, error)
	DeleteBook(id string) error
}

// Progress is emitted periodically during a scan so a UI (or log line) can
// show throughput.
type Progress struct {
	Found      int
	Skipped    int
	Invalid    int
	Duplicates int
	Elapsed    time.Duration
	RatePerSec float64
}

// ProgressReporter receives a Progress snapshot after each batch flush.
type ProgressReporter func(Progress)

// Scanner walks one library root.
type Scanner struct {
	root    string
	store   Store
	aliases *alias.Resolver
	log     *logging.Logger
	report  ProgressReporter
}

// New creates a Scanner rooted at libraryPath. report may be nil.
func New(libraryPath string, st Store, aliases *alias.Resolver, log *logging.Logger, report ProgressReporter) *Scanner {
	if report == nil {
		report = func(Progress) {}
	}
	return &Scanner{root: libraryPath, store: st, aliases: aliases, log: log, report: report}
}

// parsedFile is one candidate book plus the accounting bucket it belongs to
// if parsing failed.
type parsedFile struct {
	book    catalog.Book
	invalid bool
	skipped bool
	path    string
	err     error
}

// Scan walks the library root, parses every supported file, and applies the
// duplicate-detector decision for each, batching commits in groups of
// batchSize. It returns the final Progress and stops early (without error)
// if ctx is canceled.
func (s *Scanner) Scan(ctx context.Context) (Progress, error) {
	start := time.Now()
	var p Progress

	paths := make(chan string, parseConcurrency*4)
	results := make(chan parsedFile, parseConcurrency*4)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(parseConcurrency)

	walkDone := make(chan error, 1)
	go func() {
		walkDone <- s.walk(ctx, paths)
	}()

	go func() {
		for path := range paths {
			path := path
			group.Go(func() error {
				results <- s.parseOne(gctx, path)
				return nil
			})
		}
		group.Wait()
		close(results)
	}()

	batch := make([]store.BatchOp, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.ApplyBatch(batch); err != nil {
			return &catalogerrors.StoreError{Op: "ApplyBatch", Err: err}
		}
		batch = batch[:0]
		p.Elapsed = time.Since(start)
		if p.Elapsed > 0 {
			p.RatePerSec = float64(p.Found) / p.Elapsed.Seconds()
		}
		s.report(p)
		return nil
	}

	for r := range results {
		if ctx.Err() != nil {
			continue
		}
		if r.skipped {
			p.Skipped++
			continue
		}
		if r.invalid {
			p.Invalid++
			if s.log != nil {
				s.log.Warningf("scanner: skipping %s: %v", r.path, r.err)
			}
			continue
		}

		verdict, err := dedup.Decide(s.store, r.book)
		if err != nil {
			p.Invalid++
			if s.log != nil {
				s.log.Warningf("scanner: dedup lookup failed for %s: %v", r.path, err)
			}
			continue
		}
		switch verdict.Decision {
		case catalog.Reject:
			p.Duplicates++
			continue
		case catalog.ReplaceExisting:
			batch = append(batch, store.BatchOp{Book: r.book, ReplaceID: verdict.ExistingID})
		default:
			batch = append(batch, store.BatchOp{Book: r.book})
		}
		p.Found++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return p, err
			}
		}
	}

	if err := flush(); err != nil {
		return p, err
	}
	if err := <-walkDone; err != nil {
		return p, err
	}
	p.Elapsed = time.Since(start)
	return p, nil
}

// walk emits every candidate path (including "archive.zip@inner/path"
// composites for ZIP members) on paths, then closes it.
func (s *Scanner) walk(ctx context.Context, paths chan<- string) error {
	defer close(paths)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // unreadable entry: skip, don't abort the walk
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		switch strings.ToLower(filepath.Ext(path)) {
		case ".fb2", ".epub":
			select {
			case paths <- rel:
			case <-ctx.Done():
				return ctx.Err()
			}
		case ".zip":
			if zerr := s.walkArchive(ctx, path, rel, paths); zerr != nil && s.log != nil {
				s.log.Warningf("scanner: reading archive %s: %v", rel, zerr)
			}
		}
		return nil
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func (s *Scanner) walkArchive(ctx context.Context, fullPath, rel string, paths chan<- string) error {
	zr, err := zip.OpenReader(fullPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".fb2", ".epub":
			select {
			case paths <- rel + "@" + f.Name:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// parseOne dispatches a single candidate (plain file or "archive@member")
// to the matching format parser.
func (s *Scanner) parseOne(ctx context.Context, compositePath string) parsedFile {
	if ctx.Err() != nil {
		return parsedFile{path: compositePath, invalid: true, err: ctx.Err()}
	}

	archive, inner, isArchived := splitComposite(compositePath)
	ext := strings.ToLower(filepath.Ext(inner))
	if !isArchived {
		ext = strings.ToLower(filepath.Ext(compositePath))
	}

	if isArchived {
		// A composite path already present in the store means this exact
		// archive member was ingested by a prior scan; skip it without
		// re-parsing, the spec's §4.6 skipped-file accounting.
		if present, err := s.store.HasArchiveMember(compositePath); err == nil && present {
			return parsedFile{path: compositePath, skipped: true}
		}
	}

	book, err := s.parseFile(archive, inner, isArchived, ext, compositePath)
	if err != nil {
		return parsedFile{path: compositePath, invalid: true, err: err}
	}

	if len(book.Authors) > 0 {
		names := make([]string, len(book.Authors))
		for i, a := range book.Authors {
			names[i] = a.Name
		}
		resolved := s.aliases.ResolveBookAuthors(names)
		for i := range book.Authors {
			book.Authors[i].Name = resolved[i]
		}
	}

	return parsedFile{book: book, path: compositePath}
}

func (s *Scanner) parseFile(archive, inner string, isArchived bool, ext, compositePath string) (catalog.Book, error) {
	if isArchived {
		zr, err := zip.OpenReader(filepath.Join(s.root, archive))
		if err != nil {
			return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
		}
		defer zr.Close()

		for _, f := range zr.File {
			if f.Name != inner {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
			}
			defer rc.Close()

			switch ext {
			case ".fb2":
				return fb2.Parse(rc, compositePath)
			case ".epub":
				data, err := io.ReadAll(rc)
				if err != nil {
					return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
				}
				return epub.Parse(bytes.NewReader(data), int64(len(data)), compositePath)
			}
		}
		return catalog.Book{}, &catalogerrors.NotFound{Kind: "archive member", ID: inner}
	}

	fullPath := filepath.Join(s.root, compositePath)
	switch ext {
	case ".fb2":
		f, err := os.Open(fullPath)
		if err != nil {
			return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
		}
		defer f.Close()
		return fb2.Parse(f, compositePath)
	case ".epub":
		f, err := os.Open(fullPath)
		if err != nil {
			return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return catalog.Book{}, &catalogerrors.IOError{Path: compositePath, Err: err}
		}
		return epub.Parse(f, info.Size(), compositePath)
	default:
		return catalog.Book{}, fmt.Errorf("scanner: unsupported extension %q", ext)
	}
}

// RemoveMissingFiles sweeps the store for books whose underlying file (or,
// for archived books, archive member) no longer exists on disk and deletes
// them. It is the operator-invoked maintenance operation spec.md §3 names
// alongside the watcher's delete path as the only two ways a book is
// destroyed; unlike a scan, it never touches the filesystem for discovery,
// only for existence checks, and is cooperative-cancellable like Scan.
func (s *Scanner) RemoveMissingFiles(ctx context.Context) (int, error) {
	removed := 0
	zipCache := map[string]*zip.ReadCloser{}
	defer func() {
		for _, zr := range zipCache {
			zr.Close()
		}
	}()

	offset := 0
	for {
		if ctx.Err() != nil {
			return removed, nil
		}
		books, total, err := s.store.AllBooks(offset, batchSize)
		if err != nil {
			return removed, &catalogerrors.StoreError{Op: "AllBooks", Err: err}
		}
		if len(books) == 0 {
			break
		}

		for _, b := range books {
			if ctx.Err() != nil {
				return removed, nil
			}
			if s.fileMissing(b, zipCache) {
				if err := s.store.DeleteBook(b.ID); err != nil {
					if s.log != nil {
						s.log.Errorf("scanner: removing missing book %s: %v", b.ID, err)
					}
					continue
				}
				removed++
			}
		}

		offset += len(books)
		if offset >= total {
			break
		}
	}
	return removed, nil
}

// fileMissing reports whether b's backing file (or archive member) is gone.
// Archive readers are cached in zipCache across calls within one sweep so a
// heavily-archived library doesn't reopen the same .zip per book.
func (s *Scanner) fileMissing(b catalog.Book, zipCache map[string]*zip.ReadCloser) bool {
	archive, inner, isArchived := b.ArchivePath()
	if !isArchived {
		_, err := os.Stat(filepath.Join(s.root, b.FilePath))
		return os.IsNotExist(err)
	}

	zr, ok := zipCache[archive]
	if !ok {
		opened, err := zip.OpenReader(filepath.Join(s.root, archive))
		if err != nil {
			zipCache[archive] = nil
			return true
		}
		zipCache[archive] = opened
		zr = opened
	}
	if zr == nil {
		return true
	}
	for _, f := range zr.File {
		if f.Name == inner {
			return false
		}
	}
	return true
}

func splitComposite(path string) (archive, inner string, ok bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '@' {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}
