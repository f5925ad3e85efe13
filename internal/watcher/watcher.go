// Package watcher implements the long-running filesystem watcher (spec.md
// §4.7): a recursive fsnotify watch on the library root, routed into two
// queues (added/deleted) that a dedicated drain loop processes with the
// cancel-if-deleted-before-processed and busy-file re-queue rules.
package watcher

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tinyopds/tinyopds/internal/alias"
	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
	"github.com/tinyopds/tinyopds/internal/dedup"
	"github.com/tinyopds/tinyopds/internal/logging"
	"github.com/tinyopds/tinyopds/internal/parser/epub"
	"github.com/tinyopds/tinyopds/internal/parser/fb2"
)

// idleSleep is how long the drain loop waits between passes when both
// queues are empty, matching spec.md's "sleeps ~100ms when idle".
const idleSleep = 100 * time.Millisecond

// busyRetryDelay is how long a busy file waits before being re-queued.
const busyRetryDelay = 250 * time.Millisecond

// Store is the subset of *store.Store the watcher needs.
type Store interface {
	dedup.Lookup
	InsertBook(b catalog.Book) error
	ReplaceBook(oldID string, b catalog.Book) error
	DeleteBook(id string) error
	BookIDByFilePath(filePath string) (string, error)
}

// Event reports one processed filesystem change, for an optional observer
// (e.g. a stats invalidation hook or a log line).
type Event struct {
	Path    string
	Added   bool
	Deleted bool
	Err     error
}

// Watcher watches one library root recursively.
type Watcher struct {
	root    string
	store   Store
	aliases *alias.Resolver
	log     *logging.Logger
	observe func(Event)

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	added   []queuedPath
	deleted map[string]struct{}
}

type queuedPath struct {
	path    string
	readyAt time.Time
}

// New creates a Watcher rooted at libraryPath. observe may be nil.
func New(libraryPath string, st Store, aliases *alias.Resolver, log *logging.Logger, observe func(Event)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &catalogerrors.IOError{Path: libraryPath, Err: err}
	}
	if observe == nil {
		observe = func(Event) {}
	}
	w := &Watcher{
		root:    libraryPath,
		store:   st,
		aliases: aliases,
		log:     log,
		observe: observe,
		fsw:     fsw,
		deleted: make(map[string]struct{}),
	}
	if err := w.watchTree(libraryPath); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// watchTree recursively adds every directory under root to the fsnotify
// watch list; fsnotify only watches one directory level per Add call.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.fsw.Add(path); addErr != nil && w.log != nil {
				w.log.Warningf("watcher: cannot watch %s: %v", path, addErr)
			}
		}
		return nil
	})
}

// Run blocks, dispatching fsnotify events into the two queues and running
// the drain loop, until ctx is canceled. Cancellation is cooperative: the
// drain loop checks ctx between items, matching the scanner's "stop
// requested" convention.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	go w.eventLoop(ctx)

	ticker := time.NewTicker(idleSleep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warningf("watcher: fsnotify error: %v", err)
			}
		}
	}
}

func (w *Watcher) handleFsEvent(ev fsnotify.Event) {
	if !isCandidate(ev.Name) {
		// New directories still need watching so nested additions surface.
		if ev.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.watchTree(ev.Name)
			}
		}
		return
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&fsnotify.Remove != 0:
		w.enqueueDeleted(rel)
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports a Rename on the old name; the corresponding
		// Create for the new name arrives as a separate event.
		w.enqueueDeleted(rel)
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.enqueueAdded(rel)
	}
}

func isCandidate(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fb2", ".epub", ".zip":
		return true
	default:
		return false
	}
}

// enqueueAdded adds path to the added queue, canceling a pending deletion
// of the same path if one is queued (the delete arrived first, e.g. from a
// rename, and the add supersedes it).
func (w *Watcher) enqueueAdded(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.deleted, path)
	for _, q := range w.added {
		if q.path == path {
			return
		}
	}
	w.added = append(w.added, queuedPath{path: path})
}

// enqueueDeleted marks path deleted; if it's still sitting unprocessed in
// the added queue, both entries are cancelled (the file never makes it to
// the store either way, per spec.md §4.7).
func (w *Watcher) enqueueDeleted(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.added[:0]
	wasQueued := false
	for _, q := range w.added {
		if q.path == path {
			wasQueued = true
			continue
		}
		kept = append(kept, q)
	}
	w.added = kept
	if wasQueued {
		return
	}
	w.deleted[path] = struct{}{}
}

// drainOnce processes the deleted queue in full, then up to one pass of the
// added queue, re-queuing any file still busy.
func (w *Watcher) drainOnce(ctx context.Context) {
	w.mu.Lock()
	toDelete := make([]string, 0, len(w.deleted))
	for p := range w.deleted {
		toDelete = append(toDelete, p)
	}
	w.deleted = make(map[string]struct{})
	w.mu.Unlock()

	for _, rel := range toDelete {
		if ctx.Err() != nil {
			return
		}
		w.processDelete(rel)
	}

	w.mu.Lock()
	pending := w.added
	w.added = nil
	w.mu.Unlock()

	now := time.Now()
	var retry []queuedPath
	for _, q := range pending {
		if ctx.Err() != nil {
			retry = append(retry, q)
			continue
		}
		if now.Before(q.readyAt) {
			retry = append(retry, q)
			continue
		}
		if isFileBusy(filepath.Join(w.root, q.path)) {
			retry = append(retry, queuedPath{path: q.path, readyAt: now.Add(busyRetryDelay)})
			continue
		}
		w.processAdded(q.path)
	}
	if len(retry) > 0 {
		w.mu.Lock()
		w.added = append(retry, w.added...)
		w.mu.Unlock()
	}
}

// isFileBusy probes whether path is still being written to with a stability
// check: the file is stat'ed twice 20ms apart and considered busy if its
// size or modification time changed, or if either stat fails.
func isFileBusy(path string) bool {
	info1, err := os.Stat(path)
	if err != nil {
		return true
	}
	time.Sleep(20 * time.Millisecond)
	info2, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info1.Size() != info2.Size() || info1.ModTime() != info2.ModTime()
}

func (w *Watcher) processDelete(rel string) {
	ext := strings.ToLower(filepath.Ext(rel))
	if ext == ".zip" {
		// Archive removal: every book whose composite path starts with
		// "rel@" is gone too. The watcher removes none of them; the
		// scanner's "remove missing files" sweep handles that case.
		return
	}
	id, err := w.store.BookIDByFilePath(rel)
	if err != nil || id == "" {
		return
	}
	if err := w.store.DeleteBook(id); err != nil && w.log != nil {
		w.log.Warningf("watcher: delete %s: %v", rel, err)
	}
	w.observe(Event{Path: rel, Deleted: true})
}

func (w *Watcher) processAdded(rel string) {
	ext := strings.ToLower(filepath.Ext(rel))
	var book catalog.Book
	var err error

	switch ext {
	case ".fb2":
		f, openErr := os.Open(filepath.Join(w.root, rel))
		if openErr != nil {
			w.observe(Event{Path: rel, Added: true, Err: openErr})
			return
		}
		defer f.Close()
		book, err = fb2.Parse(f, rel)
	case ".epub":
		f, openErr := os.Open(filepath.Join(w.root, rel))
		if openErr != nil {
			w.observe(Event{Path: rel, Added: true, Err: openErr})
			return
		}
		defer f.Close()
		info, statErr := f.Stat()
		if statErr != nil {
			w.observe(Event{Path: rel, Added: true, Err: statErr})
			return
		}
		book, err = epub.Parse(f, info.Size(), rel)
	case ".zip":
		w.processAddedArchive(rel)
		return
	default:
		return
	}

	if err != nil {
		w.observe(Event{Path: rel, Added: true, Err: err})
		return
	}
	w.commitParsed(rel, book)
}

func (w *Watcher) processAddedArchive(rel string) {
	zr, err := zip.OpenReader(filepath.Join(w.root, rel))
	if err != nil {
		w.observe(Event{Path: rel, Added: true, Err: err})
		return
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".fb2" && ext != ".epub" {
			continue
		}
		composite := rel + "@" + f.Name
		if present, _ := w.store.HasArchiveMember(composite); present {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			continue
		}
		var book catalog.Book
		var parseErr error
		switch ext {
		case ".fb2":
			book, parseErr = fb2.Parse(rc, composite)
		case ".epub":
			// epub.Parse needs an io.ReaderAt; archive members inside a
			// watcher-triggered zip are small enough to buffer.
			data, readErr := io.ReadAll(rc)
			if readErr != nil {
				rc.Close()
				continue
			}
			book, parseErr = epub.Parse(bytes.NewReader(data), int64(len(data)), composite)
		}
		rc.Close()
		if parseErr != nil {
			w.observe(Event{Path: composite, Added: true, Err: parseErr})
			continue
		}
		w.commitParsed(composite, book)
	}
}

func (w *Watcher) commitParsed(rel string, book catalog.Book) {
	if len(book.Authors) > 0 {
		names := make([]string, len(book.Authors))
		for i, a := range book.Authors {
			names[i] = a.Name
		}
		resolved := w.aliases.ResolveBookAuthors(names)
		for i := range book.Authors {
			book.Authors[i].Name = resolved[i]
		}
	}

	verdict, err := dedup.Decide(w.store, book)
	if err != nil {
		w.observe(Event{Path: rel, Added: true, Err: err})
		return
	}
	switch verdict.Decision {
	case catalog.Reject:
		w.observe(Event{Path: rel, Added: true})
		return
	case catalog.ReplaceExisting:
		err = w.store.ReplaceBook(verdict.ExistingID, book)
	default:
		err = w.store.InsertBook(book)
	}
	if err != nil {
		w.observe(Event{Path: rel, Added: true, Err: err})
		return
	}
	w.observe(Event{Path: rel, Added: true})
}
