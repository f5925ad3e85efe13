// Package statscache memoizes the expensive COUNT/DISTINCT queries the
// store would otherwise run on every OPDS root-page or navigation-index
// request: total/per-format book counts, author and sequence counts, the
// "new books" count, and the sorted authors/sequences/genre lists.
//
// Two TTLs apply, per spec.md §4.8: 60 minutes for the slow-moving counts
// and lists, 5 minutes for "new books". Any write through the store
// invalidates every cached value; reads repopulate lazily. A single mutex
// guards all memoized fields, mirroring the store's single-writer
// discipline.
package statscache

import (
	"sync"
	"time"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/store"
)

const (
	slowTTL = 60 * time.Minute
	newTTL  = 5 * time.Minute
)

// Source is the subset of *store.Store the cache recomputes values from.
type Source interface {
	Counts() (store.StatCounts, error)
	NewBooksCount(sinceDays int) (int, error)
	Authors() ([]catalog.AuthorEntry, error)
	Sequences() ([]catalog.SequenceEntry, error)
	GenresWithBooks() ([]catalog.GenreWithBooks, error)
}

// StatCounts is re-exported so callers don't need to import internal/store
// just to read cached counts.
type StatCounts = store.StatCounts

type entry[T any] struct {
	value    T
	fetchedAt time.Time
}

func (e entry[T]) fresh(ttl time.Duration) bool {
	return !e.fetchedAt.IsZero() && time.Since(e.fetchedAt) < ttl
}

// Cache holds the memoized fields behind one mutex.
type Cache struct {
	src Source

	mu        sync.Mutex
	counts    entry[StatCounts]
	newBooks  entry[int]
	authors   entry[[]catalog.AuthorEntry]
	sequences entry[[]catalog.SequenceEntry]
	genres    entry[[]catalog.GenreWithBooks]

	newBooksPeriod int
}

// New builds a Cache backed by src. newBooksPeriod is the configured
// "recent" window in days (spec.md §6 newBooksPeriod).
func New(src Source, newBooksPeriod int) *Cache {
	return &Cache{src: src, newBooksPeriod: newBooksPeriod}
}

// Warm precomputes every memoized value via one pass, intended to run once
// at startup so the first request never pays the cold-cache cost.
func (c *Cache) Warm() error {
	if _, err := c.Counts(); err != nil {
		return err
	}
	if _, err := c.NewBooksCount(); err != nil {
		return err
	}
	if _, err := c.Authors(); err != nil {
		return err
	}
	if _, err := c.Sequences(); err != nil {
		return err
	}
	if _, err := c.GenresWithBooks(); err != nil {
		return err
	}
	return nil
}

// Invalidate drops every memoized value, forcing the next read to
// repopulate from the store. Called after any write through the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = entry[StatCounts]{}
	c.newBooks = entry[int]{}
	c.authors = entry[[]catalog.AuthorEntry]{}
	c.sequences = entry[[]catalog.SequenceEntry]{}
	c.genres = entry[[]catalog.GenreWithBooks]{}
}

// Counts returns the slow-moving counts, recomputing if the 60-minute TTL
// has elapsed.
func (c *Cache) Counts() (StatCounts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts.fresh(slowTTL) {
		return c.counts.value, nil
	}
	v, err := c.src.Counts()
	if err != nil {
		return StatCounts{}, err
	}
	c.counts = entry[StatCounts]{value: v, fetchedAt: time.Now()}
	return v, nil
}

// NewBooksCount returns the configured-period new-books count, recomputing
// if the 5-minute TTL has elapsed.
func (c *Cache) NewBooksCount() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.newBooks.fresh(newTTL) {
		return c.newBooks.value, nil
	}
	n, err := c.src.NewBooksCount(c.newBooksPeriod)
	if err != nil {
		return 0, err
	}
	c.newBooks = entry[int]{value: n, fetchedAt: time.Now()}
	return n, nil
}

// Authors returns the sorted authors list, recomputing on the slow TTL.
func (c *Cache) Authors() ([]catalog.AuthorEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authors.fresh(slowTTL) {
		return c.authors.value, nil
	}
	v, err := c.src.Authors()
	if err != nil {
		return nil, err
	}
	c.authors = entry[[]catalog.AuthorEntry]{value: v, fetchedAt: time.Now()}
	return v, nil
}

// Sequences returns the sorted sequences list, recomputing on the slow TTL.
func (c *Cache) Sequences() ([]catalog.SequenceEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sequences.fresh(slowTTL) {
		return c.sequences.value, nil
	}
	v, err := c.src.Sequences()
	if err != nil {
		return nil, err
	}
	c.sequences = entry[[]catalog.SequenceEntry]{value: v, fetchedAt: time.Now()}
	return v, nil
}

// GenresWithBooks returns the genres-with-books list, recomputing on the
// slow TTL.
func (c *Cache) GenresWithBooks() ([]catalog.GenreWithBooks, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genres.fresh(slowTTL) {
		return c.genres.value, nil
	}
	v, err := c.src.GenresWithBooks()
	if err != nil {
		return nil, err
	}
	c.genres = entry[[]catalog.GenreWithBooks]{value: v, fetchedAt: time.Now()}
	return v, nil
}
