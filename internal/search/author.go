// Package search implements the multi-stage author and title search engine:
// exact/partial substring matching, Cyrillic/Latin transliteration fallback,
// and Russian-Soundex phonetic matching for authors; FTS5 with a
// back-transliteration retry for titles. Every result set is sorted through
// the culture-aware comparator in internal/translit.
package search

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/translit"
)

// DB is the subset of *sql.DB the search engine needs; satisfied by a
// read-only connection pool handed in by the store.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// AuthorResult is one author match plus the stage that produced it.
type AuthorResult struct {
	Name   string
	Method catalog.SearchMethod
}

// AuthorSearcher runs the four-stage OpenSearch author lookup against the
// authors table (columns: name, name_soundex, name_translit).
type AuthorSearcher struct {
	db       DB
	collator translit.Collator
}

// NewAuthorSearcher builds an AuthorSearcher; cyrillicFirst selects the
// tiebreak direction used by the result comparator.
func NewAuthorSearcher(db DB, cyrillicFirst bool) *AuthorSearcher {
	return &AuthorSearcher{db: db, collator: translit.NewCollator(cyrillicFirst)}
}

// NavigationPrefix returns authors whose canonical name starts with prefix
// (case-insensitive), used to build the alphabet index. It never falls back
// to transliteration or soundex.
func (s *AuthorSearcher) NavigationPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM authors WHERE LOWER(name) LIKE ? ORDER BY LOWER(name)`,
		strings.ToLower(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

// OpenSearch runs the four ordered stages, stopping at the first stage that
// returns at least one name, and reports which stage fired.
func (s *AuthorSearcher) OpenSearch(ctx context.Context, query string) ([]AuthorResult, catalog.SearchMethod, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, catalog.MethodNone, nil
	}

	if names, err := s.exactMatch(ctx, q); err != nil {
		return nil, catalog.MethodNone, err
	} else if len(names) > 0 {
		return annotate(names, catalog.MethodExact), catalog.MethodExact, nil
	}

	if names, err := s.partialMatch(ctx, q); err != nil {
		return nil, catalog.MethodNone, err
	} else if len(names) > 0 {
		return annotate(names, catalog.MethodPartial), catalog.MethodPartial, nil
	}

	// q is already Latin for the common case (a reader typing a Western
	// spelling of a Cyrillic name); ToISO9 is then a no-op and we compare
	// q directly against the authors.name_translit column, which holds
	// each name's own ISO-9 transliteration. When q is itself Cyrillic
	// (an alias spelling that missed the exact/partial stages above),
	// ToISO9 converts it to the same Latin representation first.
	isoForm := strings.ToLower(translit.ToISO9(q))
	if names, err := s.exactMatchTranslit(ctx, isoForm); err != nil {
		return nil, catalog.MethodNone, err
	} else if len(names) > 0 {
		return annotate(names, catalog.MethodTransliteration), catalog.MethodTransliteration, nil
	}
	if names, err := s.partialMatchTranslit(ctx, isoForm); err != nil {
		return nil, catalog.MethodNone, err
	} else if len(names) > 0 {
		return annotate(names, catalog.MethodTransliteration), catalog.MethodTransliteration, nil
	}

	code := translit.Soundex(q)
	names, err := s.soundexMatch(ctx, code)
	if err != nil {
		return nil, catalog.MethodNone, err
	}
	if len(names) > 0 {
		return annotate(names, catalog.MethodSoundex), catalog.MethodSoundex, nil
	}
	return nil, catalog.MethodNone, nil
}

func (s *AuthorSearcher) exactMatch(ctx context.Context, q string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM authors WHERE LOWER(name) = ?`, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

func (s *AuthorSearcher) partialMatch(ctx context.Context, q string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM authors WHERE LOWER(name) LIKE ?`, "%"+q+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

func (s *AuthorSearcher) exactMatchTranslit(ctx context.Context, q string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM authors WHERE LOWER(name_translit) = ?`, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

func (s *AuthorSearcher) partialMatchTranslit(ctx context.Context, q string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM authors WHERE LOWER(name_translit) LIKE ?`, "%"+q+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

func (s *AuthorSearcher) soundexMatch(ctx context.Context, code string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM authors WHERE name_soundex = ?`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNames(rows, s.collator)
}

func scanNames(rows *sql.Rows, c translit.Collator) ([]string, error) {
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool { return c.Less(names[i], names[j]) })
	return names, nil
}

func annotate(names []string, m catalog.SearchMethod) []AuthorResult {
	out := make([]AuthorResult, len(names))
	for i, n := range names {
		out[i] = AuthorResult{Name: n, Method: m}
	}
	return out
}
