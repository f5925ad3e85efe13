package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/tinyopds/tinyopds/internal/translit"
)

// TitleResult is one title match plus the book id it belongs to.
type TitleResult struct {
	BookID string
	Title  string
}

// titleRank orders FTS5 hits the way OpenSearch title search requires:
// exact match, then prefix match, then word-boundary match, then plain
// contains.
const (
	rankExact = iota
	rankPrefix
	rankWordBoundary
	rankContains
)

// TitleSearcher runs the title half of OpenSearch: an FTS5 MATCH query
// against books_fts, retried against the GOST back-transliterated query
// term when the first pass is empty.
type TitleSearcher struct {
	db       DB
	collator translit.Collator
}

// NewTitleSearcher builds a TitleSearcher; cyrillicFirst selects the
// tiebreak direction used when two results rank equally.
func NewTitleSearcher(db DB, cyrillicFirst bool) *TitleSearcher {
	return &TitleSearcher{db: db, collator: translit.NewCollator(cyrillicFirst)}
}

// NavigationPrefix returns (bookID, title) pairs whose title starts with
// prefix, used by prefix-driven navigation views.
func (s *TitleSearcher) NavigationPrefix(ctx context.Context, prefix string) ([]TitleResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title FROM books WHERE LOWER(title) LIKE ? ORDER BY LOWER(title)`,
		strings.ToLower(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTitles(rows)
}

// OpenSearch runs an FTS5 MATCH query over books_fts; if it comes back
// empty, it retries once against the GOST back-transliterated form of the
// query (so a Latin-typed query can still hit Cyrillic titles). Results are
// ordered by match quality, then by the culture-aware comparator.
func (s *TitleSearcher) OpenSearch(ctx context.Context, query string) ([]TitleResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	results, err := s.matchQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	back := translit.BackGOST(q)
	if back == q {
		return nil, nil
	}
	return s.matchQuery(ctx, back)
}

func (s *TitleSearcher) matchQuery(ctx context.Context, q string) ([]TitleResult, error) {
	matchExpr := ftsMatchExpr(q)
	if matchExpr == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT b.id, b.title
FROM books_fts f
JOIN books b ON b.id = f.book_id
WHERE books_fts MATCH ?
ORDER BY bm25(books_fts)`, matchExpr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits, err := scanTitles(rows)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lowerQ := strings.ToLower(q)
	rank := func(title string) int {
		lt := strings.ToLower(title)
		switch {
		case lt == lowerQ:
			return rankExact
		case strings.HasPrefix(lt, lowerQ):
			return rankPrefix
		case wordBoundaryMatch(lt, lowerQ):
			return rankWordBoundary
		default:
			return rankContains
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		ri, rj := rank(hits[i].Title), rank(hits[j].Title)
		if ri != rj {
			return ri < rj
		}
		return s.collator.Less(hits[i].Title, hits[j].Title)
	})
	return hits, nil
}

// ftsMatchExpr quotes each token of q so punctuation in titles never trips
// FTS5's query-syntax parser, and joins them with the implicit AND.
func ftsMatchExpr(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return strings.Join(quoted, " ")
}

func wordBoundaryMatch(title, q string) bool {
	for _, word := range strings.Fields(title) {
		if word == q || strings.HasPrefix(word, q) {
			return true
		}
	}
	return false
}

func scanTitles(rows *sql.Rows) ([]TitleResult, error) {
	var out []TitleResult
	for rows.Next() {
		var r TitleResult
		if err := rows.Scan(&r.BookID, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
