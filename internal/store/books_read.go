package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tinyopds/tinyopds/internal/catalog"
)

type bookRow struct {
	ID           string
	Title        string
	Annotation   string
	Language     string
	BookDate     int
	DocumentDate int64
	AddedDate    int64
	DocVersion   float64
	BookType     int
	FilePath     string
	FileName     string
	DocumentSize int64
	HasCover     int

	AuthorsJSON string
	GenresJSON  string
	SeqJSON     string
}

type jsonAuthor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type jsonSequence struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

func (r bookRow) toBook() (catalog.Book, error) {
	b := catalog.Book{
		ID:           r.ID,
		Title:        r.Title,
		Annotation:   r.Annotation,
		Language:     r.Language,
		BookDate:     r.BookDate,
		DocumentDate: time.Unix(r.DocumentDate, 0).UTC(),
		AddedDate:    time.Unix(r.AddedDate, 0).UTC(),
		DocVersion:   r.DocVersion,
		BookType:     catalog.BookType(r.BookType),
		FilePath:     r.FilePath,
		FileName:     r.FileName,
		DocumentSize: r.DocumentSize,
		HasCover:     r.HasCover != 0,
	}

	var authors []jsonAuthor
	if r.AuthorsJSON != "" {
		if err := json.Unmarshal([]byte(r.AuthorsJSON), &authors); err != nil {
			return b, fmt.Errorf("decode authors for %q: %w", r.ID, err)
		}
	}
	for _, a := range authors {
		if a.Role == "translator" {
			b.Translators = append(b.Translators, catalog.Author{Name: a.Name})
		} else {
			b.Authors = append(b.Authors, catalog.Author{Name: a.Name})
		}
	}

	if r.GenresJSON != "" {
		if err := json.Unmarshal([]byte(r.GenresJSON), &b.Genres); err != nil {
			return b, fmt.Errorf("decode genres for %q: %w", r.ID, err)
		}
	}

	var seqs []jsonSequence
	if r.SeqJSON != "" {
		if err := json.Unmarshal([]byte(r.SeqJSON), &seqs); err != nil {
			return b, fmt.Errorf("decode sequences for %q: %w", r.ID, err)
		}
	}
	for _, s := range seqs {
		b.Sequences = append(b.Sequences, catalog.Sequence{Name: s.Name, NumberInSequence: s.Number})
	}
	return b, nil
}

// bookSelectColumns is the SELECT list shared by every book-returning query;
// joined collections ride along as JSON arrays, ordered by position.
const bookSelectColumns = `
    b.id, b.title, b.annotation, b.language, b.book_date, b.document_date,
    b.added_date, b.doc_version, b.book_type, b.file_path, b.file_name,
    b.document_size, b.has_cover,
    (SELECT json_group_array(json_object('name', a.name, 'role', ba.role))
       FROM book_authors ba JOIN authors a ON a.id = ba.author_id
       WHERE ba.book_id = b.id ORDER BY ba.role, ba.position) AS authors_json,
    (SELECT json_group_array(bg.genre_tag) FROM book_genres bg WHERE bg.book_id = b.id) AS genres_json,
    (SELECT json_group_array(json_object('name', sq.name, 'number', bs.number_in_sequence))
       FROM book_sequences bs JOIN sequences sq ON sq.id = bs.sequence_id
       WHERE bs.book_id = b.id) AS sequences_json`

// queryBooks runs a SELECT with clause appended after "FROM books b",
// e.g. "WHERE b.id = ?" or "JOIN ... WHERE ... ORDER BY ... LIMIT ? OFFSET ?".
func (s *Store) queryBooks(clause string, args ...any) ([]catalog.Book, error) {
	rows, err := s.reader.Query(`SELECT`+bookSelectColumns+` FROM books b `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []catalog.Book
	for rows.Next() {
		var r bookRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Annotation, &r.Language, &r.BookDate, &r.DocumentDate,
			&r.AddedDate, &r.DocVersion, &r.BookType, &r.FilePath, &r.FileName,
			&r.DocumentSize, &r.HasCover, &r.AuthorsJSON, &r.GenresJSON, &r.SeqJSON); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		b, err := r.toBook()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) countBooks(query string, args ...any) (int, error) {
	var n int
	err := s.reader.QueryRow(query, args...).Scan(&n)
	return n, err
}

// BookByID returns a single book, or nil with a nil error if absent.
func (s *Store) BookByID(id string) (*catalog.Book, error) {
	books, err := s.queryBooks(`WHERE b.id = ? LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

// AllBooks returns books ordered newest-first with pagination.
func (s *Store) AllBooks(offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`SELECT COUNT(*) FROM books`)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`ORDER BY b.added_date DESC, LOWER(b.title) LIMIT ? OFFSET ?`, limit, offset)
	return books, total, err
}

// NewBooks returns books added within the last sinceDays days, newest first.
func (s *Store) NewBooks(sinceDays, offset, limit int, byTitle bool) ([]catalog.Book, int, error) {
	cutoff := time.Now().AddDate(0, 0, -sinceDays).Unix()
	total, err := s.countBooks(`SELECT COUNT(*) FROM books WHERE added_date >= ?`, cutoff)
	if err != nil {
		return nil, 0, err
	}
	order := "b.added_date DESC"
	if byTitle {
		order = "LOWER(b.title) ASC"
	}
	books, err := s.queryBooks(`WHERE b.added_date >= ? ORDER BY `+order+` LIMIT ? OFFSET ?`, cutoff, limit, offset)
	return books, total, err
}

// BooksByAuthor returns the books credited to author (by canonical name).
func (s *Store) BooksByAuthor(author string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`
SELECT COUNT(DISTINCT ba.book_id) FROM book_authors ba
JOIN authors a ON a.id = ba.author_id WHERE a.name = ?`, author)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_authors ba ON ba.book_id = b.id
JOIN authors a ON a.id = ba.author_id
WHERE a.name = ?
ORDER BY LOWER(b.title) LIMIT ? OFFSET ?`, author, limit, offset)
	return books, total, err
}

// BooksByAuthorDate is the by-date author view (added_date desc).
func (s *Store) BooksByAuthorDate(author string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`
SELECT COUNT(DISTINCT ba.book_id) FROM book_authors ba
JOIN authors a ON a.id = ba.author_id WHERE a.name = ?`, author)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_authors ba ON ba.book_id = b.id
JOIN authors a ON a.id = ba.author_id
WHERE a.name = ?
ORDER BY b.added_date DESC LIMIT ? OFFSET ?`, author, limit, offset)
	return books, total, err
}

// BooksByAuthorNoSeries returns an author's books that belong to no sequence.
func (s *Store) BooksByAuthorNoSeries(author string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`
SELECT COUNT(DISTINCT ba.book_id) FROM book_authors ba
JOIN authors a ON a.id = ba.author_id
WHERE a.name = ? AND ba.book_id NOT IN (SELECT book_id FROM book_sequences)`, author)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_authors ba ON ba.book_id = b.id
JOIN authors a ON a.id = ba.author_id
WHERE a.name = ? AND b.id NOT IN (SELECT book_id FROM book_sequences)
ORDER BY LOWER(b.title) LIMIT ? OFFSET ?`, author, limit, offset)
	return books, total, err
}

// AuthorHasSeries reports whether the author has at least one book that
// belongs to a sequence, and at least one that doesn't; used by the
// author-details routing policy.
func (s *Store) AuthorHasSeries(author string) (hasSeries, hasNoSeries bool, err error) {
	err = s.reader.QueryRow(`
SELECT
  EXISTS(SELECT 1 FROM book_authors ba JOIN authors a ON a.id=ba.author_id
         JOIN book_sequences bs ON bs.book_id=ba.book_id WHERE a.name=?),
  EXISTS(SELECT 1 FROM book_authors ba JOIN authors a ON a.id=ba.author_id
         WHERE a.name=? AND ba.book_id NOT IN (SELECT book_id FROM book_sequences))`,
		author, author).Scan(&hasSeries, &hasNoSeries)
	return hasSeries, hasNoSeries, err
}

// BooksByAuthorSequence is the intersection view: one author's books within
// one named sequence.
func (s *Store) BooksByAuthorSequence(author, sequence string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`
SELECT COUNT(DISTINCT b.id) FROM books b
JOIN book_authors ba ON ba.book_id = b.id JOIN authors a ON a.id = ba.author_id
JOIN book_sequences bs ON bs.book_id = b.id JOIN sequences sq ON sq.id = bs.sequence_id
WHERE a.name = ? AND sq.name = ?`, author, sequence)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_authors ba ON ba.book_id = b.id JOIN authors a ON a.id = ba.author_id
JOIN book_sequences bs ON bs.book_id = b.id JOIN sequences sq ON sq.id = bs.sequence_id
WHERE a.name = ? AND sq.name = ?
ORDER BY bs.number_in_sequence LIMIT ? OFFSET ?`, author, sequence, limit, offset)
	return books, total, err
}

// BooksBySequence returns a named sequence's books ordered by position.
func (s *Store) BooksBySequence(name string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`
SELECT COUNT(*) FROM book_sequences bs JOIN sequences sq ON sq.id = bs.sequence_id WHERE sq.name = ?`, name)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_sequences bs ON bs.book_id = b.id
JOIN sequences sq ON sq.id = bs.sequence_id
WHERE sq.name = ?
ORDER BY bs.number_in_sequence LIMIT ? OFFSET ?`, name, limit, offset)
	return books, total, err
}

// BooksByGenre returns the books carrying genre tag.
func (s *Store) BooksByGenre(tag string, offset, limit int) ([]catalog.Book, int, error) {
	total, err := s.countBooks(`SELECT COUNT(*) FROM book_genres WHERE genre_tag = ?`, tag)
	if err != nil {
		return nil, 0, err
	}
	books, err := s.queryBooks(`
JOIN book_genres bg ON bg.book_id = b.id
WHERE bg.genre_tag = ?
ORDER BY LOWER(b.title) LIMIT ? OFFSET ?`, tag, limit, offset)
	return books, total, err
}

// BooksByIDs resolves a set of ids, used by title search to hydrate full
// records after an FTS5 pass returns only ids.
func (s *Store) BooksByIDs(ids []string) ([]catalog.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	clause := fmt.Sprintf("WHERE b.id IN (%s)", strings.Join(placeholders, ","))
	return s.queryBooks(clause, args...)
}
