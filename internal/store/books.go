package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/translit"
)

// NormalizeTitle lowercases, trims, and collapses whitespace, the exact
// transform the duplicate detector and the store agree on for
// (normalizedTitle, primaryAuthor) matching.
func NormalizeTitle(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.Join(fields, " ")
}

// InsertBook writes a new book and all of its joined rows (authors,
// translators, genres, sequences) in a single transaction, then refreshes
// its books_fts entry. It does not check for duplicates; that is the
// dedup package's job.
func (s *Store) InsertBook(b catalog.Book) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.writeBookTx(tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceBook deletes oldID and inserts b in its place within one
// transaction, used by the duplicate detector's version-selection rule.
func (s *Store) ReplaceBook(oldID string, b catalog.Book) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteBookTx(tx, oldID); err != nil {
		return err
	}
	if err := s.writeBookTx(tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchOp is one scanner decision to apply inside a single transaction.
// ReplaceID is empty for a plain insert, or the existing book id to delete
// first when the duplicate detector chose ReplaceExisting.
type BatchOp struct {
	Book      catalog.Book
	ReplaceID string
}

// ApplyBatch commits up to a few hundred scanner decisions in one
// transaction, the batching the scanner uses to keep a full library import
// from taking one fsync per book.
func (s *Store) ApplyBatch(ops []BatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, op := range ops {
		if op.ReplaceID != "" {
			if err := deleteBookTx(tx, op.ReplaceID); err != nil {
				return err
			}
		}
		if err := s.writeBookTx(tx, op.Book); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteBook removes a book and its joined rows (cascade) plus its
// books_fts entry.
func (s *Store) DeleteBook(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteBookTx(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteBookTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM books_fts WHERE book_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM books WHERE id = ?`, id)
	return err
}

func (s *Store) writeBookTx(tx *sql.Tx, b catalog.Book) error {
	authors := b.Authors
	if len(authors) == 0 {
		authors = []catalog.Author{{Name: "Unknown"}}
	}

	_, err := tx.Exec(`
INSERT INTO books (id, title, title_normalized, annotation, language, book_date,
                    document_date, added_date, doc_version, book_type, file_path,
                    file_name, document_size, has_cover)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, NormalizeTitle(b.Title), b.Annotation, b.Language, b.BookDate,
		b.DocumentDate.Unix(), b.AddedDate.Unix(), b.DocVersion, int(b.BookType), b.FilePath,
		b.FileName, b.DocumentSize, boolToInt(b.HasCover))
	if err != nil {
		return fmt.Errorf("insert book %q: %w", b.ID, err)
	}

	for i, a := range authors {
		authorID, err := upsertAuthor(tx, a.Name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO book_authors (book_id, author_id, position, role) VALUES (?, ?, ?, 'author')`,
			b.ID, authorID, i); err != nil {
			return fmt.Errorf("link author %q: %w", a.Name, err)
		}
	}
	for i, t := range b.Translators {
		authorID, err := upsertAuthor(tx, t.Name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO book_authors (book_id, author_id, position, role) VALUES (?, ?, ?, 'translator')`,
			b.ID, authorID, i); err != nil {
			return fmt.Errorf("link translator %q: %w", t.Name, err)
		}
	}

	for _, g := range b.Genres {
		tag, err := s.normalizeGenreTag(tx, g)
		if err != nil {
			return err
		}
		if tag == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO book_genres (book_id, genre_tag) VALUES (?, ?)`, b.ID, tag); err != nil {
			return fmt.Errorf("link genre %q: %w", tag, err)
		}
	}

	for _, seq := range b.Sequences {
		seqID, err := upsertSequence(tx, seq.Name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO book_sequences (book_id, sequence_id, number_in_sequence) VALUES (?, ?, ?)`,
			b.ID, seqID, seq.NumberInSequence); err != nil {
			return fmt.Errorf("link sequence %q: %w", seq.Name, err)
		}
	}

	authorNames := make([]string, len(authors))
	for i, a := range authors {
		authorNames[i] = a.Name
	}
	if _, err := tx.Exec(`INSERT INTO books_fts (book_id, title, annotation, authors) VALUES (?, ?, ?, ?)`,
		b.ID, b.Title, b.Annotation, strings.Join(authorNames, " ")); err != nil {
		return fmt.Errorf("index book %q: %w", b.ID, err)
	}
	return nil
}

// upsertAuthor returns the id of the authors row for name, creating it (with
// its soundex/translit columns) if absent.
func upsertAuthor(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM authors WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.Exec(`INSERT INTO authors (name, name_soundex, name_translit) VALUES (?, ?, ?)`,
		name, translit.Soundex(name), translit.ToISO9(name))
	if err != nil {
		return 0, fmt.Errorf("insert author %q: %w", name, err)
	}
	return res.LastInsertId()
}

func upsertSequence(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM sequences WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.Exec(`INSERT INTO sequences (name, name_soundex) VALUES (?, ?)`, name, translit.Soundex(name))
	if err != nil {
		return 0, fmt.Errorf("insert sequence %q: %w", name, err)
	}
	return res.LastInsertId()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
