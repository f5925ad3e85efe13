package store

import (
	"database/sql"

	"github.com/tinyopds/tinyopds/internal/catalog"
)

// FindByNormalizedTitleAuthor returns the existing book sharing the given
// normalized title and primary (first-listed) author name, if any. It is the
// second-strength duplicate-detection key the dedup package uses after an
// exact id match.
func (s *Store) FindByNormalizedTitleAuthor(normalizedTitle, primaryAuthor string) (*catalog.Book, error) {
	var id string
	err := s.reader.QueryRow(`
SELECT b.id FROM books b
JOIN book_authors ba ON ba.book_id = b.id AND ba.position = 0 AND ba.role = 'author'
JOIN authors a ON a.id = ba.author_id
WHERE b.title_normalized = ? AND a.name = ?
LIMIT 1`, normalizedTitle, primaryAuthor).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.BookByID(id)
}

// HasArchiveMember reports whether filePath (the composite
// "archive.zip@inner/path" form) is already present, used by the scanner to
// count skipped archive entries without re-parsing them.
func (s *Store) HasArchiveMember(filePath string) (bool, error) {
	var n int
	err := s.reader.QueryRow(`SELECT COUNT(*) FROM books WHERE file_path = ?`, filePath).Scan(&n)
	return n > 0, err
}

// BookIDByFilePath resolves the book id for an exact file_path match, used
// by the watcher to translate a filesystem delete event into a store
// deletion. Returns "" if no book carries that path.
func (s *Store) BookIDByFilePath(filePath string) (string, error) {
	var id string
	err := s.reader.QueryRow(`SELECT id FROM books WHERE file_path = ? LIMIT 1`, filePath).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}
