package store

import "github.com/tinyopds/tinyopds/internal/catalog"

// Authors returns every canonical author name with its book count, used to
// build the alphabet index and alphabetical listings.
func (s *Store) Authors() ([]catalog.AuthorEntry, error) {
	rows, err := s.reader.Query(`
SELECT a.name, COUNT(DISTINCT ba.book_id) AS cnt
FROM authors a JOIN book_authors ba ON ba.author_id = a.id AND ba.role = 'author'
GROUP BY a.id
ORDER BY LOWER(a.name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.AuthorEntry
	for rows.Next() {
		var e catalog.AuthorEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AuthorsByPrefix returns authors whose canonical name starts with prefix
// (case-insensitive), with book counts, for one level of the alphabet
// navigation.
func (s *Store) AuthorsByPrefix(prefix string) ([]catalog.AuthorEntry, error) {
	rows, err := s.reader.Query(`
SELECT a.name, COUNT(DISTINCT ba.book_id) AS cnt
FROM authors a JOIN book_authors ba ON ba.author_id = a.id AND ba.role = 'author'
WHERE LOWER(a.name) LIKE ?
GROUP BY a.id
ORDER BY LOWER(a.name)`, sqlLowerPrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.AuthorEntry
	for rows.Next() {
		var e catalog.AuthorEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func sqlLowerPrefix(prefix string) string {
	lower := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		lower = append(lower, c)
	}
	return string(lower) + "%"
}

// Sequences returns every named sequence with its book count.
func (s *Store) Sequences() ([]catalog.SequenceEntry, error) {
	rows, err := s.reader.Query(`
SELECT sq.name, COUNT(bs.book_id) AS cnt
FROM sequences sq JOIN book_sequences bs ON bs.sequence_id = sq.id
GROUP BY sq.id
ORDER BY LOWER(sq.name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.SequenceEntry
	for rows.Next() {
		var e catalog.SequenceEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SequencesByPrefix mirrors AuthorsByPrefix for the sequences index.
func (s *Store) SequencesByPrefix(prefix string) ([]catalog.SequenceEntry, error) {
	rows, err := s.reader.Query(`
SELECT sq.name, COUNT(bs.book_id) AS cnt
FROM sequences sq JOIN book_sequences bs ON bs.sequence_id = sq.id
WHERE LOWER(sq.name) LIKE ?
GROUP BY sq.id
ORDER BY LOWER(sq.name)`, sqlLowerPrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.SequenceEntry
	for rows.Next() {
		var e catalog.SequenceEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
