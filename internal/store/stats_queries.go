package store

import "strconv"

// StatCounts is the raw set of slow-moving counts the statistics cache
// memoizes with the long TTL.
type StatCounts struct {
	TotalBooks   int
	FB2Books     int
	EPUBBooks    int
	AuthorsCount int
	SeqCount     int
}

// Counts computes every slow-moving count, one COUNT query each.
func (s *Store) Counts() (StatCounts, error) {
	var c StatCounts
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&c.TotalBooks); err != nil {
		return c, err
	}
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM books WHERE book_type = 0`).Scan(&c.FB2Books); err != nil {
		return c, err
	}
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM books WHERE book_type = 1`).Scan(&c.EPUBBooks); err != nil {
		return c, err
	}
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM authors`).Scan(&c.AuthorsCount); err != nil {
		return c, err
	}
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM sequences`).Scan(&c.SeqCount); err != nil {
		return c, err
	}
	return c, nil
}

// NewBooksCount counts books added within the last sinceDays days; memoized
// separately with a short TTL since it changes far more often than the
// other counts.
func (s *Store) NewBooksCount(sinceDays int) (int, error) {
	var n int
	err := s.reader.QueryRow(
		`SELECT COUNT(*) FROM books WHERE added_date >= strftime('%s','now',?)`,
		"-"+strconv.Itoa(sinceDays)+" days").Scan(&n)
	return n, err
}
