package store

import (
	"time"

	"github.com/tinyopds/tinyopds/internal/catalog"
)

// RecordDownload writes one downloads row, serialized with book mutations
// under the same writer lock.
func (s *Store) RecordDownload(ev catalog.DownloadEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.writer.Exec(`INSERT INTO downloads (book_id, client_fingerprint, ts) VALUES (?, ?, ?)`,
		ev.BookID, ev.ClientFingerprint, ev.Timestamp.Unix())
	return err
}

// DownloadedBook pairs a book with the most recent time any client fetched it.
type DownloadedBook struct {
	Book   catalog.Book
	LastAt time.Time
}

// UniqueDownloadsByDate returns the unique-downloads view (one row per book,
// collapsed by max(ts)) ordered newest-first.
func (s *Store) UniqueDownloadsByDate(offset, limit int) ([]DownloadedBook, int, error) {
	return s.uniqueDownloads("d.last_ts DESC", offset, limit)
}

// UniqueDownloadsByTitle is the same view ordered alphabetically.
func (s *Store) UniqueDownloadsByTitle(offset, limit int) ([]DownloadedBook, int, error) {
	return s.uniqueDownloads("LOWER(b.title) ASC", offset, limit)
}

func (s *Store) uniqueDownloads(order string, offset, limit int) ([]DownloadedBook, int, error) {
	var total int
	if err := s.reader.QueryRow(`SELECT COUNT(DISTINCT book_id) FROM downloads`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.reader.Query(`
SELECT d.book_id, d.last_ts FROM (
    SELECT book_id, MAX(ts) AS last_ts FROM downloads GROUP BY book_id
) d
JOIN books b ON b.id = d.book_id
ORDER BY `+order+`
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	type hit struct {
		id     string
		lastAt int64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.lastAt); err != nil {
			return nil, 0, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	out := make([]DownloadedBook, 0, len(hits))
	for _, h := range hits {
		b, err := s.BookByID(h.id)
		if err != nil || b == nil {
			continue
		}
		out = append(out, DownloadedBook{Book: *b, LastAt: time.Unix(h.lastAt, 0).UTC()})
	}
	return out, total, nil
}
