package store

import (
	"bufio"
	"compress/gzip"
	"embed"
	"strings"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/translit"
)

//go:embed genres.tsv.gz
var embeddedGenres embed.FS

type genreDef struct {
	tag, englishName, translation, parentTag string
}

func loadGenreTable() ([]genreDef, error) {
	f, err := embeddedGenres.Open("genres.tsv.gz")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var defs []genreDef
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			continue
		}
		defs = append(defs, genreDef{tag: parts[0], englishName: parts[1], translation: parts[2], parentTag: parts[3]})
	}
	return defs, sc.Err()
}

// seedGenres loads the fixed FB2 taxonomy into the genres table, ignoring
// rows that already exist (the taxonomy is immutable across restarts).
func (s *Store) seedGenres() error {
	defs, err := loadGenreTable()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO genres (tag, english_name, translation, parent_tag) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range defs {
		if _, err := stmt.Exec(d.tag, d.englishName, d.translation, d.parentTag); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// normalizeGenreTag validates a raw genre tag from a parsed book against the
// taxonomy: an exact match passes through; otherwise the tag closest by
// Russian-Soundex among known tags is substituted; failing both, the tag is
// preserved verbatim (and implicitly added as its own genres row so the
// book_genres foreign key is satisfiable).
func (s *Store) normalizeGenreTag(tx execer, tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM genres WHERE tag = ?`, tag).Scan(&exists); err != nil {
		return "", err
	}
	if exists > 0 {
		return tag, nil
	}

	code := translit.Soundex(tag)
	var closest string
	rows, err := tx.Query(`SELECT tag FROM genres`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			return "", err
		}
		if translit.Soundex(candidate) == code {
			closest = candidate
			break
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if closest != "" {
		return closest, nil
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO genres (tag, english_name, translation, parent_tag) VALUES (?, '', '', '')`, tag); err != nil {
		return "", err
	}
	return tag, nil
}

// GenresWithBooks returns the taxonomy entries that have at least one book,
// grouped by parent for the two-level /genres navigation.
func (s *Store) GenresWithBooks() ([]catalog.GenreWithBooks, error) {
	rows, err := s.reader.Query(`
SELECT g.tag, g.english_name, g.translation, g.parent_tag, COUNT(bg.book_id) AS cnt
FROM genres g
JOIN book_genres bg ON bg.genre_tag = g.tag
GROUP BY g.tag
HAVING cnt > 0
ORDER BY g.parent_tag, g.english_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.GenreWithBooks
	for rows.Next() {
		var g catalog.GenreWithBooks
		if err := rows.Scan(&g.Tag, &g.EnglishName, &g.Translation, &g.ParentTag, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
