// Package translit implements the two fixed Cyrillic transliteration tables
// TinyOPDS needs (GOST 16876-71 for reversible back-translation, ISO-9 for
// search-key generation), the Russian-Soundex phonetic code, and the
// culture-aware comparator used to sort and deduplicate search results.
package translit

import "sort"

// gost maps each Cyrillic letter to its GOST 16876-71 Latin transliteration.
// The table is built so that back-translation (Latin → Cyrillic) can be
// greedy longest-match over 3→2→1 character windows.
var gost = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "''", 'ы': "y", 'ь': "'", 'э': "e'", 'ю': "yu", 'я': "ya",
}

// iso9 maps each Cyrillic letter to its ISO-9 Latin transliteration
// (diacritic marks flattened to plain ASCII, since this table only feeds
// search-key generation, never display).
var iso9 = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "shh",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "ju", 'я': "ja",
}

var gostReverse map[string]rune // built once from gost, longest-key-first lookup

func init() {
	gostReverse = make(map[string]rune, len(gost))
	for cyr, lat := range gost {
		gostReverse[lat] = cyr
	}
}

// isUpper reports whether r is an uppercase Cyrillic or Latin letter.
func isUpper(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'А' && r <= 'Я') || r == 'Ё'
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r - 'A' + 'a'
	}
	if r >= 'А' && r <= 'Я' {
		return r - 'А' + 'а'
	}
	if r == 'Ё' {
		return 'ё'
	}
	return r
}

// ToISO9 transliterates a Cyrillic string to Latin using the ISO-9 table.
// Non-Cyrillic runes pass through unchanged.
func ToISO9(s string) string {
	return transliterateWith(s, iso9)
}

// ToGOST transliterates a Cyrillic string to Latin using the GOST
// 16876-71 table. Non-Cyrillic runes pass through unchanged.
func ToGOST(s string) string {
	return transliterateWith(s, gost)
}

func transliterateWith(s string, table map[rune]string) string {
	var b []byte
	for _, r := range s {
		lower := toLowerRune(r)
		if rep, ok := table[lower]; ok {
			if isUpper(r) && len(rep) > 0 {
				rep = string(toUpperRune(rune(rep[0]))) + rep[1:]
			}
			b = append(b, rep...)
			continue
		}
		b = append(b, string(r)...)
	}
	return string(b)
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

// BackGOST reverses a GOST-transliterated Latin string to Cyrillic, using a
// greedy longest-match scan over 3→2→1 character windows.
func BackGOST(s string) string {
	// Build the candidate windows sorted longest-first once.
	keys := make([]string, 0, len(gostReverse))
	for k := range gostReverse {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	runes := []rune(s)
	var out []rune
	for i := 0; i < len(runes); {
		matched := false
		for _, k := range keys {
			kl := len([]rune(k))
			if kl == 0 || kl > 3 || i+kl > len(runes) {
				continue
			}
			window := string(runes[i : i+kl])
			lowerWindow := toLowerString(window)
			if lowerWindow == k {
				cyr := gostReverse[k]
				if isUpper(runes[i]) {
					out = append(out, toUpperCyrillic(cyr))
				} else {
					out = append(out, cyr)
				}
				i += kl
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, runes[i])
			i++
		}
	}
	return string(out)
}

func toLowerString(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = toLowerRune(r)
	}
	return string(rs)
}

func toUpperCyrillic(r rune) rune {
	if r >= 'а' && r <= 'я' {
		return r - 'а' + 'А'
	}
	if r == 'ё' {
		return 'Ё'
	}
	return r
}
