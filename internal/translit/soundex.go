package translit

import "strings"

// soundexCode maps a Latin consonant to its classic six-bucket Soundex digit.
var soundexCode = map[byte]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Soundex computes the Russian-Soundex code of s: transliterate to Latin
// (ISO-9), keep the first letter verbatim, encode subsequent consonants via
// the classic six-bucket mapping, collapse consecutive identical codes,
// drop vowels and {h,w,y}, then pad/truncate to exactly four characters.
// The algorithm is deterministic, so the same input always produces the
// same code on both the query and the stored column.
func Soundex(s string) string {
	latin := strings.ToLower(ToISO9(s))

	// Keep only ASCII letters; everything else (spaces, punctuation) is
	// dropped before encoding.
	var letters []byte
	for i := 0; i < len(latin); i++ {
		c := latin[i]
		if c >= 'a' && c <= 'z' {
			letters = append(letters, c)
		}
	}
	if len(letters) == 0 {
		return "0000"
	}

	var out []byte
	out = append(out, letters[0])
	lastCode := soundexCode[letters[0]]

	for _, c := range letters[1:] {
		switch c {
		case 'h', 'w', 'y', 'a', 'e', 'i', 'o', 'u':
			// Vowels and {h,w,y} never emit a code, and don't carry over
			// as "last code" either — a repeated consonant separated only
			// by one of these still collapses.
			continue
		}
		code, ok := soundexCode[c]
		if !ok {
			continue
		}
		if code != lastCode {
			out = append(out, code)
		}
		lastCode = code
	}

	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out[:4])
}
