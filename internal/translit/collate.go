package translit

import "unicode"

// class buckets a rune into the three-way ordering collate uses: letters
// sort before digits, digits sort before punctuation/everything else.
func class(r rune) int {
	switch {
	case unicode.IsLetter(r):
		return 0
	case unicode.IsDigit(r):
		return 1
	default:
		return 2
	}
}

// Collator orders strings rune-by-rune: letters < digits < punctuation, with
// an optional Cyrillic-first tiebreak between two letters of different
// scripts (codepoints >= U+0400 sort ahead of Latin when CyrillicFirst is
// set, after otherwise).
type Collator struct {
	CyrillicFirst bool
}

// NewCollator builds a Collator; cyrillicFirst true sorts Cyrillic letters
// ahead of Latin, false sorts Latin first.
func NewCollator(cyrillicFirst bool) Collator {
	return Collator{CyrillicFirst: cyrillicFirst}
}

// Compare returns -1, 0, or 1 as a sorts before, equal to, or after b.
func (c Collator) Compare(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		x, y := ra[i], rb[i]
		if x == y {
			continue
		}
		cx, cy := class(x), class(y)
		if cx != cy {
			if cx < cy {
				return -1
			}
			return 1
		}
		if cx == 0 {
			// Both letters: apply script tiebreak before falling back to
			// codepoint order.
			xCyr, yCyr := isCyrillic(x), isCyrillic(y)
			if xCyr != yCyr {
				if c.CyrillicFirst == xCyr {
					return -1
				}
				return 1
			}
		}
		lx, ly := unicode.ToLower(x), unicode.ToLower(y)
		if lx != ly {
			if lx < ly {
				return -1
			}
			return 1
		}
		if x < y {
			return -1
		}
		return 1
	}
	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b, for use with sort.Slice.
func (c Collator) Less(a, b string) bool {
	return c.Compare(a, b) < 0
}

func isCyrillic(r rune) bool {
	return r >= 0x0400 && r <= 0x04FF
}
