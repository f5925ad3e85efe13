package opds

import (
	"sort"
	"unicode"

	"github.com/tinyopds/tinyopds/internal/translit"
)

// navThreshold is the alphabet-navigation regrouping threshold from
// spec.md §4.10: beyond this many items at one level, the generator groups
// by the next character instead of listing every item.
const navThreshold = 100

// navItem is the common shape AuthorEntry/SequenceEntry reduce to for
// grouping purposes.
type navItem struct {
	Name  string
	Count int
}

// NavEntry is one alphabet-index row: either a leaf (a concrete author or
// sequence) or a group pointing at a longer prefix.
type NavEntry struct {
	Label  string // display text
	Prefix string // next navigation prefix; empty for a leaf
	Count  int
	Leaf   bool
}

// groupByPrefix applies spec.md §4.10's navigation-grouping rule: when more
// than navThreshold items share the current prefix, group them by the next
// character — but only when that character is a letter and at least two
// items share the resulting longer prefix; singletons and non-letter
// continuations remain individual leaf entries.
func groupByPrefix(items []navItem, prefix string, collator translit.Collator) []NavEntry {
	if len(items) <= navThreshold {
		out := make([]NavEntry, len(items))
		for i, it := range items {
			out[i] = NavEntry{Label: it.Name, Count: it.Count, Leaf: true}
		}
		sortEntries(out, collator)
		return out
	}

	plen := len([]rune(prefix))
	type bucket struct {
		char  rune
		items []navItem
	}
	buckets := make(map[rune]*bucket)
	var order []rune
	var out []NavEntry

	for _, it := range items {
		runes := []rune(it.Name)
		if len(runes) <= plen || !unicode.IsLetter(runes[plen]) {
			out = append(out, NavEntry{Label: it.Name, Count: it.Count, Leaf: true})
			continue
		}
		c := runes[plen]
		b, ok := buckets[c]
		if !ok {
			b = &bucket{char: c}
			buckets[c] = b
			order = append(order, c)
		}
		b.items = append(b.items, it)
	}

	for _, c := range order {
		b := buckets[c]
		if len(b.items) < 2 {
			it := b.items[0]
			out = append(out, NavEntry{Label: it.Name, Count: it.Count, Leaf: true})
			continue
		}
		total := 0
		for _, it := range b.items {
			total += it.Count
		}
		nextPrefix := prefix + string(c)
		out = append(out, NavEntry{Label: nextPrefix, Prefix: nextPrefix, Count: total})
	}

	sortEntries(out, collator)
	return out
}

func sortEntries(entries []NavEntry, collator translit.Collator) {
	sort.Slice(entries, func(i, j int) bool { return collator.Less(entries[i].Label, entries[j].Label) })
}
