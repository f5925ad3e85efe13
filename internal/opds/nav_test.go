package opds

import (
	"fmt"
	"testing"

	"github.com/tinyopds/tinyopds/internal/translit"
)

func TestGroupByPrefix_BelowThreshold(t *testing.T) {
	items := []navItem{{Name: "Asimov Isaac", Count: 3}, {Name: "Bulgakov Mikhail", Count: 2}}
	got := groupByPrefix(items, "", translit.NewCollator(false))
	if len(got) != 2 {
		t.Fatalf("expected 2 leaf entries, got %d", len(got))
	}
	for _, e := range got {
		if !e.Leaf {
			t.Errorf("entry %q: expected Leaf, got a group", e.Label)
		}
	}
}

func TestGroupByPrefix_RegroupsAboveThreshold(t *testing.T) {
	// 250 authors all starting with "A", spread across 26 second letters so
	// each bucket has at least 2 members, mirroring spec.md's worked example.
	var items []navItem
	for i := 0; i < 250; i++ {
		second := 'a' + rune(i%26)
		items = append(items, navItem{Name: fmt.Sprintf("A%c Author%d", second, i), Count: 1})
	}

	root := groupByPrefix(items, "", translit.NewCollator(false))
	if len(root) != 1 || root[0].Leaf {
		t.Fatalf("expected one non-leaf group at root, got %+v", root)
	}
	if root[0].Prefix != "A" {
		t.Errorf("root group prefix = %q, want %q", root[0].Prefix, "A")
	}
	if root[0].Count != 250 {
		t.Errorf("root group count = %d, want 250", root[0].Count)
	}

	second := groupByPrefix(items, "A", translit.NewCollator(false))
	if len(second) != 26 {
		t.Fatalf("expected 26 second-level groups, got %d", len(second))
	}
	for _, e := range second {
		if e.Leaf {
			t.Errorf("entry %q: expected a group, got a leaf", e.Label)
		}
	}
}

func TestGroupByPrefix_SingletonStaysLeaf(t *testing.T) {
	var items []navItem
	for i := 0; i < 101; i++ {
		items = append(items, navItem{Name: fmt.Sprintf("B%02d Author", i), Count: 1})
	}
	items = append(items, navItem{Name: "Zhukov Unique", Count: 1})

	got := groupByPrefix(items, "", translit.NewCollator(false))
	var foundZLeaf bool
	for _, e := range got {
		if e.Label == "Zhukov Unique" && e.Leaf {
			foundZLeaf = true
		}
	}
	if !foundZLeaf {
		t.Error("expected the sole Z-author to remain an individual leaf entry")
	}
}
