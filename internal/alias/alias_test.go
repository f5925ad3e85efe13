package alias

import "testing"

func newTestResolver() *Resolver {
	return &Resolver{
		toCanon:   map[string]string{"Александр Пушкин": "Пушкин Александр"},
		fromCanon: map[string][]string{"Пушкин Александр": {"Александр Пушкин"}},
	}
}

func TestResolveBookAuthors_ReplacesKnownCyrillicAlias(t *testing.T) {
	r := newTestResolver()
	got := r.ResolveBookAuthors([]string{"Александр Пушкин"})
	if got[0] != "Пушкин Александр" {
		t.Errorf("got %q, want canonical form", got[0])
	}
}

func TestResolveBookAuthors_LeavesLatinNamesUntouched(t *testing.T) {
	r := newTestResolver()
	got := r.ResolveBookAuthors([]string{"Jane Austen"})
	if got[0] != "Jane Austen" {
		t.Errorf("got %q, want unchanged", got[0])
	}
}

func TestResolveBookAuthors_UnknownCyrillicNamePassesThrough(t *testing.T) {
	r := newTestResolver()
	got := r.ResolveBookAuthors([]string{"Неизвестный Автор"})
	if got[0] != "Неизвестный Автор" {
		t.Errorf("got %q, want unchanged (no alias entry)", got[0])
	}
}

func TestResolveBookAuthors_NilResolverIsNoop(t *testing.T) {
	var r *Resolver
	names := []string{"Whoever"}
	got := r.ResolveBookAuthors(names)
	if got[0] != "Whoever" {
		t.Errorf("got %q, want unchanged", got[0])
	}
}

func TestVariants_ReturnsKnownAliasSpellings(t *testing.T) {
	r := newTestResolver()
	got := r.Variants("Пушкин Александр")
	if len(got) != 1 || got[0] != "Александр Пушкин" {
		t.Errorf("Variants = %v, want [Александр Пушкин]", got)
	}
}
