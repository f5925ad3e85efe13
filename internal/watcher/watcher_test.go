package watcher

import "testing"

func TestEnqueueDeletedCancelsPendingAdd(t *testing.T) {
	w := &Watcher{deleted: make(map[string]struct{})}
	w.enqueueAdded("book.fb2")
	w.enqueueDeleted("book.fb2")

	if len(w.added) != 0 {
		t.Errorf("expected added queue to be empty, got %v", w.added)
	}
	if _, ok := w.deleted["book.fb2"]; ok {
		t.Errorf("expected deleted queue to be empty too (cancelled pair), got %v", w.deleted)
	}
}

func TestEnqueueAddedCancelsPendingDelete(t *testing.T) {
	w := &Watcher{deleted: make(map[string]struct{})}
	w.enqueueDeleted("book.fb2")
	w.enqueueAdded("book.fb2")

	if _, ok := w.deleted["book.fb2"]; ok {
		t.Error("expected delete to be cancelled by a later add")
	}
	if len(w.added) != 1 {
		t.Errorf("expected book.fb2 queued for add, got %v", w.added)
	}
}

func TestEnqueueAddedDeduplicates(t *testing.T) {
	w := &Watcher{deleted: make(map[string]struct{})}
	w.enqueueAdded("book.fb2")
	w.enqueueAdded("book.fb2")

	if len(w.added) != 1 {
		t.Errorf("expected a single queued entry, got %d", len(w.added))
	}
}
