package downloads_test

import (
	"testing"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/downloads"
)

type fakeStore struct {
	events []catalog.DownloadEvent
}

func (f *fakeStore) RecordDownload(ev catalog.DownloadEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func TestFingerprintDeterministic(t *testing.T) {
	a := downloads.Fingerprint("192.168.1.5:54321", "Moon+Reader/6.0")
	b := downloads.Fingerprint("192.168.1.5:9999", "Moon+Reader/6.0")
	if a != b {
		t.Errorf("fingerprint should ignore the ephemeral port: %q != %q", a, b)
	}

	c := downloads.Fingerprint("192.168.1.6:54321", "Moon+Reader/6.0")
	if a == c {
		t.Error("different hosts produced the same fingerprint")
	}
}

func TestRecordWritesThroughStore(t *testing.T) {
	fs := &fakeStore{}
	tr := downloads.New(fs)
	if err := tr.Record("book-1", "10.0.0.1:1234", "FBReader"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(fs.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fs.events))
	}
	if fs.events[0].BookID != "book-1" {
		t.Errorf("BookID: got %q", fs.events[0].BookID)
	}
}
