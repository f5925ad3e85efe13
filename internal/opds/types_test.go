package opds_test

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/tinyopds/tinyopds/internal/opds"
)

func TestNewFeed_Structure(t *testing.T) {
	feed := opds.NewFeed("tag:root", "Test Catalog")
	if feed.ID != "tag:root" {
		t.Errorf("ID = %q, want tag:root", feed.ID)
	}
	if feed.Title != "Test Catalog" {
		t.Errorf("Title = %q, want Test Catalog", feed.Title)
	}
	if feed.Xmlns != opds.NSAtom {
		t.Errorf("Xmlns = %q, want %q", feed.Xmlns, opds.NSAtom)
	}
}

func TestFeed_MarshalXML_Valid(t *testing.T) {
	feed := opds.NewFeed("tag:root", "Test Catalog")
	feed.Links = append(feed.Links, opds.Link{Rel: opds.RelSelf, Href: "/", Type: opds.MIMENavigation})
	feed.Entries = append(feed.Entries, opds.Entry{
		ID:      "tag:entry:1",
		Title:   "All books",
		Updated: opds.AtomTime{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Links:   []opds.Link{{Rel: opds.RelSubsection, Href: "/newdate", Type: opds.MIMEAcquisition}},
	})

	data, err := feed.MarshalXML()
	if err != nil {
		t.Fatalf("MarshalXML: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "<?xml") {
		t.Error("expected XML declaration at start")
	}

	var out opds.Feed
	if err := xml.Unmarshal(data[len(xml.Header):], &out); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if out.ID != "tag:root" {
		t.Errorf("round-trip ID = %q, want tag:root", out.ID)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out.Entries))
	}
}

func TestAtomTime_MarshalXML_RFC3339(t *testing.T) {
	ref := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	feed := opds.NewFeed("tag:x", "T")
	feed.Updated = opds.AtomTime{Time: ref}

	data, err := feed.MarshalXML()
	if err != nil {
		t.Fatalf("MarshalXML: %v", err)
	}
	if !strings.Contains(string(data), "2024-06-15T12:00:00Z") {
		t.Errorf("expected RFC3339 updated timestamp in output, got %s", data)
	}
}
