// Package dedup implements the duplicate detector: given a candidate book
// and the store's current state, decide whether to insert it as new, use it
// to replace an existing book, or reject it outright.
package dedup

import (
	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/store"
)

// Lookup is the subset of *store.Store the detector needs, so it can be
// tested against a fake without a real database.
type Lookup interface {
	BookByID(id string) (*catalog.Book, error)
	FindByNormalizedTitleAuthor(normalizedTitle, primaryAuthor string) (*catalog.Book, error)
	HasArchiveMember(filePath string) (bool, error)
}

var _ Lookup = (*store.Store)(nil)

// Verdict is the detector's decision for one candidate, naming the existing
// book to replace when the decision is ReplaceExisting.
type Verdict struct {
	Decision   catalog.Decision
	ExistingID string
	Reason     string
}

// Decide applies the two duplicate-detection keys in order of strength
// (exact id, then normalized-title+primary-author) and the version-selection
// rule between format variants. Archived duplicates (same composite path
// already present) are rejected before either key is consulted.
func Decide(lookup Lookup, candidate catalog.Book) (Verdict, error) {
	if _, _, ok := candidate.ArchivePath(); ok {
		present, err := lookup.HasArchiveMember(candidate.FilePath)
		if err != nil {
			return Verdict{}, err
		}
		if present {
			return Verdict{Decision: catalog.Reject, Reason: "archive member already present"}, nil
		}
	}

	if existing, err := lookup.BookByID(candidate.ID); err != nil {
		return Verdict{}, err
	} else if existing != nil {
		return resolveCollision(*existing, candidate)
	}

	primaryAuthor := "Unknown"
	if len(candidate.Authors) > 0 {
		primaryAuthor = candidate.Authors[0].Name
	}
	existing, err := lookup.FindByNormalizedTitleAuthor(store.NormalizeTitle(candidate.Title), primaryAuthor)
	if err != nil {
		return Verdict{}, err
	}
	if existing == nil {
		return Verdict{Decision: catalog.InsertNew}, nil
	}
	return resolveCollision(*existing, candidate)
}

// resolveCollision applies the version-selection rule between an existing
// book and a colliding candidate.
func resolveCollision(existing, candidate catalog.Book) (Verdict, error) {
	if existing.BookType == catalog.FB2 && candidate.BookType == catalog.FB2 {
		if candidate.DocVersion > existing.DocVersion {
			return Verdict{Decision: catalog.ReplaceExisting, ExistingID: existing.ID, Reason: "higher doc version"}, nil
		}
		if candidate.DocVersion == existing.DocVersion && candidate.DocumentSize > existing.DocumentSize {
			return Verdict{Decision: catalog.ReplaceExisting, ExistingID: existing.ID, Reason: "larger document, same version"}, nil
		}
		return Verdict{Decision: catalog.Reject, Reason: "existing FB2 is newer or equal"}, nil
	}

	if candidate.BookType == catalog.EPUB && existing.BookType == catalog.FB2 {
		// EPUB only beats FB2 when strictly newer AND no FB2 exists for the
		// same logical book — but we only get here because one already
		// does, so the two formats coexist as distinct catalog entries
		// rather than one replacing the other.
		return Verdict{Decision: catalog.InsertNew, Reason: "epub/fb2 coexist under same logical identity"}, nil
	}
	if candidate.BookType == catalog.FB2 && existing.BookType == catalog.EPUB {
		return Verdict{Decision: catalog.InsertNew, Reason: "epub/fb2 coexist under same logical identity"}, nil
	}

	// Both EPUB: the strictly-newer one wins.
	if candidate.BookType == catalog.EPUB && existing.BookType == catalog.EPUB {
		if candidate.AddedDate.After(existing.AddedDate) {
			return Verdict{Decision: catalog.ReplaceExisting, ExistingID: existing.ID, Reason: "strictly newer epub"}, nil
		}
		return Verdict{Decision: catalog.Reject, Reason: "existing epub is newer or equal"}, nil
	}

	return Verdict{Decision: catalog.Reject, Reason: "unresolvable collision"}, nil
}
