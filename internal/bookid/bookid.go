// Package bookid derives stable book identifiers. The preferred source is
// the publisher's ID embedded in FB2 metadata; when absent, a name-based
// UUID v5 over the file path guarantees repeated scans mint the same id.
package bookid

import "github.com/google/uuid"

// pathNamespace is a fixed namespace UUID for path-derived book ids, so the
// same library path always mints the same id across restarts and machines.
var pathNamespace = uuid.MustParse("a39c0a1e-430e-4cf7-8ff7-0b5a6b2e9ec4")

// FromPath derives a deterministic book id from a file path (the composite
// "archive.zip@inner/path" form included), used whenever the source format
// doesn't carry its own identifier.
func FromPath(filePath string) string {
	return uuid.NewSHA1(pathNamespace, []byte(filePath)).String()
}
