package config

import "github.com/google/uuid"

// dbNamespace is a fixed namespace UUID used to derive a stable database
// filename from the library path, so the same library always resolves to
// the same .db file across restarts.
var dbNamespace = uuid.MustParse("6f6e6558-8c7b-4f1c-9b8a-2e8e2a9c6e21")

func libraryUUID(libraryPath string) string {
	return uuid.NewSHA1(dbNamespace, []byte(libraryPath)).String()
}
