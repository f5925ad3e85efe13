// Package downloads implements the download-history tracker: per-client
// fingerprinting and recording of acquisition events, and the paginated
// unique-downloads views the OPDS /downstat/* routes serve.
//
// spec.md §9 leaves the fingerprint algorithm unspecified; this
// implementation uses SHA-256 of remoteAddr + "|" + userAgent, a
// deterministic function of the two values every HTTP request already
// carries (see DESIGN.md).
package downloads

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"time"

	"github.com/tinyopds/tinyopds/internal/catalog"
)

// Store is the subset of *store.Store the tracker writes through and reads
// back from.
type Store interface {
	RecordDownload(ev catalog.DownloadEvent) error
}

// Fingerprint derives a stable per-client identifier from the parts of an
// HTTP request that survive proxying least badly: the remote address (host
// only, port stripped) and the User-Agent string.
func Fingerprint(remoteAddr, userAgent string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// Tracker records acquisitions through Store.
type Tracker struct {
	store Store
}

// New builds a Tracker backed by store.
func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// Record writes one download event for bookID, fingerprinting the request
// from remoteAddr/userAgent.
func (t *Tracker) Record(bookID, remoteAddr, userAgent string) error {
	return t.store.RecordDownload(catalog.DownloadEvent{
		BookID:            bookID,
		ClientFingerprint: Fingerprint(remoteAddr, userAgent),
		Timestamp:         time.Now(),
	})
}
