package httpserver

import (
	"net/http"
	"sync"
)

// RequestStats holds the per-request counters spec.md §4.9 requires: total
// requests, books and images served, unique clients, good/bad logins, and
// clients that have been banned. One mutex guards every field, mirroring
// the single-mutex discipline internal/statscache uses for its memoized
// fields.
type RequestStats struct {
	mu sync.Mutex

	totalRequests int64
	booksServed   int64
	imagesServed  int64
	goodLogins    int64
	badLogins     int64
	bannedClients int64
	clients       map[string]struct{}

	// OnUpdate, if set, is invoked with a fresh Snapshot after every request
	// — the "StatisticsUpdated" event of spec.md §4.9.
	OnUpdate func(Snapshot)
}

// Snapshot is an immutable copy of RequestStats' counters.
type Snapshot struct {
	TotalRequests int64
	BooksServed   int64
	ImagesServed  int64
	UniqueClients int64
	GoodLogins    int64
	BadLogins     int64
	BannedClients int64
}

// NewRequestStats builds an empty RequestStats.
func NewRequestStats() *RequestStats {
	return &RequestStats{clients: make(map[string]struct{})}
}

func (s *RequestStats) recordRequest(remoteAddr string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.totalRequests++
	s.clients[hostOnly(remoteAddr)] = struct{}{}
	s.mu.Unlock()
	s.emit()
}

func (s *RequestStats) recordLogin(ok bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if ok {
		s.goodLogins++
	} else {
		s.badLogins++
	}
	s.mu.Unlock()
	s.emit()
}

func (s *RequestStats) recordBan() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.bannedClients++
	s.mu.Unlock()
	s.emit()
}

func (s *RequestStats) recordBookServed() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.booksServed++
	s.mu.Unlock()
	s.emit()
}

func (s *RequestStats) recordImageServed() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.imagesServed++
	s.mu.Unlock()
	s.emit()
}

// Snapshot returns a consistent copy of every counter.
func (s *RequestStats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalRequests: s.totalRequests,
		BooksServed:   s.booksServed,
		ImagesServed:  s.imagesServed,
		UniqueClients: int64(len(s.clients)),
		GoodLogins:    s.goodLogins,
		BadLogins:     s.badLogins,
		BannedClients: s.bannedClients,
	}
}

func (s *RequestStats) emit() {
	if s == nil || s.OnUpdate == nil {
		return
	}
	s.OnUpdate(s.Snapshot())
}

// statsMiddleware counts every request that reaches the router, regardless
// of route or auth outcome.
func (s *Server) statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.recordRequest(r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
