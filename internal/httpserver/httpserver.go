// Package httpserver implements TinyOPDS's HTTP front end (spec.md §4.9,
// §7): gorilla/mux routing over the OPDS catalog generator, HTTP Basic Auth
// against the configured credential table, a timed ban list for repeated
// auth failures, a bounded concurrent-connection pool, and the download,
// cover, and thumbnail routes, adapted from the teacher's internal/server
// package (mux subrouter split between public and protected routes).
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
	"github.com/tinyopds/tinyopds/internal/credentials"
	"github.com/tinyopds/tinyopds/internal/downloads"
	"github.com/tinyopds/tinyopds/internal/logging"
	"github.com/tinyopds/tinyopds/internal/opds"
)

// Options configures a Server.
type Options struct {
	LibraryPath    string
	RootPrefix     string
	UseHTTPAuth    bool
	BanClients     bool
	WrongAttempts  int
	MaxConnections int
	Credentials    *credentials.Table
}

// Server is TinyOPDS's HTTP front end.
type Server struct {
	router    *mux.Router
	gen       *opds.Generator
	books     Books
	downloads *downloads.Tracker
	log       *logging.Logger
	opts      Options

	bans  *banList
	conn  *connLimiter
	stats *RequestStats
}

// Books is the subset of *store.Store the file routes need: fetching one
// book's full record to locate and stream its content.
type Books interface {
	BookByID(id string) (*catalog.Book, error)
}

// New builds a Server. gen is the OPDS generator, books resolves book
// records for download/cover routes, tracker records acquisitions.
func New(gen *opds.Generator, books Books, tracker *downloads.Tracker, log *logging.Logger, opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		gen:       gen,
		books:     books,
		downloads: tracker,
		log:       log,
		opts:      opts,
		bans:      newBanList(opts.WrongAttempts),
		conn:      newConnLimiter(opts.MaxConnections),
		stats:     NewRequestStats(),
	}
	s.registerRoutes()
	return s
}

// Stats exposes the server's request-statistics counters (spec.md §4.9).
func (s *Server) Stats() *RequestStats { return s.stats }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// registerRoutes wires every endpoint named in spec.md §4.10 behind the auth
// and connection-limit middleware, following the teacher's public/protected
// mux-subrouter split (only /health stays unauthenticated here).
func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.statsMiddleware)
	prefix := "/"
	if s.opts.RootPrefix != "" {
		prefix = "/" + s.opts.RootPrefix + "/"
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// gorilla/mux subrouters match a PathPrefix but do not rebase child
	// patterns, so every protected route is registered with its full path
	// (teacher's internal/server.go does the same with its /opds prefix).
	protected := r.NewRoute().Subrouter()
	protected.Use(s.connLimitMiddleware, s.authMiddleware)

	p := func(suffix string) string {
		if prefix == "/" {
			return "/" + suffix
		}
		return prefix + suffix
	}

	protected.HandleFunc(p(""), s.handleRoot).Methods(http.MethodGet)
	protected.HandleFunc(p("newdate"), s.handleNewDate).Methods(http.MethodGet)
	protected.HandleFunc(p("newtitle"), s.handleNewTitle).Methods(http.MethodGet)

	protected.HandleFunc(p("authorsindex"), s.handleAuthorsIndex).Methods(http.MethodGet)
	protected.HandleFunc(p("authorsindex/{prefix}"), s.handleAuthorsIndex).Methods(http.MethodGet)
	protected.HandleFunc(p("author-details/{name}"), s.handleAuthorDetails).Methods(http.MethodGet)
	protected.HandleFunc(p("author-series/{name}"), s.handleAuthorSeries).Methods(http.MethodGet)
	protected.HandleFunc(p("author-no-series/{name}"), s.handleAuthorNoSeries).Methods(http.MethodGet)
	protected.HandleFunc(p("author-alphabetic/{name}"), s.handleAuthorAlphabetic).Methods(http.MethodGet)
	protected.HandleFunc(p("author-by-date/{name}"), s.handleAuthorByDate).Methods(http.MethodGet)
	protected.HandleFunc(p("author-sequence/{author}/{sequence}"), s.handleAuthorSequence).Methods(http.MethodGet)

	protected.HandleFunc(p("sequencesindex"), s.handleSequencesIndex).Methods(http.MethodGet)
	protected.HandleFunc(p("sequencesindex/{prefix}"), s.handleSequencesIndex).Methods(http.MethodGet)
	protected.HandleFunc(p("sequence/{name}"), s.handleSequence).Methods(http.MethodGet)

	protected.HandleFunc(p("genres"), s.handleGenres).Methods(http.MethodGet)
	protected.HandleFunc(p("genres/{main}"), s.handleGenres).Methods(http.MethodGet)
	protected.HandleFunc(p("genre/{tag}"), s.handleGenre).Methods(http.MethodGet)

	protected.HandleFunc(p("search"), s.handleSearch).Methods(http.MethodGet)
	protected.HandleFunc(p("opensearch.xml"), s.handleOpenSearchXML).Methods(http.MethodGet)

	protected.HandleFunc(p("downstat/date"), s.handleDownstatDate).Methods(http.MethodGet)
	protected.HandleFunc(p("downstat/alpha"), s.handleDownstatAlpha).Methods(http.MethodGet)

	protected.HandleFunc(p("download/{id}/{format}"), s.handleDownload).Methods(http.MethodGet)
	protected.HandleFunc(p("cover/{id}.jpeg"), s.handleCover).Methods(http.MethodGet)
	protected.HandleFunc(p("thumbnail/{id}.jpeg"), s.handleThumbnail).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Run starts the HTTP listener at addr and blocks until ctx is canceled,
// then gracefully shuts down with a bounded drain wait.
func Run(ctx context.Context, addr string, handler http.Handler, log *logging.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- &catalogerrors.PortInUse{Addr: addr, Err: err}
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if log != nil {
			log.Infof("httpserver: shutting down")
		}
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// connLimiter bounds the number of requests processed concurrently, per
// spec.md's maxConnections setting.
type connLimiter struct {
	sem chan struct{}
}

func newConnLimiter(max int) *connLimiter {
	if max <= 0 {
		max = 1
	}
	return &connLimiter{sem: make(chan struct{}, max)}
}

func (c *connLimiter) acquire() bool {
	select {
	case c.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *connLimiter) release() { <-c.sem }

func (s *Server) connLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.conn.acquire() {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		defer s.conn.release()
		next.ServeHTTP(w, r)
	})
}

// banList tracks consecutive auth failures per client address, blocking a
// client once its failure count reaches the configured threshold. A
// successful auth resets the client's counter.
type banList struct {
	mu        sync.Mutex
	failures  map[string]int
	bannedAt  map[string]time.Time
	threshold int
}

const banDuration = 24 * time.Hour

func newBanList(threshold int) *banList {
	if threshold <= 0 {
		threshold = 5
	}
	return &banList{
		failures:  make(map[string]int),
		bannedAt:  make(map[string]time.Time),
		threshold: threshold,
	}
}

func (b *banList) banned(addr string) bool {
	host := hostOnly(addr)
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.bannedAt[host]
	if !ok {
		return false
	}
	if time.Since(t) > banDuration {
		delete(b.bannedAt, host)
		delete(b.failures, host)
		return false
	}
	return true
}

func (b *banList) recordFailure(addr string, stats *RequestStats) {
	host := hostOnly(addr)
	b.mu.Lock()
	b.failures[host]++
	justBanned := b.failures[host] == b.threshold
	if justBanned {
		b.bannedAt[host] = time.Now()
	}
	b.mu.Unlock()
	if justBanned {
		stats.recordBan()
	}
}

func (b *banList) recordSuccess(addr string) {
	host := hostOnly(addr)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, host)
	delete(b.bannedAt, host)
}

func hostOnly(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}
