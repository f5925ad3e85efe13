package httpserver

import "net/http"

// authMiddleware enforces HTTP Basic Auth against the configured credential
// table, adapted from the teacher's session+Basic-Auth fallback (auth.go):
// TinyOPDS is an OPDS server for catalog clients, so Basic Auth is the only
// scheme, and a configurable ban list replaces the teacher's session store.
// Auth is a no-op when useHTTPAuth is off or the credential table is empty.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.UseHTTPAuth || s.opts.Credentials.Empty() {
			next.ServeHTTP(w, r)
			return
		}

		if s.opts.BanClients && s.bans.banned(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if ok && s.opts.Credentials.Check(user, pass) {
			if s.opts.BanClients {
				s.bans.recordSuccess(r.RemoteAddr)
			}
			s.stats.recordLogin(true)
			next.ServeHTTP(w, r)
			return
		}

		if s.opts.BanClients {
			s.bans.recordFailure(r.RemoteAddr, s.stats)
		}
		s.stats.recordLogin(false)
		w.Header().Set("WWW-Authenticate", `Basic realm="tinyopds"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
