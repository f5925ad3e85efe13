package httpserver

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tinyopds/tinyopds/internal/catalogerrors"
	"github.com/tinyopds/tinyopds/internal/opds"
)

// writeFeed marshals feed and writes it with the OPDS content type. A
// catalogerrors.NotFound error is still rendered as the (possibly empty)
// feed, but with a 404 status, per spec.md §4.10's "404 with an empty OPDS
// feed" contract; any other error becomes a 500.
func (s *Server) writeFeed(w http.ResponseWriter, feed *opds.Feed, err error) {
	status := http.StatusOK
	if err != nil {
		var nf *catalogerrors.NotFound
		if errors.As(err, &nf) {
			status = http.StatusNotFound
			if feed == nil {
				feed = opds.NewFeed("tag:not-found", "Not found")
			}
		} else {
			if s.log != nil {
				s.log.Errorf("httpserver: %v", err)
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	data, marshalErr := feed.MarshalXML()
	if marshalErr != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", opds.MIMEAtomFeed+";charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func pageParam(r *http.Request) int {
	return opds.ParsePage(r.URL.Query().Get("page"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	feed, err := s.gen.Root()
	s.writeFeed(w, feed, err)
}

func (s *Server) handleNewDate(w http.ResponseWriter, r *http.Request) {
	feed, err := s.gen.NewBooks(false, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleNewTitle(w http.ResponseWriter, r *http.Request) {
	feed, err := s.gen.NewBooks(true, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorsIndex(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]
	feed, err := s.gen.AuthorsIndex(prefix)
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	result, err := s.gen.AuthorDetails(name)
	if err != nil {
		s.writeFeed(w, nil, err)
		return
	}
	if result.RedirectTo != "" {
		http.Redirect(w, r, result.RedirectTo, http.StatusFound)
		return
	}
	s.writeFeed(w, result.Feed, nil)
}

func (s *Server) handleAuthorSeries(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feed, err := s.gen.AuthorSeries(name, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorNoSeries(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feed, err := s.gen.AuthorNoSeries(name, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorAlphabetic(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feed, err := s.gen.AuthorAlphabetic(name, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorByDate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feed, err := s.gen.AuthorByDate(name, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleAuthorSequence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	feed, err := s.gen.AuthorSequence(vars["author"], vars["sequence"], pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleSequencesIndex(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]
	feed, err := s.gen.SequencesIndex(prefix)
	s.writeFeed(w, feed, err)
}

func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	feed, err := s.gen.Sequence(name, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	main := mux.Vars(r)["main"]
	feed, err := s.gen.Genres(main)
	s.writeFeed(w, feed, err)
}

func (s *Server) handleGenre(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	feed, err := s.gen.Genre(tag, pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("searchTerm")
	if term == "" {
		term = q.Get("q")
	}
	feed, err := s.gen.Search(r.Context(), term, q.Get("searchType"), pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleOpenSearchXML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/opensearchdescription+xml;charset=utf-8")
	w.Write(s.gen.OpenSearchDescriptionXML())
}

func (s *Server) handleDownstatDate(w http.ResponseWriter, r *http.Request) {
	feed, err := s.gen.DownstatDate(pageParam(r))
	s.writeFeed(w, feed, err)
}

func (s *Server) handleDownstatAlpha(w http.ResponseWriter, r *http.Request) {
	feed, err := s.gen.DownstatAlpha(pageParam(r))
	s.writeFeed(w, feed, err)
}
