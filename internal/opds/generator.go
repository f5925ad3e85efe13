package opds

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tinyopds/tinyopds/internal/catalog"
	"github.com/tinyopds/tinyopds/internal/catalogerrors"
	"github.com/tinyopds/tinyopds/internal/config"
	"github.com/tinyopds/tinyopds/internal/search"
	"github.com/tinyopds/tinyopds/internal/statscache"
	"github.com/tinyopds/tinyopds/internal/store"
	"github.com/tinyopds/tinyopds/internal/translit"
)

// PageSize is the fixed page length for every paginated OPDS listing.
const PageSize = 100

// Source is the subset of *store.Store the generator reads from.
type Source interface {
	AllBooks(offset, limit int) ([]catalog.Book, int, error)
	NewBooks(sinceDays, offset, limit int, byTitle bool) ([]catalog.Book, int, error)
	BookByID(id string) (*catalog.Book, error)
	Authors() ([]catalog.AuthorEntry, error)
	AuthorsByPrefix(prefix string) ([]catalog.AuthorEntry, error)
	Sequences() ([]catalog.SequenceEntry, error)
	SequencesByPrefix(prefix string) ([]catalog.SequenceEntry, error)
	GenresWithBooks() ([]catalog.GenreWithBooks, error)
	BooksByAuthor(author string, offset, limit int) ([]catalog.Book, int, error)
	BooksByAuthorDate(author string, offset, limit int) ([]catalog.Book, int, error)
	BooksByAuthorNoSeries(author string, offset, limit int) ([]catalog.Book, int, error)
	BooksByAuthorSequence(author, sequence string, offset, limit int) ([]catalog.Book, int, error)
	BooksBySequence(name string, offset, limit int) ([]catalog.Book, int, error)
	BooksByGenre(tag string, offset, limit int) ([]catalog.Book, int, error)
	BooksByIDs(ids []string) ([]catalog.Book, error)
	AuthorHasSeries(author string) (hasSeries, hasNoSeries bool, err error)
	UniqueDownloadsByDate(offset, limit int) ([]store.DownloadedBook, int, error)
	UniqueDownloadsByTitle(offset, limit int) ([]store.DownloadedBook, int, error)
}

// Stats is the subset of *statscache.Cache the root feed reads.
type Stats interface {
	Counts() (statscache.StatCounts, error)
	NewBooksCount() (int, error)
}

// GenConfig is the generator's read-only configuration, a projection of
// internal/config.Config.
type GenConfig struct {
	ServerName     string
	RootPrefix     string // no leading/trailing slash
	NewBooksPeriod int
	SortOrder      config.SortOrder
	Structure      config.OPDSStructure
	// PreferByDate selects the author-details routing policy's fallback
	// when an author has only one kind of book (by-date over alphabetic),
	// per spec.md §4.10.
	PreferByDate bool
}

// Generator builds Atom/OPDS feeds from store queries. It is stateless
// across calls: the same inputs and store state always produce the same
// feed modulo the <updated> timestamp (spec.md §8).
type Generator struct {
	store    Source
	authors  *search.AuthorSearcher
	titles   *search.TitleSearcher
	stats    Stats
	cfg      GenConfig
	collator translit.Collator
}

// New builds a Generator.
func New(store Source, authors *search.AuthorSearcher, titles *search.TitleSearcher, stats Stats, cfg GenConfig) *Generator {
	return &Generator{
		store:    store,
		authors:  authors,
		titles:   titles,
		stats:    stats,
		cfg:      cfg,
		collator: translit.NewCollator(cfg.SortOrder == config.SortCyrillicFirst),
	}
}

func (g *Generator) path(format string, args ...any) string {
	p := fmt.Sprintf(format, args...)
	if g.cfg.RootPrefix == "" {
		return p
	}
	return "/" + g.cfg.RootPrefix + p
}

func esc(s string) string { return url.PathEscape(s) }

// paginationLinks appends self/start/search/opensearch and, if applicable,
// next/previous/first to feed for a paginated route.
func (g *Generator) paginationLinks(feed *Feed, selfPath string, page, total int) {
	feed.Links = append(feed.Links,
		Link{Rel: RelStart, Href: g.path("/"), Type: MIMENavigation},
		Link{Rel: RelSelf, Href: selfPath, Type: MIMEAcquisition},
		Link{Rel: RelSearch, Href: g.path("/opensearch.xml"), Type: MIMEOpenSearchDesc},
		Link{Rel: RelOpenSearch, Href: g.path("/opensearch.xml"), Type: MIMEOpenSearchDesc},
	)
	feed.TotalResults = total
	feed.ItemsPerPage = PageSize
	feed.StartIndex = page*PageSize + 1

	pageCount := (total + PageSize - 1) / PageSize
	sep := "?"
	if strings.Contains(selfPath, "?") {
		sep = "&"
	}
	if page > 0 {
		feed.Links = append(feed.Links, Link{Rel: RelFirst, Href: stripPage(selfPath), Type: MIMEAcquisition})
		feed.Links = append(feed.Links, Link{Rel: RelPrevious, Href: fmt.Sprintf("%s%spage=%d", selfPath, sep, page-1), Type: MIMEAcquisition})
	}
	if page+1 < pageCount {
		feed.Links = append(feed.Links, Link{Rel: RelNext, Href: fmt.Sprintf("%s%spage=%d", selfPath, sep, page+1), Type: MIMEAcquisition})
	}
}

func stripPage(p string) string {
	idx := strings.Index(p, "?page=")
	if idx < 0 {
		return p
	}
	return p[:idx]
}

// bookEntry renders one catalog.Book as a full acquisition entry, per
// spec.md §4.10's per-book content list.
func (g *Generator) bookEntry(b catalog.Book) Entry {
	e := Entry{
		ID:      "tag:book:" + b.ID,
		Title:   b.Title,
		Updated: AtomTime{b.AddedDate},
		Language: b.Language,
		Format:   b.BookType.String(),
	}
	for _, a := range b.Authors {
		e.Authors = append(e.Authors, Author{Name: a.Name, URI: g.path("/author-details/%s", esc(a.Name))})
	}
	for _, gtag := range b.Genres {
		e.Categories = append(e.Categories, Category{Term: gtag, Label: gtag})
	}

	var sb strings.Builder
	sb.WriteString(b.Annotation)
	if len(b.Translators) > 0 {
		names := make([]string, len(b.Translators))
		for i, t := range b.Translators {
			names[i] = t.Name
		}
		fmt.Fprintf(&sb, "\n\nTranslated by: %s", strings.Join(names, ", "))
	}
	if b.BookDate > 0 {
		fmt.Fprintf(&sb, "\n\n%d", b.BookDate)
	}
	for _, s := range b.Sequences {
		fmt.Fprintf(&sb, "\n\n%s #%d", s.Name, s.NumberInSequence)
	}
	e.Content = &Content{Type: "text", Value: sb.String()}

	e.Links = append(e.Links,
		Link{Rel: RelCover, Href: g.path("/cover/%s.jpeg", esc(b.ID)), Type: MIMEJPEG},
		Link{Rel: RelThumbnail, Href: g.path("/thumbnail/%s.jpeg", esc(b.ID)), Type: MIMEJPEG},
	)
	switch b.BookType {
	case catalog.FB2:
		e.Links = append(e.Links, Link{Rel: RelAcquisitionOpen, Href: g.path("/download/%s/fb2", esc(b.ID)), Type: MIMEFB2Zip})
	case catalog.EPUB:
		e.Links = append(e.Links, Link{Rel: RelAcquisitionOpen, Href: g.path("/download/%s/epub", esc(b.ID)), Type: MIMEEPubZip})
	}
	for _, a := range b.Authors {
		e.Links = append(e.Links, Link{Rel: RelRelated, Href: g.path("/author-details/%s", esc(a.Name)), Title: a.Name})
	}
	for _, s := range b.Sequences {
		e.Links = append(e.Links, Link{Rel: RelRelated, Href: g.path("/sequence/%s", esc(s.Name)), Title: s.Name})
	}
	return e
}

func (g *Generator) booksFeed(id, title, selfPath string, books []catalog.Book, total, page int) *Feed {
	feed := NewFeed(id, title)
	for _, b := range books {
		feed.Entries = append(feed.Entries, g.bookEntry(b))
	}
	g.paginationLinks(feed, selfPath, page, total)
	return feed
}

func navFeed(id, title string) *Feed {
	feed := NewFeed(id, title)
	return feed
}

func (g *Generator) addNavEntries(feed *Feed, entries []NavEntry, hrefFor func(NavEntry) string) {
	for _, e := range entries {
		feed.Entries = append(feed.Entries, Entry{
			ID:      "tag:nav:" + e.Label,
			Title:   fmt.Sprintf("%s (%d)", e.Label, e.Count),
			Updated: AtomTime{feed.Updated.Time},
			Links:   []Link{{Rel: RelSubsection, Href: hrefFor(e), Type: MIMENavigation}},
		})
	}
}

// ---- Root ----

// Root builds the "/" navigation feed: counts and entries for new books,
// authors, series, and genres.
func (g *Generator) Root() (*Feed, error) {
	feed := navFeed("tag:root", g.cfg.ServerName)
	feed.Links = append(feed.Links,
		Link{Rel: RelStart, Href: g.path("/"), Type: MIMENavigation},
		Link{Rel: RelSelf, Href: g.path("/"), Type: MIMENavigation},
		Link{Rel: RelSearch, Href: g.path("/opensearch.xml"), Type: MIMEOpenSearchDesc},
		Link{Rel: RelOpenSearch, Href: g.path("/opensearch.xml"), Type: MIMEOpenSearchDesc},
	)

	counts, err := g.stats.Counts()
	if err != nil {
		return nil, err
	}
	newCount, err := g.stats.NewBooksCount()
	if err != nil {
		return nil, err
	}

	add := func(id, title, href string) {
		feed.Entries = append(feed.Entries, Entry{
			ID: id, Title: title, Updated: AtomTime{feed.Updated.Time},
			Links: []Link{{Rel: RelSubsection, Href: href, Type: MIMENavigation}},
		})
	}

	if g.cfg.Structure&config.OPDSNewBooks != 0 {
		add("tag:root:newdate", fmt.Sprintf("New books by date (%d)", newCount), g.path("/newdate"))
		add("tag:root:newtitle", fmt.Sprintf("New books by title (%d)", newCount), g.path("/newtitle"))
	}
	if g.cfg.Structure&config.OPDSAuthors != 0 {
		add("tag:root:authors", fmt.Sprintf("Authors (%d)", counts.AuthorsCount), g.path("/authorsindex"))
	}
	if g.cfg.Structure&config.OPDSSequences != 0 {
		add("tag:root:sequences", fmt.Sprintf("Series (%d)", counts.SeqCount), g.path("/sequencesindex"))
	}
	if g.cfg.Structure&config.OPDSGenres != 0 {
		add("tag:root:genres", "Genres", g.path("/genres"))
	}
	if g.cfg.Structure&config.OPDSDownloadHistory != 0 {
		add("tag:root:downstat", "Recently downloaded", g.path("/downstat/date"))
	}
	return feed, nil
}

// ---- New books ----

// NewBooks builds the paginated "/newdate" or "/newtitle" feed.
func (g *Generator) NewBooks(byTitle bool, page int) (*Feed, error) {
	route := "newdate"
	if byTitle {
		route = "newtitle"
	}
	books, total, err := g.store.NewBooks(g.cfg.NewBooksPeriod, page*PageSize, PageSize, byTitle)
	if err != nil {
		return nil, err
	}
	selfPath := g.path("/%s", route)
	if page > 0 {
		selfPath += fmt.Sprintf("?page=%d", page)
	}
	return g.booksFeed("tag:"+route, "New books", selfPath, books, total, page), nil
}

// ---- Authors index ----

// AuthorsIndex builds the alphabet-navigation feed at the given prefix
// (empty for the top level).
func (g *Generator) AuthorsIndex(prefix string) (*Feed, error) {
	var entries []catalog.AuthorEntry
	var err error
	if prefix == "" {
		entries, err = g.store.Authors()
	} else {
		entries, err = g.store.AuthorsByPrefix(prefix)
	}
	if err != nil {
		return nil, err
	}

	items := make([]navItem, len(entries))
	for i, e := range entries {
		items[i] = navItem{Name: e.Name, Count: e.Count}
	}
	grouped := groupByPrefix(items, prefix, g.collator)

	title := "Authors"
	if prefix != "" {
		title = "Authors: " + prefix
	}
	feed := navFeed("tag:authorsindex:"+prefix, title)
	feed.Links = append(feed.Links, Link{Rel: RelSelf, Href: g.path("/authorsindex/%s", esc(prefix)), Type: MIMENavigation})
	g.addNavEntries(feed, grouped, func(e NavEntry) string {
		if e.Leaf {
			return g.path("/author-details/%s", esc(e.Label))
		}
		return g.path("/authorsindex/%s", esc(e.Prefix))
	})
	return feed, nil
}

// AuthorDetailsResult is the intermediate-page decision for
// /author-details/{name}: either a navigation feed choosing among the
// concrete views, or a redirect straight to one of them when the author
// has only one kind of book.
type AuthorDetailsResult struct {
	Feed       *Feed
	RedirectTo string
}

// AuthorDetails implements the routing policy of spec.md §4.10: show the
// intermediate page when the author has both series and non-series books;
// otherwise redirect to the configured preferred view.
func (g *Generator) AuthorDetails(name string) (*AuthorDetailsResult, error) {
	hasSeries, hasNoSeries, err := g.store.AuthorHasSeries(name)
	if err != nil {
		return nil, err
	}
	if !hasSeries && !hasNoSeries {
		return nil, &catalogerrors.NotFound{Kind: "author", ID: name}
	}

	if hasSeries && hasNoSeries {
		feed := navFeed("tag:author-details:"+name, name)
		add := func(id, title, href string) {
			feed.Entries = append(feed.Entries, Entry{
				ID: id, Title: title, Updated: AtomTime{feed.Updated.Time},
				Links: []Link{{Rel: RelSubsection, Href: href, Type: MIMENavigation}},
			})
		}
		add("tag:author-series", "By series", g.path("/author-series/%s", esc(name)))
		add("tag:author-no-series", "Without series", g.path("/author-no-series/%s", esc(name)))
		add("tag:author-alphabetic", "Alphabetically", g.path("/author-alphabetic/%s", esc(name)))
		add("tag:author-by-date", "By date added", g.path("/author-by-date/%s", esc(name)))
		return &AuthorDetailsResult{Feed: feed}, nil
	}

	if g.cfg.PreferByDate {
		return &AuthorDetailsResult{RedirectTo: g.path("/author-by-date/%s", esc(name))}, nil
	}
	return &AuthorDetailsResult{RedirectTo: g.path("/author-alphabetic/%s", esc(name))}, nil
}

// AuthorSeries is the "by series" view reachable from the intermediate page.
// It lists all of the author's books in BooksByAuthor's order (by title);
// the books are not grouped by sequence.
func (g *Generator) AuthorSeries(name string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByAuthor(name, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:author-series:"+name, name+" — by series", g.path("/author-series/%s", esc(name)), books, total, page), nil
}

// AuthorNoSeries lists an author's books that belong to no sequence.
func (g *Generator) AuthorNoSeries(name string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByAuthorNoSeries(name, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:author-no-series:"+name, name+" — standalone", g.path("/author-no-series/%s", esc(name)), books, total, page), nil
}

// AuthorAlphabetic lists all of an author's books alphabetically.
func (g *Generator) AuthorAlphabetic(name string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByAuthor(name, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:author-alphabetic:"+name, name+" — A-Z", g.path("/author-alphabetic/%s", esc(name)), books, total, page), nil
}

// AuthorByDate lists an author's books newest-added-first.
func (g *Generator) AuthorByDate(name string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByAuthorDate(name, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:author-by-date:"+name, name+" — by date", g.path("/author-by-date/%s", esc(name)), books, total, page), nil
}

// AuthorSequence is the intersection view: one author's books within one
// named sequence.
func (g *Generator) AuthorSequence(author, sequence string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByAuthorSequence(author, sequence, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s — %s", author, sequence)
	selfPath := g.path("/author-sequence/%s/%s", esc(author), esc(sequence))
	return g.booksFeed("tag:author-sequence:"+author+":"+sequence, title, selfPath, books, total, page), nil
}

// ---- Sequences ----

// SequencesIndex mirrors AuthorsIndex for the series alphabet navigation.
func (g *Generator) SequencesIndex(prefix string) (*Feed, error) {
	var entries []catalog.SequenceEntry
	var err error
	if prefix == "" {
		entries, err = g.store.Sequences()
	} else {
		entries, err = g.store.SequencesByPrefix(prefix)
	}
	if err != nil {
		return nil, err
	}
	items := make([]navItem, len(entries))
	for i, e := range entries {
		items[i] = navItem{Name: e.Name, Count: e.Count}
	}
	grouped := groupByPrefix(items, prefix, g.collator)

	title := "Series"
	if prefix != "" {
		title = "Series: " + prefix
	}
	feed := navFeed("tag:sequencesindex:"+prefix, title)
	feed.Links = append(feed.Links, Link{Rel: RelSelf, Href: g.path("/sequencesindex/%s", esc(prefix)), Type: MIMENavigation})
	g.addNavEntries(feed, grouped, func(e NavEntry) string {
		if e.Leaf {
			return g.path("/sequence/%s", esc(e.Label))
		}
		return g.path("/sequencesindex/%s", esc(e.Prefix))
	})
	return feed, nil
}

// Sequence lists one named sequence's books ordered by position.
func (g *Generator) Sequence(name string, page int) (*Feed, error) {
	books, total, err := g.store.BooksBySequence(name, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:sequence:"+name, name, g.path("/sequence/%s", esc(name)), books, total, page), nil
}

// ---- Genres ----

// Genres builds the two-level taxonomy navigation: top level groups by
// parent tag, "/genres/{main}" lists the genres under it.
func (g *Generator) Genres(main string) (*Feed, error) {
	all, err := g.store.GenresWithBooks()
	if err != nil {
		return nil, err
	}

	if main == "" {
		parents := map[string]int{}
		var order []string
		for _, gw := range all {
			parent := gw.ParentTag
			if parent == "" {
				parent = gw.Tag
			}
			if _, ok := parents[parent]; !ok {
				order = append(order, parent)
			}
			parents[parent] += gw.Count
		}
		feed := navFeed("tag:genres", "Genres")
		for _, p := range order {
			feed.Entries = append(feed.Entries, Entry{
				ID: "tag:genres:" + p, Title: fmt.Sprintf("%s (%d)", p, parents[p]),
				Updated: AtomTime{feed.Updated.Time},
				Links:   []Link{{Rel: RelSubsection, Href: g.path("/genres/%s", esc(p)), Type: MIMENavigation}},
			})
		}
		return feed, nil
	}

	feed := navFeed("tag:genres:"+main, "Genres: "+main)
	for _, gw := range all {
		parent := gw.ParentTag
		if parent == "" {
			parent = gw.Tag
		}
		if parent != main {
			continue
		}
		feed.Entries = append(feed.Entries, Entry{
			ID: "tag:genre:" + gw.Tag, Title: fmt.Sprintf("%s (%d)", gw.EnglishName, gw.Count),
			Updated: AtomTime{feed.Updated.Time},
			Links:   []Link{{Rel: RelSubsection, Href: g.path("/genre/%s", esc(gw.Tag)), Type: MIMENavigation}},
		})
	}
	return feed, nil
}

// Genre lists the books carrying one genre tag.
func (g *Generator) Genre(tag string, page int) (*Feed, error) {
	books, total, err := g.store.BooksByGenre(tag, page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return g.booksFeed("tag:genre:"+tag, "Genre: "+tag, g.path("/genre/%s", esc(tag)), books, total, page), nil
}

// ---- Search ----

// Search implements the OpenSearch endpoint: explicit searchType delegates
// straight to the matching catalog; when omitted and both authors and
// books match, a two-entry disambiguation feed is returned instead.
func (g *Generator) Search(ctx context.Context, term, searchType string, page int) (*Feed, error) {
	switch searchType {
	case "authors":
		return g.searchAuthors(ctx, term)
	case "books":
		return g.searchBooks(ctx, term)
	}

	authorResults, _, err := g.authors.OpenSearch(ctx, term)
	if err != nil {
		return nil, err
	}
	titleResults, err := g.titles.OpenSearch(ctx, term)
	if err != nil {
		return nil, err
	}

	if len(authorResults) > 0 && len(titleResults) > 0 {
		feed := navFeed("tag:search:"+term, "Search results for "+term)
		feed.Entries = append(feed.Entries,
			Entry{
				ID: "tag:search:authors", Title: fmt.Sprintf("Authors matching %q", term),
				Updated: AtomTime{feed.Updated.Time},
				Links:   []Link{{Rel: RelSubsection, Href: g.path("/search?searchTerm=%s&searchType=authors", url.QueryEscape(term)), Type: MIMENavigation}},
			},
			Entry{
				ID: "tag:search:books", Title: fmt.Sprintf("Books matching %q", term),
				Updated: AtomTime{feed.Updated.Time},
				Links:   []Link{{Rel: RelSubsection, Href: g.path("/search?searchTerm=%s&searchType=books", url.QueryEscape(term)), Type: MIMENavigation}},
			},
		)
		return feed, nil
	}
	if len(authorResults) > 0 {
		return g.authorResultsFeed(term, authorResults)
	}
	return g.titleResultsFeed(term, titleResults, page)
}

func (g *Generator) searchAuthors(ctx context.Context, term string) (*Feed, error) {
	results, _, err := g.authors.OpenSearch(ctx, term)
	if err != nil {
		return nil, err
	}
	return g.authorResultsFeed(term, results)
}

func (g *Generator) authorResultsFeed(term string, results []search.AuthorResult) (*Feed, error) {
	feed := navFeed("tag:search:authors:"+term, "Authors matching "+term)
	for _, r := range results {
		feed.Entries = append(feed.Entries, Entry{
			ID: "tag:author:" + r.Name, Title: r.Name,
			Updated: AtomTime{feed.Updated.Time},
			Links:   []Link{{Rel: RelSubsection, Href: g.path("/author-details/%s", esc(r.Name)), Type: MIMENavigation}},
		})
	}
	return feed, nil
}

func (g *Generator) searchBooks(ctx context.Context, term string) (*Feed, error) {
	results, err := g.titles.OpenSearch(ctx, term)
	if err != nil {
		return nil, err
	}
	return g.titleResultsFeed(term, results, 0)
}

func (g *Generator) titleResultsFeed(term string, results []search.TitleResult, page int) (*Feed, error) {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.BookID
	}
	books, err := g.store.BooksByIDs(ids)
	if err != nil {
		return nil, err
	}
	// Preserve the search engine's relevance order, not the store's.
	byID := make(map[string]catalog.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]catalog.Book, 0, len(results))
	for _, r := range results {
		if b, ok := byID[r.BookID]; ok {
			ordered = append(ordered, b)
		}
	}

	start := page * PageSize
	end := start + PageSize
	if start > len(ordered) {
		start = len(ordered)
	}
	if end > len(ordered) {
		end = len(ordered)
	}
	return g.booksFeed("tag:search:books:"+term, "Books matching "+term,
		g.path("/search?searchTerm=%s&searchType=books", url.QueryEscape(term)),
		ordered[start:end], len(ordered), page), nil
}

// ---- Download history ----

// DownstatDate builds the "/downstat/date" feed, newest download first.
func (g *Generator) DownstatDate(page int) (*Feed, error) {
	hits, total, err := g.store.UniqueDownloadsByDate(page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	books := make([]catalog.Book, len(hits))
	for i, h := range hits {
		books[i] = h.Book
	}
	return g.booksFeed("tag:downstat:date", "Recently downloaded", g.path("/downstat/date"), books, total, page), nil
}

// DownstatAlpha builds the "/downstat/alpha" feed, sorted by title.
func (g *Generator) DownstatAlpha(page int) (*Feed, error) {
	hits, total, err := g.store.UniqueDownloadsByTitle(page*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	books := make([]catalog.Book, len(hits))
	for i, h := range hits {
		books[i] = h.Book
	}
	return g.booksFeed("tag:downstat:alpha", "Downloaded, by title", g.path("/downstat/alpha"), books, total, page), nil
}

// ---- OpenSearch description ----

// OpenSearchDescriptionXML renders the static OSDD document for
// /opensearch.xml.
func (g *Generator) OpenSearchDescriptionXML() []byte {
	tmpl := `<?xml version="1.0" encoding="UTF-8"?>
<OpenSearchDescription xmlns="http://a9.com/-/spec/opensearch/1.1/">
  <ShortName>%s</ShortName>
  <Description>Search %s</Description>
  <InputEncoding>UTF-8</InputEncoding>
  <OutputEncoding>UTF-8</OutputEncoding>
  <Url type="application/atom+xml;profile=opds-catalog" template="%s/search?searchTerm={searchTerms}"/>
</OpenSearchDescription>`
	name := g.cfg.ServerName
	base := g.path("")
	return []byte(fmt.Sprintf(tmpl, name, name, base))
}

// ParsePage parses a "page" query parameter, defaulting to 0 and clamping
// negative values.
func ParsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
