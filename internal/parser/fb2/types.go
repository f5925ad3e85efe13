// Package fb2 parses the FB2 description block into a catalog.Book. The
// document is read into memory whole; the body text is not decoded.
package fb2

import "encoding/xml"

// fictionBook mirrors the <description> portion of the FB2 schema plus every
// <binary> element; the <body> is never decoded.
type fictionBook struct {
	XMLName     xml.Name    `xml:"FictionBook"`
	Description description `xml:"description"`
	Binaries    []binary    `xml:"binary"`
}

type description struct {
	TitleInfo   titleInfo   `xml:"title-info"`
	PublishInfo publishInfo `xml:"publish-info"`
	DocumentInfo documentInfo `xml:"document-info"`
}

type titleInfo struct {
	Genre      []string     `xml:"genre"`
	Author     []author     `xml:"author"`
	Translator []author     `xml:"translator"`
	BookTitle  string       `xml:"book-title"`
	Annotation *textContainer `xml:"annotation"`
	Date       fbDate       `xml:"date"`
	Coverpage  coverpage    `xml:"coverpage"`
	Language   string       `xml:"lang"`
	Sequence   []sequence   `xml:"sequence"`
}

type author struct {
	FirstName  string `xml:"first-name"`
	MiddleName string `xml:"middle-name"`
	LastName   string `xml:"last-name"`
	Nickname   string `xml:"nickname"`
}

type fbDate struct {
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

type sequence struct {
	Name   string `xml:"name,attr"`
	Number int    `xml:"number,attr"`
}

type coverpage struct {
	Image imageRef `xml:"image"`
}

// imageRef covers the three ways an href to a binary ID shows up in the
// wild: plain, the FB2.1 local-name form, and the namespaced xlink form.
type imageRef struct {
	Href   string     `xml:"href,attr"`
	LHref  string     `xml:"l:href,attr"`
	XLink  string     `xml:"http://www.w3.org/1999/xlink href,attr"`
	Attrs  []xml.Attr `xml:",any,attr"`
}

func (r imageRef) resolvedHref() string {
	if r.Href != "" {
		return r.Href
	}
	if r.LHref != "" {
		return r.LHref
	}
	if r.XLink != "" {
		return r.XLink
	}
	for _, a := range r.Attrs {
		if a.Name.Local == "href" {
			return a.Value
		}
	}
	return ""
}

type textContainer struct {
	Text string `xml:",chardata"`
	P    []string `xml:"p"`
}

type publishInfo struct {
	Publisher string     `xml:"publisher"`
	ISBN      string     `xml:"isbn"`
	Year      string     `xml:"year"`
	Sequence  []sequence `xml:"sequence"`
}

type documentInfo struct {
	ID      string `xml:"id"`
	Version string `xml:"version"`
	Date    fbDate `xml:"date"`
}

type binary struct {
	ID          string `xml:"id,attr"`
	ContentType string `xml:"content-type,attr"`
	Data        string `xml:",chardata"`
}
