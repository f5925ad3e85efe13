package fb2

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var xmlEncodingDecl = regexp.MustCompile(`(?i)<\?xml[^>]*\bencoding\s*=\s*["']([^"']+)["']`)

// declaredEncoding reads the charset named in the XML prolog, if any. It
// only inspects the first KB, since the prolog is always near the top.
func declaredEncoding(raw []byte) string {
	prefix := raw
	if len(prefix) > 1024 {
		prefix = prefix[:1024]
	}
	m := xmlEncodingDecl.FindSubmatch(prefix)
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

// charsetReader adapts a declared FB2 charset to an io.Reader producing
// UTF-8, for use as an xml.Decoder.CharsetReader. Unrecognized charsets fall
// through unchanged on the assumption they are already UTF-8 compatible.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "koi8-r":
		return charmap.KOI8R.NewDecoder().Reader(input), nil
	case "koi8-u":
		return charmap.KOI8U.NewDecoder().Reader(input), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Reader(input), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Reader(input), nil
	case "utf-8", "":
		return input, nil
	default:
		return input, nil
	}
}

// stripBOM removes a leading UTF-8 byte-order mark, which trips up the XML
// decoder's prolog scan on some libraries' exports.
func stripBOM(raw []byte) []byte {
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
}
