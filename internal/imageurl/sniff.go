package imageurl

import (
	"bytes"
	"io"

	"golang.org/x/net/html"
)

// sniffLimit bounds how much of a suspect response body is read to decide
// whether it is an HTML interstitial.
const sniffLimit = 4096

// peek reads up to n bytes from rc and returns them along with a ReadCloser
// that replays the peeked bytes before the remainder of the stream.
func peek(rc io.ReadCloser, n int) ([]byte, io.ReadCloser, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, rc, err
	}
	snippet := buf[:read]
	return snippet, &replayReadCloser{
		r: io.MultiReader(bytes.NewReader(snippet), rc),
		c: rc,
	}, nil
}

type replayReadCloser struct {
	r io.Reader
	c io.Closer
}

func (rr *replayReadCloser) Read(p []byte) (int, error) { return rr.r.Read(p) }
func (rr *replayReadCloser) Close() error               { return rr.c.Close() }

// htmlMarkers are elements whose presence near the top of a document mark it
// as a web page rather than raw image bytes.
var htmlMarkers = map[string]bool{
	"html":  true,
	"head":  true,
	"body":  true,
	"title": true,
	"meta":  true,
}

// isHTMLDocument reports whether the snippet is the start of an HTML page,
// e.g. Drive's rate-limit or virus-scan interstitial served with a 200.
func isHTMLDocument(snippet []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(snippet))
	for i := 0; i < 16; i++ {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if htmlMarkers[string(name)] {
				return true
			}
		}
	}
	return false
}
