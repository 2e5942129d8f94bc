// Package imageurl turns user-supplied Google Drive share links into URLs
// that actually render, and drives the fallback sequence used when a given
// form is blocked or malformed.
package imageurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ProxyPath is the same-origin relay endpoint; Proxied wraps candidate URLs
// as its url query parameter.
const ProxyPath = "/api/image-proxy"

var fileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),
}

// ExtractFileID pulls the Drive file identifier out of any of the share-link
// forms owners paste into the sheet: /file/d/<id>/, /d/<id>, and id=<id>.
func ExtractFileID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, re := range fileIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Direct maps a raw share link to a directly embeddable URL. Drive links
// become thumbnail-service URLs, which tolerate embedding far better than
// the view form; anything else passes through unchanged.
func Direct(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "drive.google.com") {
		return raw
	}
	id, ok := ExtractFileID(raw)
	if !ok {
		return raw
	}
	return fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w1000", id)
}

// Proxied rewrites Drive links to the canonical uc?export=view form and wraps
// the whole result as a query parameter of the same-origin image proxy, so
// the browser never talks to Drive directly.
func Proxied(raw string) string {
	if raw == "" {
		return ""
	}
	direct := raw
	if strings.Contains(raw, "drive.google.com") {
		if id, ok := ExtractFileID(raw); ok {
			direct = fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", id)
		}
	}
	return ProxyPath + "?url=" + url.QueryEscape(direct)
}

// WithToken appends a cache-busting token so a refresh bypasses the browser's
// HTTP cache.
func WithToken(u string, token uint64) string {
	if u == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", u, sep, token)
}

// Unproxy undoes Proxied: given a same-origin proxy URL it returns the
// wrapped upstream URL. Used when the fallback machine runs server-side and
// can fetch the upstream itself instead of calling back into its own relay.
func Unproxy(u string) (string, bool) {
	if !strings.HasPrefix(u, ProxyPath+"?") {
		return "", false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", false
	}
	inner := parsed.Query().Get("url")
	if inner == "" {
		return "", false
	}
	return inner, true
}
