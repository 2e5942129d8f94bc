package imageurl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// PlaceholderPath is the neutral graphic rendered when every candidate fails.
const PlaceholderPath = "/images/placeholder.svg"

// Status is the state of a fallback machine instance.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailedRetrying
	StatusFailedTerminal
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailedRetrying:
		return "failed-retrying"
	case StatusFailedTerminal:
		return "failed"
	}
	return "unknown"
}

// Candidate produces one candidate URL for a raw source link and a
// cache-busting token. ok=false means no URL can be produced (e.g. the
// thumbnail form when no file id is extractable), which ends the whole
// sequence: later candidates would only re-derive from the same missing id.
type Candidate func(raw string, token uint64) (url string, ok bool)

// ViewerCandidates is the fixed sequence used by the zoomable viewer:
// proxied uc?export=view, then the Drive thumbnail, then the direct
// resolver URL, each cache-busted with the token.
func ViewerCandidates() []Candidate {
	return []Candidate{
		func(raw string, token uint64) (string, bool) {
			return WithToken(Proxied(raw), token), true
		},
		func(raw string, token uint64) (string, bool) {
			id, ok := ExtractFileID(raw)
			if !ok {
				return "", false
			}
			return WithToken(fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w1000", id), token), true
		},
		func(raw string, token uint64) (string, bool) {
			return WithToken(Direct(raw), token), true
		},
	}
}

// CardCandidates is the two-state sibling machine used on catalog cards:
// one direct attempt, then straight to the placeholder.
func CardCandidates() []Candidate {
	return []Candidate{
		func(raw string, token uint64) (string, bool) {
			return WithToken(Direct(raw), token), true
		},
	}
}

// Doer executes HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Result is the terminal outcome of a Load: either the winning candidate
// with its open body, or the placeholder after exhausting the sequence.
type Result struct {
	URL         string
	Status      Status
	Attempts    int
	ContentType string
	Body        io.ReadCloser // nil when Status is StatusFailedTerminal
}

// Loader walks an ordered candidate sequence for a single rendered image
// until one candidate yields real image bytes or the sequence is exhausted.
// Instances are independent and not safe for concurrent use; create one per
// image render.
type Loader struct {
	candidates []Candidate
	client     Doer
	onError    func()
	logger     *slog.Logger

	raw        string
	token      uint64
	attempt    int
	status     Status
	errorFired bool
}

// NewLoader creates a Loader over the given candidate sequence. onError may
// be nil; when set it fires exactly once, on entering the terminal failed
// state.
func NewLoader(candidates []Candidate, client Doer, onError func()) *Loader {
	return &Loader{
		candidates: candidates,
		client:     client,
		onError:    onError,
		logger:     slog.Default(),
		status:     StatusLoading,
	}
}

// Reset points the machine at a new source URL and token, restarting at
// attempt 0 and clearing any terminal state.
func (l *Loader) Reset(raw string, token uint64) {
	l.raw = raw
	l.token = token
	l.attempt = 0
	l.status = StatusLoading
	l.errorFired = false
}

// Status returns the machine's current state.
func (l *Loader) Status() Status {
	return l.status
}

// Load drives the machine to a terminal state. Once loaded or failed it
// fires no further requests; call Reset to run the sequence again.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	if l.status == StatusLoaded || l.status == StatusFailedTerminal {
		return nil, fmt.Errorf("loader already terminal (%s); call Reset first", l.status)
	}
	if l.raw == "" {
		return l.fail(), nil
	}

	for ; l.attempt < len(l.candidates); l.attempt++ {
		candidate, ok := l.candidates[l.attempt](l.raw, l.token)
		if !ok {
			l.logger.Debug("candidate unavailable, failing terminally", "attempt", l.attempt, "source", l.raw)
			return l.fail(), nil
		}

		resp, err := l.probe(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.status = StatusFailedRetrying
			l.logger.Debug("candidate failed", "attempt", l.attempt, "url", candidate, "error", err)
			continue
		}

		l.status = StatusLoaded
		return &Result{
			URL:         candidate,
			Status:      StatusLoaded,
			Attempts:    l.attempt + 1,
			ContentType: resp.contentType,
			Body:        resp.body,
		}, nil
	}

	return l.fail(), nil
}

func (l *Loader) fail() *Result {
	l.status = StatusFailedTerminal
	if l.onError != nil && !l.errorFired {
		l.errorFired = true
		l.onError()
	}
	return &Result{
		URL:      PlaceholderPath,
		Status:   StatusFailedTerminal,
		Attempts: l.attempt,
	}
}

type probeResponse struct {
	contentType string
	body        io.ReadCloser
}

// probe fetches a candidate and accepts it only when the response carries
// image bytes. Same-origin proxied candidates are unwrapped and fetched
// upstream directly rather than looping through our own relay.
func (l *Loader) probe(ctx context.Context, candidate string) (*probeResponse, error) {
	target := candidate
	if inner, ok := Unproxy(candidate); ok {
		target = inner
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return &probeResponse{contentType: contentType, body: resp.Body}, nil
	}

	// Drive serves an HTML interstitial (rate limit, virus scan prompt) with
	// a 200 for blocked files. Sniff the body before trusting it.
	snippet, body, err := peek(resp.Body, sniffLimit)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if isHTMLDocument(snippet) {
		body.Close()
		return nil, fmt.Errorf("upstream returned an HTML page, not an image")
	}
	if contentType == "" {
		contentType = http.DetectContentType(snippet)
	}
	return &probeResponse{contentType: contentType, body: body}, nil
}
