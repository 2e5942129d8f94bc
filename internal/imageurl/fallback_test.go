package imageurl

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

// scriptedDoer answers each request from a URL-substring → response table and
// records the URLs it was asked for.
type scriptedDoer struct {
	responses []scriptedResponse
	requested []string
}

type scriptedResponse struct {
	match       string
	status      int
	contentType string
	body        string
	err         error
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	d.requested = append(d.requested, url)
	for _, r := range d.responses {
		if strings.Contains(url, r.match) {
			if r.err != nil {
				return nil, r.err
			}
			resp := &http.Response{
				StatusCode: r.status,
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader(r.body)),
			}
			if r.contentType != "" {
				resp.Header.Set("Content-Type", r.contentType)
			}
			return resp, nil
		}
	}
	return &http.Response{
		StatusCode: 404,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

const driveRaw = "https://drive.google.com/file/d/ABC123/view?usp=sharing"

func TestLoaderFirstCandidateWins(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "uc?export=view", status: 200, contentType: "image/jpeg", body: "jpegbytes"},
	}}
	l := NewLoader(ViewerCandidates(), doer, nil)
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer res.Body.Close()

	if res.Status != StatusLoaded || res.Attempts != 1 {
		t.Errorf("result = %s after %d attempts, want loaded after 1", res.Status, res.Attempts)
	}
	if len(doer.requested) != 1 {
		t.Errorf("made %d requests, want 1 (no further requests after success)", len(doer.requested))
	}
	if l.Status() != StatusLoaded {
		t.Errorf("Status = %s, want loaded", l.Status())
	}
}

func TestLoaderFallsBackToThumbnail(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "uc?export=view", status: 403, body: "blocked"},
		{match: "thumbnail?id=ABC123", status: 200, contentType: "image/png", body: "pngbytes"},
	}}
	l := NewLoader(ViewerCandidates(), doer, nil)
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer res.Body.Close()

	if res.Status != StatusLoaded || res.Attempts != 2 {
		t.Errorf("result = %s after %d attempts, want loaded after 2", res.Status, res.Attempts)
	}
}

func TestLoaderHTMLInterstitialTriggersFallback(t *testing.T) {
	interstitial := "<!DOCTYPE html><html><head><title>Sorry...</title></head><body>rate limited</body></html>"
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "uc?export=view", status: 200, contentType: "text/html", body: interstitial},
		{match: "thumbnail?id=ABC123", status: 200, contentType: "image/png", body: "pngbytes"},
	}}
	l := NewLoader(ViewerCandidates(), doer, nil)
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer res.Body.Close()

	if res.Attempts != 2 {
		t.Errorf("HTML interstitial should not count as a load; got %d attempts, want 2", res.Attempts)
	}
}

func TestLoaderNoFileIDSkipsToTerminal(t *testing.T) {
	// A Drive URL with no extractable id: attempt 0 (proxied) fails, and the
	// thumbnail attempt cannot be formed, so the machine goes straight to the
	// terminal placeholder state.
	raw := "https://drive.google.com/drive/my-files"
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "drive.google.com", status: 403, body: "no"},
	}}
	errCount := 0
	l := NewLoader(ViewerCandidates(), doer, func() { errCount++ })
	l.Reset(raw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if res.Status != StatusFailedTerminal {
		t.Fatalf("result = %s, want terminal failure", res.Status)
	}
	if res.URL != PlaceholderPath {
		t.Errorf("URL = %q, want placeholder", res.URL)
	}
	if res.Body != nil {
		t.Error("terminal failure must not carry a body")
	}
	if errCount != 1 {
		t.Errorf("onError fired %d times, want exactly 1", errCount)
	}
	if len(doer.requested) != 1 {
		t.Errorf("made %d requests, want 1 (attempt 1 skipped straight to terminal)", len(doer.requested))
	}
}

func TestLoaderAllCandidatesFail(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "drive.google.com", status: 500, body: "down"},
	}}
	errCount := 0
	l := NewLoader(ViewerCandidates(), doer, func() { errCount++ })
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Status != StatusFailedTerminal {
		t.Fatalf("result = %s, want terminal failure", res.Status)
	}
	if errCount != 1 {
		t.Errorf("onError fired %d times, want exactly 1", errCount)
	}
	if len(doer.requested) != 3 {
		t.Errorf("made %d requests, want 3 (one per candidate)", len(doer.requested))
	}
}

func TestLoaderTerminalStateRequiresReset(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "drive.google.com", status: 500, body: "down"},
	}}
	errCount := 0
	l := NewLoader(ViewerCandidates(), doer, func() { errCount++ })
	l.Reset(driveRaw, 1)

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("second Load in terminal state should error without Reset")
	}
	if errCount != 1 {
		t.Errorf("onError fired %d times across terminal calls, want 1", errCount)
	}

	// Reset restarts at attempt 0 and clears terminal state.
	doer.responses = []scriptedResponse{
		{match: "uc?export=view", status: 200, contentType: "image/gif", body: "gifbytes"},
	}
	l.Reset(driveRaw, 2)
	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load after Reset: %v", err)
	}
	defer res.Body.Close()
	if res.Status != StatusLoaded || res.Attempts != 1 {
		t.Errorf("after Reset: %s in %d attempts, want loaded in 1", res.Status, res.Attempts)
	}
}

func TestLoaderCacheBustingToken(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "uc?export=view", status: 200, contentType: "image/jpeg", body: "x"},
	}}
	l := NewLoader(ViewerCandidates(), doer, nil)
	l.Reset(driveRaw, 42)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer res.Body.Close()

	if !strings.Contains(res.URL, "t=42") {
		t.Errorf("winning URL %q missing cache-busting token", res.URL)
	}
}

func TestLoaderEmptySourceIsTerminal(t *testing.T) {
	fired := false
	l := NewLoader(ViewerCandidates(), &scriptedDoer{}, func() { fired = true })
	l.Reset("", 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Status != StatusFailedTerminal || res.URL != PlaceholderPath {
		t.Errorf("result = %+v, want immediate placeholder", res)
	}
	if !fired {
		t.Error("onError should fire for an empty source")
	}
}

func TestCardCandidatesSingleAttempt(t *testing.T) {
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "thumbnail?id=ABC123", status: 404, body: ""},
	}}
	errCount := 0
	l := NewLoader(CardCandidates(), doer, func() { errCount++ })
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Status != StatusFailedTerminal {
		t.Fatalf("result = %s, want terminal after the single direct attempt", res.Status)
	}
	if len(doer.requested) != 1 {
		t.Errorf("made %d requests, want 1 (card machine has no multi-stage retry)", len(doer.requested))
	}
	if errCount != 1 {
		t.Errorf("onError fired %d times, want 1", errCount)
	}
}

func TestLoaderProbeSniffsMissingContentType(t *testing.T) {
	// PNG magic bytes with no Content-Type header should still be accepted.
	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 32)
	doer := &scriptedDoer{responses: []scriptedResponse{
		{match: "uc?export=view", status: 200, body: png},
	}}
	l := NewLoader(ViewerCandidates(), doer, nil)
	l.Reset(driveRaw, 1)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer res.Body.Close()

	if res.Status != StatusLoaded {
		t.Fatalf("result = %s, want loaded", res.Status)
	}
	if !strings.HasPrefix(res.ContentType, "image/png") {
		t.Errorf("ContentType = %q, want sniffed image/png", res.ContentType)
	}
	got, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(got) != png {
		t.Error("peeked bytes were not replayed into the body")
	}
}

func TestViewerCandidateOrder(t *testing.T) {
	candidates := ViewerCandidates()
	if len(candidates) != 3 {
		t.Fatalf("viewer sequence has %d candidates, want 3", len(candidates))
	}

	urls := make([]string, 0, 3)
	for _, c := range candidates {
		u, ok := c(driveRaw, 9)
		if !ok {
			t.Fatal("candidate unexpectedly skipped for a well-formed Drive URL")
		}
		urls = append(urls, u)
	}

	checks := []string{ProxyPath + "?url=", "thumbnail?id=ABC123", "thumbnail?id=ABC123"}
	for i, want := range checks {
		if !strings.Contains(urls[i], want) {
			t.Errorf("candidate %d = %q, want it to contain %q", i, urls[i], want)
		}
		if !strings.Contains(urls[i], "t=9") {
			t.Errorf("candidate %d = %q missing cache-busting token", i, urls[i])
		}
	}
}
