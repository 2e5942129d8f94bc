package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	fetchTimeout = 30 * time.Second
	maxSheetSize = 10 << 20 // 10MB
)

// Fetcher retrieves a published sheet export as raw CSV text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SheetFetcher fetches published-spreadsheet CSV exports over HTTP.
type SheetFetcher struct {
	httpClient *http.Client
}

// NewSheetFetcher creates a SheetFetcher with a default timeout.
func NewSheetFetcher() *SheetFetcher {
	return &SheetFetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// NewSheetFetcherWithClient creates a SheetFetcher using the given client
// (for testing).
func NewSheetFetcherWithClient(c *http.Client) *SheetFetcher {
	return &SheetFetcher{httpClient: c}
}

// Fetch downloads url and returns the body as text. A non-2xx response or an
// empty body is a *FetchError; the caller decides whether to retry.
func (f *SheetFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "building request", Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Reason: "unexpected status"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetSize))
	if err != nil {
		return "", &FetchError{URL: url, Reason: "reading response", Err: err}
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Reason: "empty response body"}
	}
	return text, nil
}

var _ Fetcher = (*SheetFetcher)(nil)
