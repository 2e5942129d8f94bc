// Package imageproxy is a same-origin relay for image fetches: the server
// performs the HTTP GET in the client's place, defeating the cross-origin
// and referrer checks that block Drive images in an <img> tag.
package imageproxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultMaxBytes = 10 << 20 // 10MB
)

// Handler serves GET /api/image-proxy?url=<percent-encoded absolute URL>.
// It is stateless: no caching, no auth, no rate limiting. Each request is
// one upstream fetch streamed straight back to the client, so a slow reader
// naturally throttles the upstream body.
type Handler struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Handler with default timeout and size cap.
func New() *Handler {
	return NewWithOptions(defaultTimeout, defaultMaxBytes)
}

// NewWithOptions creates a Handler with an explicit upstream timeout and
// response size cap.
func NewWithOptions(timeout time.Duration, maxBytes int64) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Handler{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   slog.Default(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		http.Error(w, "Missing image URL", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		http.Error(w, "Invalid image URL", http.StatusBadRequest)
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("image proxy upstream fetch failed", "url", imageURL, "error", err)
		http.Error(w, "Error proxying image", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Warn("image proxy upstream status", "url", imageURL, "status", resp.StatusCode)
		http.Error(w, fmt.Sprintf("Failed to fetch image: %s", resp.Status), resp.StatusCode)
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.maxBytes)); err != nil {
		// Headers are already out; nothing left to do but note it.
		h.logger.Debug("image proxy stream interrupted", "url", imageURL, "error", err)
	}
}
