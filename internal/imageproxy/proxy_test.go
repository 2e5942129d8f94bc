package imageproxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestProxyStreamsImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer upstream.Close()

	h := New()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+url.QueryEscape(upstream.URL+"/img.jpg"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want mirrored image/jpeg", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "jpegbytes" {
		t.Errorf("body = %q, want upstream bytes", body)
	}
}

func TestProxyMissingURL(t *testing.T) {
	h := New()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProxyMirrorsUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer upstream.Close()

	h := New()
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want mirrored 403", rec.Code)
	}
}

func TestProxyTransportError(t *testing.T) {
	h := NewWithOptions(500*time.Millisecond, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+url.QueryEscape("http://127.0.0.1:1/img.jpg"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on transport error", rec.Code)
	}
}

func TestProxySizeCap(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 2048))
	}))
	defer upstream.Close()

	h := NewWithOptions(5*time.Second, 1024)
	req := httptest.NewRequest(http.MethodGet, "/api/image-proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Body.Len() != 1024 {
		t.Errorf("streamed %d bytes, want capped at 1024", rec.Body.Len())
	}
}
