// Package api exposes the storefront over HTTP: the business roster, per
// business product catalogs, cart sessions, and the image resolution and
// relay endpoints the catalog's Drive-hosted pictures depend on.
package api

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alexcomrie/Garden-Club/internal/cart"
	"github.com/alexcomrie/Garden-Club/internal/catalog"
	"github.com/alexcomrie/Garden-Club/internal/imageurl"
)

const maxRequestBodySize = 1 << 20 // 1MB

//go:embed assets/placeholder.svg
var assetsFS embed.FS

// AppDeps holds everything the HTTP layer needs.
type AppDeps struct {
	Catalog     *catalog.Cache
	Carts       *cart.Manager
	Proxy       http.Handler
	ImageClient imageurl.Doer // optional; defaults to a plain client with a timeout
	AdminToken  string        // optional; guards POST /api/refresh when set
	Version     string
}

// NewAppHandler wires the full route table.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.ImageClient == nil {
		deps.ImageClient = &http.Client{Timeout: 20 * time.Second}
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Get(imageurl.PlaceholderPath, handlePlaceholder)

	r.Get("/api/businesses", handleListBusinesses(deps))
	r.Get("/api/businesses/{id}", handleGetBusiness(deps))
	r.Get("/api/businesses/{id}/products", handleListProducts(deps))

	if deps.AdminToken != "" {
		r.With(BearerAuth(deps.AdminToken)).Post("/api/refresh", handleRefresh(deps))
	} else {
		r.Post("/api/refresh", handleRefresh(deps))
	}

	r.Handle(imageurl.ProxyPath, deps.Proxy)
	r.Get("/api/image", handleImage(deps))
	r.Get("/api/image/resolve", handleResolveImage(deps))

	r.Post("/api/carts", handleCreateCart(deps))
	r.Get("/api/carts/{id}", handleGetCart(deps))
	r.Post("/api/carts/{id}/items", handleAddCartItem(deps))
	r.Delete("/api/carts/{id}/items", handleRemoveCartItem(deps))
	r.Get("/api/carts/{id}/summary", handleCartSummary(deps))

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"businesses": deps.Catalog.CachedBusinesses(),
			"version":    deps.Version,
		})
	}
}

func handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	svg, err := assetsFS.ReadFile("assets/placeholder.svg")
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "placeholder asset missing: %v", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(svg)
}

func handleListBusinesses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businesses, err := deps.Catalog.LoadBusinesses(r.Context())
		if err != nil {
			catalogError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(businesses)
	}
}

func handleGetBusiness(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		business, ok, err := deps.Catalog.BusinessByID(r.Context(), id)
		if err != nil {
			catalogError(w, err)
			return
		}
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "business %q not found", id)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(business)
	}
}

func handleListProducts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		business, ok, err := deps.Catalog.BusinessByID(r.Context(), id)
		if err != nil {
			catalogError(w, err)
			return
		}
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "business %q not found", id)
			return
		}

		groups, err := deps.Catalog.LoadProducts(r.Context(), business.ProductSheetURL)
		if err != nil {
			catalogError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(groups)
	}
}

func handleRefresh(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businesses, err := deps.Catalog.Refresh(r.Context())
		if err != nil {
			catalogError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "refreshed",
			"businesses": len(businesses),
			"token":      deps.Catalog.Token(),
		})
	}
}

// handleImage runs the fallback sequence server-side and streams the winning
// candidate's bytes, or the placeholder graphic when every form fails.
func handleImage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := r.URL.Query().Get("src")
		if src == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "src is required")
			return
		}

		var candidates []imageurl.Candidate
		switch variant := r.URL.Query().Get("variant"); variant {
		case "", "viewer":
			candidates = imageurl.ViewerCandidates()
		case "card":
			candidates = imageurl.CardCandidates()
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown variant %q", variant)
			return
		}

		loader := imageurl.NewLoader(candidates, deps.ImageClient, nil)
		loader.Reset(src, deps.Catalog.Token())

		result, err := loader.Load(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "image load aborted: %v", err)
			return
		}

		w.Header().Set("X-Image-Attempts", strconv.Itoa(result.Attempts))
		if result.Status == imageurl.StatusFailedTerminal {
			handlePlaceholder(w, r)
			return
		}
		defer result.Body.Close()

		if result.ContentType != "" {
			w.Header().Set("Content-Type", result.ContentType)
		}
		io.Copy(w, result.Body)
	}
}

func handleResolveImage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := r.URL.Query().Get("src")
		if src == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "src is required")
			return
		}

		token := deps.Catalog.Token()
		resp := map[string]any{
			"source":  src,
			"direct":  imageurl.WithToken(imageurl.Direct(src), token),
			"proxied": imageurl.WithToken(imageurl.Proxied(src), token),
			"token":   token,
		}
		if id, ok := imageurl.ExtractFileID(src); ok {
			resp["fileId"] = id
			resp["thumbnail"] = imageurl.WithToken(
				fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w1000", id), token)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleCreateCart(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req cart.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		c, err := deps.Carts.Create(req)
		if err != nil {
			cartError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(c)
	}
}

func handleGetCart(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Carts.Get(chi.URLParam(r, "id"))
		if err != nil {
			cartError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleAddCartItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req cart.AddItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		c, err := deps.Carts.AddItem(chi.URLParam(r, "id"), req)
		if err != nil {
			cartError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleRemoveCartItem(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := r.URL.Query().Get("businessId")
		productName := r.URL.Query().Get("product")
		if businessID == "" || productName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "businessId and product are required")
			return
		}

		c, err := deps.Carts.RemoveItem(chi.URLParam(r, "id"), businessID, productName)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				cartError(w, err)
				return
			}
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleCartSummary(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := r.URL.Query().Get("businessId")
		if businessID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "businessId is required")
			return
		}

		business, ok, err := deps.Catalog.BusinessByID(r.Context(), businessID)
		if err != nil {
			catalogError(w, err)
			return
		}
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "business %q not found", businessID)
			return
		}

		summary, err := deps.Carts.Summarize(chi.URLParam(r, "id"), business)
		if err != nil {
			cartError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// catalogError maps catalog failures onto HTTP: bad input is the caller's
// fault, a failed sheet fetch is the upstream's.
func catalogError(w http.ResponseWriter, err error) {
	var verr *catalog.ValidationError
	var ferr *catalog.FetchError
	switch {
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.As(err, &ferr):
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func cartError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, cart.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "cart not found")
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
