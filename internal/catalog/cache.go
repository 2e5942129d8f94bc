package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// CacheStore is the persistent tier the cache writes through. Reads happen
// only when the memory tier is empty; any store failure is logged and
// swallowed, never surfaced.
type CacheStore interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// Cache is the two-tier catalog cache: an in-memory map backed by a
// persistent store, with the network as the source of truth. All writes are
// whole-value replacements, so a check-then-fetch race between callers costs
// at worst a duplicate fetch, never corruption.
type Cache struct {
	store           CacheStore
	fetcher         Fetcher
	profileSheetURL string
	logger          *slog.Logger

	mu         sync.RWMutex
	businesses []Business
	products   map[string]*ProductGroups

	token atomic.Uint64
}

// NewCache creates a Cache over the given collaborators. store may be nil,
// in which case the persistent tier is skipped entirely.
func NewCache(store CacheStore, fetcher Fetcher, profileSheetURL string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:           store,
		fetcher:         fetcher,
		profileSheetURL: profileSheetURL,
		logger:          logger,
		products:        make(map[string]*ProductGroups),
	}
}

// Token returns the current refresh token. It increases monotonically with
// every forced refresh and is appended to image URLs for cache busting.
func (c *Cache) Token() uint64 {
	return c.token.Load()
}

// CachedBusinesses returns the number of businesses currently held in the
// memory tier without touching the store or the network.
func (c *Cache) CachedBusinesses() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.businesses)
}

// LoadBusinesses returns the visible business roster: memory first, then
// persistent store, then the network. An empty roster is always an error,
// never a valid result.
func (c *Cache) LoadBusinesses(ctx context.Context) ([]Business, error) {
	c.mu.RLock()
	if len(c.businesses) > 0 {
		defer c.mu.RUnlock()
		return c.businesses, nil
	}
	c.mu.RUnlock()

	if businesses := c.hydrateBusinesses(); len(businesses) > 0 {
		c.mu.Lock()
		c.businesses = businesses
		c.mu.Unlock()
		return businesses, nil
	}

	return c.fetchBusinesses(ctx)
}

// Refresh bypasses both cache tiers, refetches the roster from the network,
// replaces the memory tier wholesale, and bumps the refresh token.
func (c *Cache) Refresh(ctx context.Context) ([]Business, error) {
	businesses, err := c.fetchBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	c.token.Add(1)
	return businesses, nil
}

// BusinessByID returns the business with the given derived id.
func (c *Cache) BusinessByID(ctx context.Context, id string) (Business, bool, error) {
	businesses, err := c.LoadBusinesses(ctx)
	if err != nil {
		return Business{}, false, err
	}
	for _, b := range businesses {
		if b.ID == id {
			return b, true, nil
		}
	}
	return Business{}, false, nil
}

// LoadProducts returns the grouped products for one business's sheet.
// Resolution order matches LoadBusinesses, except that an empty persisted
// group map is not an error: a previously persisted fetch may legitimately
// be empty, so it simply falls through to the network.
func (c *Cache) LoadProducts(ctx context.Context, sheetURL string) (*ProductGroups, error) {
	if sheetURL == "" {
		return nil, &ValidationError{Field: "product sheet URL", Reason: "must not be blank"}
	}

	c.mu.RLock()
	if groups, ok := c.products[sheetURL]; ok {
		c.mu.RUnlock()
		return groups, nil
	}
	c.mu.RUnlock()

	if groups := c.hydrateProducts(sheetURL); groups != nil && groups.Len() > 0 {
		c.mu.Lock()
		c.products[sheetURL] = groups
		c.mu.Unlock()
		return groups, nil
	}

	return c.fetchProducts(ctx, sheetURL)
}

// RefreshProducts bypasses both cache tiers for one sheet and refetches it
// from the network, replacing any cached groups.
func (c *Cache) RefreshProducts(ctx context.Context, sheetURL string) (*ProductGroups, error) {
	if sheetURL == "" {
		return nil, &ValidationError{Field: "product sheet URL", Reason: "must not be blank"}
	}
	return c.fetchProducts(ctx, sheetURL)
}

// --- persistent tier ---

func productsKey(sheetURL string) string {
	return "products_" + base64.StdEncoding.EncodeToString([]byte(sheetURL))
}

func (c *Cache) hydrateBusinesses() []Business {
	if c.store == nil {
		return nil
	}
	raw, err := c.store.Get("businesses")
	if err != nil {
		return nil
	}
	var businesses []Business
	if err := json.Unmarshal([]byte(raw), &businesses); err != nil {
		c.logger.Warn("discarding unreadable persisted businesses", "error", err)
		return nil
	}
	// Parse-time filtering means persisted records should already be
	// visible; re-check in case an older payload predates the filter.
	visible := businesses[:0]
	for _, b := range businesses {
		if b.Visible() {
			visible = append(visible, b)
		}
	}
	return visible
}

func (c *Cache) hydrateProducts(sheetURL string) *ProductGroups {
	if c.store == nil {
		return nil
	}
	raw, err := c.store.Get(productsKey(sheetURL))
	if err != nil {
		return nil
	}
	groups := NewProductGroups()
	if err := json.Unmarshal([]byte(raw), groups); err != nil {
		c.logger.Warn("discarding unreadable persisted products", "sheet_url", sheetURL, "error", err)
		return nil
	}
	return groups
}

// persist writes a payload and its companion _time key. Best effort: any
// failure is logged and dropped.
func (c *Cache) persist(key string, payload any) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("marshaling cache payload", "key", key, "error", err)
		return
	}
	if err := c.store.Put(key, string(data)); err != nil {
		c.logger.Warn("persisting cache payload", "key", key, "error", err)
		return
	}
	millis := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := c.store.Put(key+"_time", millis); err != nil {
		c.logger.Warn("persisting cache timestamp", "key", key, "error", err)
	}
}

// --- network tier ---

func (c *Cache) fetchBusinesses(ctx context.Context) ([]Business, error) {
	text, err := c.fetcher.Fetch(ctx, c.profileSheetURL)
	if err != nil {
		return nil, fmt.Errorf("loading businesses: %w", err)
	}

	businesses := ParseBusinesses(text)
	if len(businesses) == 0 {
		return nil, &FetchError{URL: c.profileSheetURL, Reason: "no valid businesses in sheet"}
	}

	c.persist("businesses", businesses)

	c.mu.Lock()
	c.businesses = businesses
	c.mu.Unlock()

	c.logger.Info("business roster refreshed", "count", len(businesses))
	return businesses, nil
}

func (c *Cache) fetchProducts(ctx context.Context, sheetURL string) (*ProductGroups, error) {
	text, err := c.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}

	groups := ParseProducts(text)
	if groups.Len() == 0 {
		return nil, &FetchError{URL: sheetURL, Reason: "no valid products in sheet"}
	}

	c.persist(productsKey(sheetURL), groups)

	c.mu.Lock()
	c.products[sheetURL] = groups
	c.mu.Unlock()

	c.logger.Info("products refreshed", "sheet_url", sheetURL, "count", groups.Len())
	return groups, nil
}
