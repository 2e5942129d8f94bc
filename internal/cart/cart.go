// Package cart holds in-memory shopping cart sessions. Carts are transient:
// there is no server-side user database, so a cart lives only as long as the
// process and its idle TTL.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/alexcomrie/Garden-Club/internal/catalog"
)

// ErrNotFound is returned when a cart id does not exist (or has expired).
var ErrNotFound = errors.New("cart not found")

// DeliveryOption mirrors the storefront's three fulfillment modes.
type DeliveryOption string

const (
	DeliveryPickup     DeliveryOption = "pickup"
	DeliveryLocal      DeliveryOption = "delivery"
	DeliveryIslandWide DeliveryOption = "island_wide"
)

// Item is one product line in a cart, tied to the business it came from.
type Item struct {
	BusinessID string          `json:"businessId"`
	Product    catalog.Product `json:"product"`
	Quantity   int             `json:"quantity"`
}

// Cart is a customer's session cart.
type Cart struct {
	ID              string         `json:"id"`
	CustomerName    string         `json:"customerName"`
	DeliveryOption  DeliveryOption `json:"deliveryOption"`
	DeliveryAddress string         `json:"deliveryAddress"`
	PickupTime      string         `json:"pickupTime"`
	Items           []Item         `json:"items"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CreateRequest is the payload for opening a new cart.
type CreateRequest struct {
	CustomerName    string `json:"customerName" validate:"required"`
	DeliveryOption  string `json:"deliveryOption" validate:"required,oneof=pickup delivery island_wide"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required_unless=DeliveryOption pickup"`
	PickupTime      string `json:"pickupTime"`
}

// AddItemRequest is the payload for adding a product line to a cart.
type AddItemRequest struct {
	BusinessID string          `json:"businessId" validate:"required"`
	Product    catalog.Product `json:"product"`
	Quantity   int             `json:"quantity" validate:"required,min=1"`
}

// Summary is a checkout view of a cart against the selected business.
type Summary struct {
	Cart         Cart    `json:"cart"`
	Subtotal     float64 `json:"subtotal"`
	DeliveryCost float64 `json:"deliveryCost"`
	Total        float64 `json:"total"`
}

// Manager owns all live carts. Safe for concurrent use.
type Manager struct {
	validate *validator.Validate
	ttl      time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	carts map[string]*Cart
}

// NewManager creates a Manager whose carts expire after ttl of inactivity.
// If ttl is <= 0, it defaults to 2 hours.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{
		validate: validator.New(),
		ttl:      ttl,
		logger:   slog.Default(),
		carts:    make(map[string]*Cart),
	}
}

// Create validates the request and opens a new cart.
func (m *Manager) Create(req CreateRequest) (Cart, error) {
	if err := m.validate.Struct(req); err != nil {
		return Cart{}, fmt.Errorf("validating cart: %w", err)
	}

	c := &Cart{
		ID:              uuid.New().String(),
		CustomerName:    req.CustomerName,
		DeliveryOption:  DeliveryOption(req.DeliveryOption),
		DeliveryAddress: req.DeliveryAddress,
		PickupTime:      req.PickupTime,
		UpdatedAt:       time.Now().UTC(),
	}

	m.mu.Lock()
	m.carts[c.ID] = c
	m.mu.Unlock()

	return *c, nil
}

// Get returns a cart by id.
func (m *Manager) Get(id string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return *c, nil
}

// AddItem validates and appends a product line. A line for the same product
// from the same business bumps the quantity instead of duplicating.
func (m *Manager) AddItem(id string, req AddItemRequest) (Cart, error) {
	if err := m.validate.Struct(req); err != nil {
		return Cart{}, fmt.Errorf("validating item: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}

	for i := range c.Items {
		if c.Items[i].BusinessID == req.BusinessID && c.Items[i].Product.Name == req.Product.Name {
			c.Items[i].Quantity += req.Quantity
			c.UpdatedAt = time.Now().UTC()
			return *c, nil
		}
	}

	c.Items = append(c.Items, Item{
		BusinessID: req.BusinessID,
		Product:    req.Product,
		Quantity:   req.Quantity,
	})
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

// RemoveItem drops the line for the named product.
func (m *Manager) RemoveItem(id, businessID, productName string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}

	for i := range c.Items {
		if c.Items[i].BusinessID == businessID && c.Items[i].Product.Name == productName {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now().UTC()
			return *c, nil
		}
	}
	return Cart{}, fmt.Errorf("item %q not in cart", productName)
}

// Summarize computes checkout totals for a cart against the selected
// business's delivery pricing.
func (m *Manager) Summarize(id string, business catalog.Business) (Summary, error) {
	c, err := m.Get(id)
	if err != nil {
		return Summary{}, err
	}

	var subtotal float64
	for _, item := range c.Items {
		subtotal += item.Product.Price * float64(item.Quantity)
	}

	var deliveryCost float64
	switch c.DeliveryOption {
	case DeliveryLocal:
		if business.DeliveryCost != nil {
			deliveryCost = *business.DeliveryCost
		}
	case DeliveryIslandWide:
		if business.IslandWideDeliveryCost != nil {
			deliveryCost = *business.IslandWideDeliveryCost
		}
	}

	return Summary{
		Cart:         c,
		Subtotal:     subtotal,
		DeliveryCost: deliveryCost,
		Total:        subtotal + deliveryCost,
	}, nil
}

// Run sweeps expired carts until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().UTC().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.carts {
		if c.UpdatedAt.Before(cutoff) {
			delete(m.carts, id)
			m.logger.Debug("expired idle cart", "cart_id", id)
		}
	}
}
