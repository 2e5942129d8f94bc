package cart

import (
	"errors"
	"testing"
	"time"

	"github.com/alexcomrie/Garden-Club/internal/catalog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(time.Hour)
}

func TestCreateValidCart(t *testing.T) {
	m := newTestManager(t)

	c, err := m.Create(CreateRequest{
		CustomerName:   "Ann",
		DeliveryOption: "pickup",
		PickupTime:     "Saturday 10am",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Error("cart has no id")
	}
	if c.DeliveryOption != DeliveryPickup {
		t.Errorf("DeliveryOption = %q, want pickup", c.DeliveryOption)
	}
}

func TestCreateRejectsBadDeliveryOption(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "teleport"}); err == nil {
		t.Error("Create accepted an unknown delivery option")
	}
	if _, err := m.Create(CreateRequest{DeliveryOption: "pickup"}); err == nil {
		t.Error("Create accepted a missing customer name")
	}
	if _, err := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "delivery"}); err == nil {
		t.Error("Create accepted delivery without an address")
	}
}

func TestAddItemMergesDuplicateLines(t *testing.T) {
	m := newTestManager(t)
	c, err := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "pickup"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rose := catalog.Product{Name: "Rose", Category: "Flowers", Price: 12.5}
	if _, err := m.AddItem(c.ID, AddItemRequest{BusinessID: "rose_garden", Product: rose, Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	got, err := m.AddItem(c.ID, AddItemRequest{BusinessID: "rose_garden", Product: rose, Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if len(got.Items) != 1 {
		t.Fatalf("cart has %d lines, want 1 merged line", len(got.Items))
	}
	if got.Items[0].Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", got.Items[0].Quantity)
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	m := newTestManager(t)
	c, _ := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "pickup"})

	_, err := m.AddItem(c.ID, AddItemRequest{
		BusinessID: "rose_garden",
		Product:    catalog.Product{Name: "Rose"},
		Quantity:   0,
	})
	if err == nil {
		t.Error("AddItem accepted quantity 0")
	}
}

func TestRemoveItem(t *testing.T) {
	m := newTestManager(t)
	c, _ := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "pickup"})

	rose := catalog.Product{Name: "Rose", Price: 12.5}
	if _, err := m.AddItem(c.ID, AddItemRequest{BusinessID: "rose_garden", Product: rose, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	got, err := m.RemoveItem(c.ID, "rose_garden", "Rose")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(got.Items) != 0 {
		t.Errorf("cart has %d lines after removal, want 0", len(got.Items))
	}

	if _, err := m.RemoveItem(c.ID, "rose_garden", "Rose"); err == nil {
		t.Error("RemoveItem succeeded for an absent line")
	}
}

func TestSummarizeDeliveryCosts(t *testing.T) {
	cost := 250.0
	islandCost := 1200.0
	business := catalog.Business{
		ID:                     "rose_garden",
		DeliveryCost:           &cost,
		IslandWideDeliveryCost: &islandCost,
	}

	tests := []struct {
		option       string
		address      string
		wantDelivery float64
	}{
		{"pickup", "", 0},
		{"delivery", "12 Main St", 250},
		{"island_wide", "12 Main St", 1200},
	}

	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			m := newTestManager(t)
			c, err := m.Create(CreateRequest{
				CustomerName:    "Ann",
				DeliveryOption:  tt.option,
				DeliveryAddress: tt.address,
			})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			rose := catalog.Product{Name: "Rose", Price: 10}
			if _, err := m.AddItem(c.ID, AddItemRequest{BusinessID: business.ID, Product: rose, Quantity: 3}); err != nil {
				t.Fatalf("AddItem: %v", err)
			}

			sum, err := m.Summarize(c.ID, business)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if sum.Subtotal != 30 {
				t.Errorf("Subtotal = %v, want 30", sum.Subtotal)
			}
			if sum.DeliveryCost != tt.wantDelivery {
				t.Errorf("DeliveryCost = %v, want %v", sum.DeliveryCost, tt.wantDelivery)
			}
			if sum.Total != 30+tt.wantDelivery {
				t.Errorf("Total = %v, want %v", sum.Total, 30+tt.wantDelivery)
			}
		})
	}
}

func TestGetUnknownCart(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope) = %v, want ErrNotFound", err)
	}
}

func TestSweepExpiresIdleCarts(t *testing.T) {
	m := NewManager(time.Minute)
	c, _ := m.Create(CreateRequest{CustomerName: "Ann", DeliveryOption: "pickup"})

	m.mu.Lock()
	m.carts[c.ID].UpdatedAt = time.Now().UTC().Add(-2 * time.Minute)
	m.mu.Unlock()

	m.sweep()

	if _, err := m.Get(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired cart still retrievable: %v", err)
	}
}
