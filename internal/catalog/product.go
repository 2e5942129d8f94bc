package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexcomrie/Garden-Club/internal/imageurl"
)

// Product is one row of a per-business product sheet. ImageURL is already
// resolved to a direct form; callers never see the raw share link.
type Product struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	InStock     bool    `json:"inStock"`
}

const productMinColumns = 6

// productFromRow maps a parsed CSV row positionally into a Product. Bad price
// cells become 0 rather than failing the row.
func productFromRow(row []string) Product {
	category := row[1]
	if category == "" {
		category = "Other"
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		price = 0
	}
	imageURL := ""
	if row[4] != "" {
		imageURL = imageurl.Direct(row[4])
	}
	return Product{
		Name:        row[0],
		Category:    category,
		Price:       price,
		Description: row[3],
		ImageURL:    imageURL,
		InStock:     strings.EqualFold(row[5], "in stock"),
	}
}

// ProductGroups is a category→products mapping that preserves the order in
// which categories were first seen during parsing. It marshals to a plain
// JSON object with keys in that order.
type ProductGroups struct {
	categories []string
	items      map[string][]Product
}

func NewProductGroups() *ProductGroups {
	return &ProductGroups{items: make(map[string][]Product)}
}

// Add appends p to its category group, creating the group on first sight.
func (g *ProductGroups) Add(p Product) {
	if _, ok := g.items[p.Category]; !ok {
		g.categories = append(g.categories, p.Category)
	}
	g.items[p.Category] = append(g.items[p.Category], p)
}

// Categories returns category names in first-seen order.
func (g *ProductGroups) Categories() []string {
	out := make([]string, len(g.categories))
	copy(out, g.categories)
	return out
}

// Get returns the products in a category, in source row order.
func (g *ProductGroups) Get(category string) []Product {
	return g.items[category]
}

// Len returns the total number of products across all categories.
func (g *ProductGroups) Len() int {
	n := 0
	for _, ps := range g.items {
		n += len(ps)
	}
	return n
}

func (g *ProductGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range g.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(g.items[cat])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *ProductGroups) UnmarshalJSON(data []byte) error {
	g.categories = nil
	g.items = make(map[string][]Product)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("product groups: expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		category, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("product groups: non-string key %v", keyTok)
		}
		var products []Product
		if err := dec.Decode(&products); err != nil {
			return fmt.Errorf("product groups: decoding category %q: %w", category, err)
		}
		if _, seen := g.items[category]; !seen {
			g.categories = append(g.categories, category)
		}
		g.items[category] = append(g.items[category], products...)
	}
	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
