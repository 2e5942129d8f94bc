package catalog

import (
	"strings"
	"testing"
)

func TestParseRowQuotedFields(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted field with comma",
			line: `"Kingston, JA",roses`,
			want: []string{"Kingston, JA", "roses"},
		},
		{
			name: "escaped quote inside quotes",
			line: `"Smith, ""Flower"" Co",owner`,
			want: []string{`Smith, "Flower" Co`, "owner"},
		},
		{
			name: "whitespace trimmed per field",
			line: "  a , b ,c  ",
			want: []string{"a", "b", "c"},
		},
		{
			name: "empty trailing field",
			line: "a,b,",
			want: []string{"a", "b", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRow(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseRow(%q) = %v, want %v", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

const businessHeader = "name,owner,address,phone,whatsapp,email,hasDelivery,deliveryArea,operationHours,specialHours,profilePictureUrl,productSheetUrl,status,bio"

func businessLine(name, picture, status string) string {
	return strings.Join([]string{
		name, "Jane", "12 Main St", "876-555-0100", "876-555-0100", "jane@example.com",
		"Yes", "Kingston", "9-5", "", picture, "https://example.com/products.csv", status, "A garden.",
	}, ",")
}

func TestParseBusinessesVisibilityFilter(t *testing.T) {
	csvText := strings.Join([]string{
		businessHeader,
		businessLine("Rose Garden", "https://drive.google.com/file/d/abc/view", "Active"),
		businessLine("Closed Garden", "https://drive.google.com/file/d/def/view", "inactive"),
		businessLine("No Picture", "", "active"),
	}, "\n")

	businesses := ParseBusinesses(csvText)
	if len(businesses) != 1 {
		t.Fatalf("ParseBusinesses kept %d records, want 1", len(businesses))
	}
	if businesses[0].Name != "Rose Garden" {
		t.Errorf("kept %q, want Rose Garden", businesses[0].Name)
	}
	if businesses[0].ID != "rose_garden" {
		t.Errorf("ID = %q, want rose_garden", businesses[0].ID)
	}
	if businesses[0].Status != "active" {
		t.Errorf("Status = %q, want lowercased active", businesses[0].Status)
	}
}

func TestParseBusinessesShortRowSkipped(t *testing.T) {
	csvText := businessHeader + "\nonly,three,fields\n"
	if got := ParseBusinesses(csvText); len(got) != 0 {
		t.Errorf("short row produced %d records, want 0", len(got))
	}
}

func TestParseBusinessesOptionalColumns(t *testing.T) {
	line := businessLine("Rose Garden", "https://example.com/p.jpg", "active") +
		",18.0 -76.8,250.50,yes,1200"
	csvText := businessHeader + ",mapLocation,deliveryCost,islandWide,islandWideCost\n" + line

	businesses := ParseBusinesses(csvText)
	if len(businesses) != 1 {
		t.Fatalf("ParseBusinesses kept %d records, want 1", len(businesses))
	}
	b := businesses[0]
	if b.MapLocation != "18.0 -76.8" {
		t.Errorf("MapLocation = %q", b.MapLocation)
	}
	if b.DeliveryCost == nil || *b.DeliveryCost != 250.50 {
		t.Errorf("DeliveryCost = %v, want 250.50", b.DeliveryCost)
	}
	if b.IslandWideDeliveryCost == nil || *b.IslandWideDeliveryCost != 1200 {
		t.Errorf("IslandWideDeliveryCost = %v, want 1200", b.IslandWideDeliveryCost)
	}
}

func TestParseBusinessesBadDeliveryCostIsNull(t *testing.T) {
	line := businessLine("Rose Garden", "https://example.com/p.jpg", "active") + ",loc,not-a-number"
	csvText := businessHeader + ",mapLocation,deliveryCost\n" + line

	businesses := ParseBusinesses(csvText)
	if len(businesses) != 1 {
		t.Fatalf("ParseBusinesses kept %d records, want 1", len(businesses))
	}
	if businesses[0].DeliveryCost != nil {
		t.Errorf("DeliveryCost = %v, want nil", *businesses[0].DeliveryCost)
	}
}

const productHeader = "name,category,price,description,imageUrl,stock"

func TestParseProductsGrouping(t *testing.T) {
	csvText := strings.Join([]string{
		productHeader,
		"Monstera,Foliage,45.00,Big leaves,https://example.com/monstera.jpg,In Stock",
		"Rose,Flowers,12.50,Red,https://example.com/rose.jpg,in stock",
		"Fern,Foliage,20,Feathery,,out of stock",
	}, "\n")

	groups := ParseProducts(csvText)
	cats := groups.Categories()
	if len(cats) != 2 || cats[0] != "Foliage" || cats[1] != "Flowers" {
		t.Fatalf("Categories = %v, want [Foliage Flowers] in first-seen order", cats)
	}
	if n := len(groups.Get("Foliage")); n != 2 {
		t.Errorf("Foliage has %d products, want 2", n)
	}

	monstera := groups.Get("Foliage")[0]
	if !monstera.InStock {
		t.Error("Monstera should be in stock (case-insensitive match)")
	}
	fern := groups.Get("Foliage")[1]
	if fern.InStock {
		t.Error("Fern should be out of stock")
	}
}

func TestParseProductsDefaults(t *testing.T) {
	csvText := strings.Join([]string{
		productHeader,
		"Mystery,,not-a-price,desc,,unknown",
		"short,row",
	}, "\n")

	groups := ParseProducts(csvText)
	if groups.Len() != 1 {
		t.Fatalf("ParseProducts kept %d products, want 1", groups.Len())
	}
	p := groups.Get("Other")[0]
	if p.Category != "Other" {
		t.Errorf("Category = %q, want Other", p.Category)
	}
	if p.Price != 0 {
		t.Errorf("Price = %v, want 0 on parse failure", p.Price)
	}
	if p.ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty for blank cell", p.ImageURL)
	}
}

func TestParseProductsResolvesImageURL(t *testing.T) {
	csvText := productHeader + "\n" +
		"Rose,Flowers,12.50,Red,https://drive.google.com/file/d/ABC123/view?usp=sharing,in stock"

	groups := ParseProducts(csvText)
	p := groups.Get("Flowers")[0]
	want := "https://drive.google.com/thumbnail?id=ABC123&sz=w1000"
	if p.ImageURL != want {
		t.Errorf("ImageURL = %q, want %q", p.ImageURL, want)
	}
}

func TestProductGroupsJSONRoundTrip(t *testing.T) {
	groups := NewProductGroups()
	groups.Add(Product{Name: "Monstera", Category: "Foliage", Price: 45})
	groups.Add(Product{Name: "Rose", Category: "Flowers", Price: 12.5})
	groups.Add(Product{Name: "Fern", Category: "Foliage", Price: 20})

	data, err := groups.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	restored := NewProductGroups()
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	cats := restored.Categories()
	if len(cats) != 2 || cats[0] != "Foliage" || cats[1] != "Flowers" {
		t.Errorf("Categories after round trip = %v, want [Foliage Flowers]", cats)
	}
	if len(restored.Get("Foliage")) != 2 {
		t.Errorf("Foliage has %d products after round trip, want 2", len(restored.Get("Foliage")))
	}
}
