package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Business is one row of the published profile sheet. Records are filtered at
// parse time: anything that fails Visible never reaches a cache tier.
type Business struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	OwnerName              string   `json:"ownerName"`
	Address                string   `json:"address"`
	PhoneNumber            string   `json:"phoneNumber"`
	WhatsAppNumber         string   `json:"whatsAppNumber"`
	EmailAddress           string   `json:"emailAddress"`
	HasDelivery            bool     `json:"hasDelivery"`
	DeliveryArea           string   `json:"deliveryArea"`
	OperationHours         string   `json:"operationHours"`
	SpecialHours           string   `json:"specialHours"`
	ProfilePictureURL      string   `json:"profilePictureUrl"`
	ProductSheetURL        string   `json:"productSheetUrl"`
	Status                 string   `json:"status"`
	Bio                    string   `json:"bio"`
	MapLocation            string   `json:"mapLocation"`
	DeliveryCost           *float64 `json:"deliveryCost"`
	IslandWideDelivery     string   `json:"islandWideDelivery"`
	IslandWideDeliveryCost *float64 `json:"islandWideDeliveryCost"`
}

// businessMinColumns is the number of leading columns a profile sheet row must
// have; the four columns after bio are optional trailing additions.
const businessMinColumns = 14

var whitespaceRun = regexp.MustCompile(`\s+`)

// BusinessID derives the stable identifier used in routes and cache keys:
// lowercased name with whitespace runs collapsed to underscores.
func BusinessID(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "_")
}

// businessFromRow maps a parsed CSV row positionally into a Business.
// The row must have at least businessMinColumns fields.
func businessFromRow(row []string) Business {
	b := Business{
		ID:                BusinessID(row[0]),
		Name:              row[0],
		OwnerName:         row[1],
		Address:           row[2],
		PhoneNumber:       row[3],
		WhatsAppNumber:    row[4],
		EmailAddress:      row[5],
		HasDelivery:       strings.EqualFold(row[6], "yes"),
		DeliveryArea:      row[7],
		OperationHours:    row[8],
		SpecialHours:      row[9],
		ProfilePictureURL: row[10],
		ProductSheetURL:   row[11],
		Status:            strings.ToLower(row[12]),
		Bio:               row[13],
	}
	if len(row) > 14 {
		b.MapLocation = row[14]
	}
	if len(row) > 15 {
		b.DeliveryCost = parseNullableFloat(row[15])
	}
	if len(row) > 16 {
		b.IslandWideDelivery = row[16]
	}
	if len(row) > 17 {
		b.IslandWideDeliveryCost = parseNullableFloat(row[17])
	}
	return b
}

// Visible reports whether the record should be exposed to consumers:
// active status, a profile picture, and a name.
func (b Business) Visible() bool {
	return strings.EqualFold(b.Status, "active") && b.ProfilePictureURL != "" && b.Name != ""
}

func parseNullableFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
