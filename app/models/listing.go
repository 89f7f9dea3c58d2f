package models

import (
	"strings"
	"time"
)

// ListingKind separates organic from chemically grown produce.
type ListingKind string

const (
	KindOrganic  ListingKind = "organic"
	KindChemical ListingKind = "chemical"
)

func (k ListingKind) Valid() bool { return k == KindOrganic || k == KindChemical }

// Title is the word used in merchant mail subjects.
func (k ListingKind) Title() string {
	if k == KindChemical {
		return "Normal"
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Listing is one sale request. Farmer name and email are copied from the
// form at submission time; FarmerID records which session submitted it.
type Listing struct {
	ID            uint        `gorm:"primaryKey"                json:"id"`
	Kind          ListingKind `gorm:"size:16;not null;index"    json:"kind"`
	FarmerID      uint        `gorm:"not null;index"            json:"farmer_id"`
	FarmerName    string      `gorm:"size:150;not null"         json:"farmer_name"`
	FarmerEmail   string      `gorm:"size:150;not null"         json:"farmer_email"`
	ProductName   string      `gorm:"size:150;not null"         json:"product_name"`
	Address       string      `gorm:"size:255;not null"         json:"address"`
	ContactNumber string      `gorm:"size:15;not null"          json:"contact_number"`
	MarketPrice   float64     `gorm:"not null"                  json:"market_price"`
	Quantity      string      `gorm:"size:50;not null"          json:"quantity"`
	Quality       string      `gorm:"size:50;not null"          json:"quality"`
	ExpectedPrice float64     `gorm:"not null"                  json:"expected_price"`
	MerchantEmail string      `gorm:"size:150;not null"         json:"merchant_email"`
	Message       string      `gorm:"type:text"                 json:"message,omitempty"`
	NotifiedAt    *time.Time  `json:"notified_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
