package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Item is an immutable order line captured from the cart at creation time.
type Item struct {
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is one store's portion of a checkout. All monetary fields share
// Currency; Total = Subtotal + Tax + Shipping - Discount.
type Order struct {
	ID              uuid.UUID
	Number          string
	CustomerID      int64
	StoreID         int64
	Currency        string
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	TrackingNumber  string
	ShippingAddress Address
	BillingAddress  Address
	Items           []Item
	StatusTimes     map[Status]time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Charges carries the non-subtotal parts of the monetary breakdown.
// Computing tax rules is out of scope; callers pass the amounts in.
type Charges struct {
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
}
