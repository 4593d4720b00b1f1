package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lifetime is how long a cart is kept before it expires.
const Lifetime = 30 * 24 * time.Hour

type Cart struct {
	ID         string     `bson:"_id,omitempty" json:"id"`
	CustomerID int64      `bson:"customer_id" json:"customer_id"`
	Currency   string     `bson:"currency" json:"currency"`
	Items      []Item     `bson:"items" json:"items"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	ExpiresAt  time.Time  `bson:"expires_at" json:"expires_at"`
}

// Item is one cart line. UnitPrice is captured when the line is added;
// Validate reports it when the catalog price has moved since.
type Item struct {
	ProductID   int64           `bson:"product_id" json:"product_id"`
	VariantID   int64           `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	StoreID     int64           `bson:"store_id" json:"store_id"`
	ProductName string          `bson:"product_name" json:"product_name"`
	SKU         string          `bson:"sku" json:"sku"`
	Quantity    int32           `bson:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `bson:"unit_price" json:"unit_price"`
	AddedAt     time.Time       `bson:"added_at" json:"added_at"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// findLine returns the index of the line matching product+variant, or -1.
func (c *Cart) findLine(productID, variantID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.VariantID == variantID {
			return i
		}
	}
	return -1
}

// StoreGroup is the subset of a cart's items belonging to one store.
// An order is always created from a single group.
type StoreGroup struct {
	StoreID  int64           `json:"store_id"`
	Currency string          `json:"currency"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// GroupByStore partitions the cart items by owning store, one subtotal per
// store. Group order follows first appearance in the cart.
func (c *Cart) GroupByStore() []StoreGroup {
	var groups []StoreGroup
	index := make(map[int64]int)

	for _, item := range c.Items {
		gi, exists := index[item.StoreID]
		if !exists {
			gi = len(groups)
			index[item.StoreID] = gi
			groups = append(groups, StoreGroup{
				StoreID:  item.StoreID,
				Currency: c.Currency,
				Subtotal: decimal.Zero,
			})
		}
		groups[gi].Items = append(groups[gi].Items, item)
		groups[gi].Subtotal = groups[gi].Subtotal.Add(item.Subtotal())
	}
	return groups
}
