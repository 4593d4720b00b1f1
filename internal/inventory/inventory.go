package inventory

import "fmt"

// Stock holds the physical and reserved quantities for a single product.
type Stock struct {
	ProductID int64
	StockQty  int32
	Reserved  int32
}

// Available returns the quantity that can still be reserved.
func (s Stock) Available() int32 {
	return s.StockQty - s.Reserved
}

// StockError is returned when a reservation cannot be satisfied. It carries
// the quantity that was still available so callers can show it to the user.
type StockError struct {
	ProductID int64
	Requested int32
	Available int32
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
