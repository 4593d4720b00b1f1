package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/go_market/internal/cart"
	"github.com/avolkov/go_market/internal/directory"
	"github.com/avolkov/go_market/internal/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCustomerInactive = errors.New("customer account is inactive")
	ErrStoreInactive    = errors.New("store is inactive")
	ErrTrackingRequired = errors.New("tracking number required to mark order shipped")
)

// StatusChange carries the data a specific transition needs.
type StatusChange struct {
	TrackingNumber string
}

// Service is the order orchestrator: it converts validated checkouts into
// per-store orders and owns the status state machine and its inventory
// side effects.
type Service struct {
	repo   Repository
	dir    directory.Directory
	ledger inventory.Ledger
	log    *zap.SugaredLogger
}

func NewService(repo Repository, dir directory.Directory, ledger inventory.Ledger, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		ledger: ledger,
		log:    log,
	}
}

// CreateFromCheckout creates one order per store group. On any failure the
// orders created so far are cancelled (releasing their reservations) so a
// checkout is never half-committed; the caller keeps the cart.
func (s *Service) CreateFromCheckout(ctx context.Context, co *cart.Checkout,
	shipping, billing Address, charges map[int64]Charges) ([]*Order, error) {

	var created []*Order
	for _, group := range co.Groups {
		o, err := s.CreateFromGroup(ctx, co.CustomerID, group, charges[group.StoreID], shipping, billing)
		if err != nil {
			for _, prev := range created {
				if _, cancelErr := s.UpdateStatus(ctx, prev.ID, StatusCancelled, StatusChange{}); cancelErr != nil {
					s.log.Errorw("failed to cancel order during checkout rollback",
						"order", prev.Number, "error", cancelErr)
				}
			}
			return nil, fmt.Errorf("create order for store %d: %w", group.StoreID, err)
		}
		created = append(created, o)
	}
	return created, nil
}

// CreateFromGroup validates the customer and store, reserves stock for
// every line and persists the order with its items in one unit. The order
// starts in Pending; reservations are committed when payment completes.
func (s *Service) CreateFromGroup(ctx context.Context, customerID int64, group cart.StoreGroup,
	charges Charges, shipping, billing Address) (*Order, error) {

	customer, err := s.dir.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.Active {
		return nil, ErrCustomerInactive
	}

	store, err := s.dir.GetStore(ctx, group.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.Active {
		return nil, ErrStoreInactive
	}

	// Reserve all lines; roll back earlier reservations if one fails.
	var reserved []cart.Item
	for _, item := range group.Items {
		if err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			s.releaseItems(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, item)
	}

	now := time.Now()
	o := &Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		StoreID:         group.StoreID,
		Currency:        group.Currency,
		Subtotal:        group.Subtotal,
		Tax:             charges.Tax,
		Shipping:        charges.Shipping,
		Discount:        charges.Discount,
		Status:          StatusPending,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		StatusTimes:     map[Status]time.Time{StatusPending: now},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)

	for _, item := range group.Items {
		o.Items = append(o.Items, Item{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.Subtotal(),
		})
	}

	if err := s.persistWithNumber(ctx, o, now); err != nil {
		s.releaseItems(ctx, reserved)
		return nil, err
	}
	return o, nil
}

// persistWithNumber retries order-number collisions a bounded number of
// times; the unique constraint on orders.number is the arbiter.
func (s *Service) persistWithNumber(ctx context.Context, o *Order, now time.Time) error {
	for i := 0; i < numberAttempts; i++ {
		o.Number = newNumber(now)
		err := s.repo.CreateOrder(ctx, o)
		if errors.Is(err, ErrDuplicateNumber) {
			continue
		}
		return err
	}
	return fmt.Errorf("could not allocate order number after %d attempts: %w",
		numberAttempts, ErrDuplicateNumber)
}

// UpdateStatus applies one legal transition and its side effects. Illegal
// transitions leave the order untouched and return a *TransitionError.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, change StatusChange) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, next) {
		return nil, &TransitionError{OrderNumber: o.Number, From: o.Status, To: next}
	}

	if next == StatusShipped && change.TrackingNumber == "" {
		return nil, ErrTrackingRequired
	}

	prev := o.Status
	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, id, next, change.TrackingNumber, now); err != nil {
		return nil, err
	}

	// Reservations are committed on Confirmed (payment success); a cancel
	// before that point has to hand the held stock back.
	switch next {
	case StatusCancelled:
		if prev == StatusPending {
			s.releaseOrderItems(ctx, o)
		}
	case StatusConfirmed:
		for _, item := range o.Items {
			if err := s.ledger.Commit(ctx, item.ProductID, item.Quantity); err != nil {
				s.log.Errorw("inventory commit failed after order confirmation",
					"order", o.Number, "product_id", item.ProductID, "error", err)
			}
		}
	}

	o.Status = next
	if change.TrackingNumber != "" {
		o.TrackingNumber = change.TrackingNumber
	}
	if o.StatusTimes == nil {
		o.StatusTimes = make(map[Status]time.Time)
	}
	o.StatusTimes[next] = now
	o.UpdatedAt = now
	return o, nil
}

// Delete hard-deletes an order. Only pending orders may be removed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		return ErrNotDeletable
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.releaseOrderItems(ctx, o)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) ListByStore(ctx context.Context, storeID int64) ([]*Order, error) {
	return s.repo.ListByStore(ctx, storeID)
}

func (s *Service) releaseItems(ctx context.Context, items []cart.Item) {
	for _, item := range items {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Errorw("inventory release failed", "product_id", item.ProductID, "error", err)
		}
	}
}

func (s *Service) releaseOrderItems(ctx context.Context, o *Order) {
	for _, item := range o.Items {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Errorw("inventory release failed",
				"order", o.Number, "product_id", item.ProductID, "error", err)
		}
	}
}
