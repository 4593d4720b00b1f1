package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/go_market/internal/catalog"
	"github.com/avolkov/go_market/internal/inventory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrProductInactive  = errors.New("product is not purchasable")
	ErrCurrencyMismatch = errors.New("product currency differs from cart currency")
	ErrCartExpired      = errors.New("cart has expired")
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
)

// Problem is one pre-checkout validation finding. Validate collects all of
// them so the caller can present every issue at once instead of failing on
// the first.
type Problem struct {
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

const (
	ProblemPriceChanged    = "price_changed"
	ProblemOutOfStock      = "out_of_stock"
	ProblemProductInactive = "product_inactive"
	ProblemProductMissing  = "product_missing"
	ProblemCartExpired     = "cart_expired"
)

type Service struct {
	repo     Repository
	cache    Cache
	products catalog.Products
	ledger   inventory.Ledger
	log      *zap.SugaredLogger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache, products catalog.Products,
	ledger inventory.Ledger, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		products: products,
		ledger:   ledger,
		log:      log,
	}
}

// Get returns the customer's cart, an empty one if none exists yet. An
// expired cart is returned fresh; its stale contents are not resurrected.
func (s *Service) Get(ctx context.Context, customerID int64) (*Cart, error) {
	v, err, _ := s.sfg.Do(fmt.Sprint(customerID), func() (interface{}, error) {

		cached, err := s.cache.Get(ctx, customerID)
		if err == nil && !cached.Expired() {
			return cached, nil
		}
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			s.log.Warnw("cache get error", "customer_id", customerID, "error", err)
		}

		loaded, errGet := s.repo.GetCart(ctx, customerID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			return emptyCart(customerID), nil
		}
		if errGet != nil {
			return nil, errGet
		}
		if loaded.Expired() {
			return emptyCart(customerID), nil
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), customerID, loaded); errSet != nil {
				s.log.Warnw("cache set error", "customer_id", customerID, "error", errSet)
			}
		}()

		return loaded, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Cart), nil
}

// AddItem validates the product, soft-checks available stock and merges the
// quantity into an existing line for the same product+variant. The unit
// price is captured from the catalog at add time.
func (s *Service) AddItem(ctx context.Context, customerID, productID, variantID int64, qty int32) (*Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.Currency != "" && c.Currency != product.Currency {
		return nil, ErrCurrencyMismatch
	}

	// Soft availability check only; the real reservation happens at
	// checkout. Checks the merged line quantity, not just the delta.
	wanted := qty
	idx := c.findLine(productID, variantID)
	if idx >= 0 {
		wanted += c.Items[idx].Quantity
	}
	if err := s.checkAvailable(ctx, productID, wanted); err != nil {
		return nil, err
	}

	if idx >= 0 {
		c.Items[idx].Quantity += qty
	} else {
		c.Items = append(c.Items, Item{
			ProductID:   productID,
			VariantID:   variantID,
			StoreID:     product.StoreID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    qty,
			UnitPrice:   product.Price,
			AddedAt:     time.Now(),
		})
	}
	c.Currency = product.Currency

	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCache(customerID)
	return c, nil
}

// UpdateQuantity sets the quantity of an existing line. Stock is re-checked
// on increase only; decreasing never fails on availability.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, productID, variantID int64, qty int32) (*Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	idx := c.findLine(productID, variantID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	if qty > c.Items[idx].Quantity {
		if err := s.checkAvailable(ctx, productID, qty); err != nil {
			return nil, err
		}
	}

	c.Items[idx].Quantity = qty
	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCache(customerID)
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, customerID, productID, variantID int64) (*Cart, error) {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	idx := c.findLine(productID, variantID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCache(customerID)
	return c, nil
}

func (s *Service) Clear(ctx context.Context, customerID int64) error {
	err := s.repo.DeleteCart(ctx, customerID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}
	s.invalidateCache(customerID)
	return nil
}

// Validate re-checks every line against the current catalog price, active
// flag and available stock. It returns findings, not an error: a non-empty
// slice means the cart is not ready for checkout.
func (s *Service) Validate(ctx context.Context, c *Cart) []Problem {
	var problems []Problem

	if c.Expired() {
		problems = append(problems, Problem{Kind: ProblemCartExpired, Message: "cart has expired"})
		return problems
	}

	for _, item := range c.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				problems = append(problems, Problem{
					ProductID: item.ProductID,
					VariantID: item.VariantID,
					Kind:      ProblemProductMissing,
					Message:   "product no longer exists",
				})
				continue
			}
			s.log.Errorw("catalog lookup failed during validation",
				"product_id", item.ProductID, "error", err)
			problems = append(problems, Problem{
				ProductID: item.ProductID,
				Kind:      ProblemProductMissing,
				Message:   "product could not be verified",
			})
			continue
		}

		if !product.Active {
			problems = append(problems, Problem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Kind:      ProblemProductInactive,
				Message:   "product has been deactivated",
			})
		}

		if !product.Price.Equal(item.UnitPrice) {
			problems = append(problems, Problem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Kind:      ProblemPriceChanged,
				Message: fmt.Sprintf("price changed from %s to %s",
					item.UnitPrice.StringFixed(2), product.Price.StringFixed(2)),
			})
		}

		if err := s.checkAvailable(ctx, item.ProductID, item.Quantity); err != nil {
			problems = append(problems, Problem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Kind:      ProblemOutOfStock,
				Message:   err.Error(),
			})
		}
	}

	return problems
}

// Checkout is the validated handoff to the order orchestrator: one store
// group per order to be created, prices and quantities snapshotted.
type Checkout struct {
	CustomerID int64
	Currency   string
	Groups     []StoreGroup
	Total      decimal.Decimal
}

// PrepareCheckout validates the cart and returns the per-store order
// requests. The cart itself is NOT cleared here; call Clear only after all
// orders were created and payment was initiated.
func (s *Service) PrepareCheckout(ctx context.Context, customerID int64) (*Checkout, []Problem, error) {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if len(c.Items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	if problems := s.Validate(ctx, c); len(problems) > 0 {
		return nil, problems, nil
	}

	return &Checkout{
		CustomerID: customerID,
		Currency:   c.Currency,
		Groups:     c.GroupByStore(),
		Total:      c.Total(),
	}, nil, nil
}

func (s *Service) checkAvailable(ctx context.Context, productID int64, qty int32) error {
	stock, err := s.ledger.Stock(ctx, productID)
	if err != nil {
		if errors.Is(err, inventory.ErrProductNotFound) {
			return &inventory.StockError{ProductID: productID, Requested: qty, Available: 0}
		}
		return err
	}
	if stock.Available() < qty {
		return &inventory.StockError{ProductID: productID, Requested: qty, Available: stock.Available()}
	}
	return nil
}

func (s *Service) invalidateCache(customerID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, customerID); err != nil {
		s.log.Warnw("cache invalidate error", "customer_id", customerID, "error", err)
	}
}

func emptyCart(customerID int64) *Cart {
	now := time.Now()
	return &Cart{
		CustomerID: customerID,
		Items:      nil,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(Lifetime),
	}
}
