package cart

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/go_market/internal/catalog"
	"github.com/avolkov/go_market/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository implements Repository for testing
type MockRepository struct {
	carts map[int64]*Cart
}

func NewMockRepository() *MockRepository {
	return &MockRepository{carts: make(map[int64]*Cart)}
}

func (m *MockRepository) GetCart(_ context.Context, customerID int64) (*Cart, error) {
	c, ok := m.carts[customerID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c, nil
}

func (m *MockRepository) UpsertCart(_ context.Context, cart *Cart) error {
	if cart.ExpiresAt.IsZero() {
		cart.ExpiresAt = time.Now().Add(Lifetime)
	}
	m.carts[cart.CustomerID] = cart
	return nil
}

func (m *MockRepository) DeleteCart(_ context.Context, customerID int64) error {
	if _, ok := m.carts[customerID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, customerID)
	return nil
}

func (m *MockRepository) Close(_ context.Context) error { return nil }

// MockCache implements Cache; always misses so the service hits the repo.
type MockCache struct{}

func (MockCache) Get(_ context.Context, _ int64) (*Cart, error) { return nil, ErrCacheMiss }
func (MockCache) Set(_ context.Context, _ int64, _ *Cart) error { return nil }
func (MockCache) Delete(_ context.Context, _ int64) error       { return nil }

// MockProducts implements catalog.Products for testing
type MockProducts struct {
	products map[int64]*catalog.Product
}

func (m *MockProducts) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func setupService(t *testing.T) (*Service, *MockProducts, *inventory.MemoryLedger) {
	products := &MockProducts{products: map[int64]*catalog.Product{
		1: {ID: 1, StoreID: 10, SellerID: 100, Name: "Widget", SKU: "W-1",
			Price: decimal.RequireFromString("19.99"), Currency: "USD", Active: true},
		2: {ID: 2, StoreID: 20, SellerID: 200, Name: "Gadget", SKU: "G-1",
			Price: decimal.RequireFromString("5.00"), Currency: "USD", Active: true},
	}}

	ledger := inventory.NewMemoryLedger(zap.NewNop().Sugar())
	t.Cleanup(func() { ledger.Close() })
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 5))
	require.NoError(t, ledger.SetStock(ctx, 2, 100))

	svc := NewService(NewMockRepository(), MockCache{}, products, ledger, zap.NewNop().Sugar())
	return svc, products, ledger
}

func TestAddItem_NewLine(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.AddItem(ctx, 42, 1, 0, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, int32(2), c.Items[0].Quantity)
	assert.Equal(t, int64(10), c.Items[0].StoreID)
	assert.Equal(t, "USD", c.Currency)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("39.98")))
}

func TestAddItem_MergesSameLine(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 2)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, 42, 1, 0, 1)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, int32(3), c.Items[0].Quantity)
}

func TestAddItem_VariantGetsOwnLine(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 1)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, 42, 1, 7, 1)
	require.NoError(t, err)

	assert.Len(t, c.Items, 2)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.AddItem(context.Background(), 42, 1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.AddItem(context.Background(), 42, 999, 0, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestAddItem_InactiveProduct(t *testing.T) {
	svc, products, _ := setupService(t)
	products.products[1].Active = false

	_, err := svc.AddItem(context.Background(), 42, 1, 0, 1)
	assert.ErrorIs(t, err, ErrProductInactive)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	// Stock for product 1 is 5; merged quantity would be 6
	_, err := svc.AddItem(ctx, 42, 1, 0, 4)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 42, 1, 0, 2)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestAddItem_SoftCheckDoesNotReserve(t *testing.T) {
	svc, _, ledger := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 3)
	require.NoError(t, err)

	stock, err := ledger.Stock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), stock.Reserved)
}

func TestUpdateQuantity_IncreaseChecksStock(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 2)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, 42, 1, 0, 6)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	c, err := svc.UpdateQuantity(ctx, 42, 1, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), c.Items[0].Quantity)
}

func TestUpdateQuantity_DecreaseSkipsStockCheck(t *testing.T) {
	svc, _, ledger := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 5)
	require.NoError(t, err)

	// Someone else takes all the stock
	require.NoError(t, ledger.SetStock(ctx, 1, 0))

	c, err := svc.UpdateQuantity(ctx, 42, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.Items[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 42, 2, 0, 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, 42, 1, 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(2), c.Items[0].ProductID)

	_, err = svc.RemoveItem(ctx, 42, 999, 0)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestGroupByStore(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 2) // store 10, 39.98
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, 42, 2, 0, 3) // store 20, 15.00
	require.NoError(t, err)

	groups := c.GroupByStore()
	require.Len(t, groups, 2)

	byStore := make(map[int64]StoreGroup)
	for _, g := range groups {
		byStore[g.StoreID] = g
	}
	assert.True(t, byStore[10].Subtotal.Equal(decimal.RequireFromString("39.98")))
	assert.True(t, byStore[20].Subtotal.Equal(decimal.RequireFromString("15.00")))
	assert.Len(t, byStore[10].Items, 1)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	svc, products, ledger := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 2)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, 42, 2, 0, 3)
	require.NoError(t, err)

	// Price moves, product deactivates, stock drains
	products.products[1].Price = decimal.RequireFromString("25.00")
	products.products[2].Active = false
	require.NoError(t, ledger.SetStock(ctx, 1, 1))

	problems := svc.Validate(ctx, c)

	kinds := make(map[string]int)
	for _, p := range problems {
		kinds[p.Kind]++
	}
	assert.Equal(t, 1, kinds[ProblemPriceChanged])
	assert.Equal(t, 1, kinds[ProblemProductInactive])
	assert.Equal(t, 1, kinds[ProblemOutOfStock])
}

func TestPrepareCheckout_EmptyCart(t *testing.T) {
	svc, _, _ := setupService(t)

	_, _, err := svc.PrepareCheckout(context.Background(), 42)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPrepareCheckout_Success(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 42, 2, 0, 1)
	require.NoError(t, err)

	checkout, problems, err := svc.PrepareCheckout(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.NotNil(t, checkout)
	assert.Len(t, checkout.Groups, 2)
	assert.True(t, checkout.Total.Equal(decimal.RequireFromString("44.98")))

	// The cart itself is untouched until the caller clears it
	c, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
}

func TestPrepareCheckout_ReturnsProblems(t *testing.T) {
	svc, products, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 1)
	require.NoError(t, err)

	products.products[1].Price = decimal.RequireFromString("99.99")

	checkout, problems, err := svc.PrepareCheckout(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, checkout)
	require.Len(t, problems, 1)
	assert.Equal(t, ProblemPriceChanged, problems[0].Kind)
}

func TestClear(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, 1, 0, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 42))

	c, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// Clearing an already-empty cart is fine
	require.NoError(t, svc.Clear(ctx, 42))
}
