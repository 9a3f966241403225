package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/cart/cache"
	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository persists carts in a map so tests can read back the
// stored state after every mutation.
type memoryRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{carts: make(map[string]*domain.Cart)}
}

func (m *memoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	cp := *cart
	cp.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return &cp, nil
}

func (m *memoryRepository) UpsertLine(_ context.Context, userID string, line domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID, CreatedAt: time.Now()}
		m.carts[userID] = cart
	}
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == line.ProductID {
			cart.Lines[i] = line
			return nil
		}
	}
	cart.Lines = append(cart.Lines, line)
	return nil
}

func (m *memoryRepository) UpdateLineQuantity(_ context.Context, userID string, productID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			cart.Lines[i].Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memoryRepository) RemoveLine(_ context.Context, userID string, productID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i, line := range cart.Lines {
		if line.ProductID == productID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memoryRepository) SetShippingAddress(_ context.Context, userID string, address domain.Address) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID}
		m.carts[userID] = cart
	}
	cart.ShippingAddress = &address
	return nil
}

func (m *memoryRepository) SetPaymentMethod(_ context.Context, userID string, method domain.PaymentMethod) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID}
		m.carts[userID] = cart
	}
	cart.PaymentMethod = method
	return nil
}

func (m *memoryRepository) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return nil
}

type mockCatalog struct {
	products map[int64]*domain.Product
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) GetProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	cat := &mockCatalog{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Noir Extrait 50ml", Price: 80, Stock: 10},
		2: {ID: 2, Name: "Rose Sérum", Price: 24.5, Stock: 3},
	}}
	return NewService(repo, &mockCache{}, cat), repo
}

func TestAddLine_PersistsBeforeReturning(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	line, err := svc.AddLine(ctx, "u1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 80.0, line.UnitPrice)
	assert.Equal(t, 10, line.MaxQuantity)

	// The persisted representation must already match.
	stored, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, *line, stored.Lines[0])
}

func TestAddLine_SameProductReplacesQuantity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "u1", 1, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, "u1", 1, 5)
	require.NoError(t, err)

	stored, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	// Last write wins: 5, not 7.
	assert.Equal(t, 5, stored.Lines[0].Quantity)
}

func TestAddLine_RejectsBadQuantities(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "u1", 1, 0)
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)

	// Product 2 has 3 in stock.
	_, err = svc.AddLine(ctx, "u1", 2, 4)
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)

	_, err = svc.AddLine(ctx, "u1", 99, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestUpdateQuantity_HonorsMaxQuantity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "u1", 2, 1)
	require.NoError(t, err)

	err = svc.UpdateQuantity(ctx, "u1", 2, 4)
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)

	err = svc.UpdateQuantity(ctx, "u1", 2, 3)
	require.NoError(t, err)

	stored, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Lines[0].Quantity)
}

func TestRemoveLine_PersistsRemoval(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "u1", 1, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, "u1", 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveLine(ctx, "u1", 1))

	stored, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(2), stored.Lines[0].ProductID)
}

func TestClearCart_DeletesPersistedCart(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "u1", 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, "u1"))

	_, err = repo.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_MissingCartReadsAsEmpty(t *testing.T) {
	svc, _ := newTestService()

	cart, err := svc.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", cart.UserID)
	assert.Empty(t, cart.Lines)
}

func TestSetShippingAddressAndPaymentMethod(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	addr := domain.Address{FullName: "A. Martin", Street: "3 rue de la Paix", City: "Lyon", PostalCode: "69001", Country: "FR"}
	require.NoError(t, svc.SetShippingAddress(ctx, "u1", addr))
	require.NoError(t, svc.SetPaymentMethod(ctx, "u1", domain.PaymentMethodWallet))

	err := svc.SetPaymentMethod(ctx, "u1", "crypto")
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

	stored, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &addr, stored.ShippingAddress)
	assert.Equal(t, domain.PaymentMethodWallet, stored.PaymentMethod)
}
