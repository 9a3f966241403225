package recent

import (
	"context"
	"errors"
	"testing"

	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return client, cleanup
}

type mockCatalog struct {
	products  map[int64]*domain.Product
	lookupErr map[int64]error
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if err, ok := m.lookupErr[id]; ok {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, err := m.GetProduct(ctx, id); err == nil {
			out[id] = p
		}
	}
	return out, nil
}

func TestRecord_NewestFirstAndDeduplicated(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewService(client)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "u1", 1))
	require.NoError(t, svc.Record(ctx, "u1", 2))
	require.NoError(t, svc.Record(ctx, "u1", 3))
	// Viewing 1 again moves it to the front, no duplicate.
	require.NoError(t, svc.Record(ctx, "u1", 1))

	ids, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2}, ids)
}

func TestRecord_TrimsToCap(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewService(client)
	ctx := context.Background()

	for id := int64(1); id <= maxEntries+3; id++ {
		require.NoError(t, svc.Record(ctx, "u1", id))
	}

	ids, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ids, maxEntries)
	assert.Equal(t, int64(maxEntries+3), ids[0])
}

func TestList_EmptyForUnknownUser(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewService(client)

	ids, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPruneUser_DropsUnresolvableProducts(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewService(client)
	cat := &mockCatalog{
		products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Noir Extrait 50ml"},
			3: {ID: 3, Name: "Rose Sérum"},
		},
		lookupErr: map[int64]error{
			4: errors.New("mongo timeout"),
		},
	}
	pruner := NewPruner(client, cat, svc)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3, 4} {
		require.NoError(t, svc.Record(ctx, "u1", id))
	}

	require.NoError(t, pruner.pruneUser(ctx, "u1"))

	// 2 no longer resolves, 4 errored: both dropped, order preserved.
	ids, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
}

func TestPruneAll_WalksEveryUser(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := NewService(client)
	cat := &mockCatalog{products: map[int64]*domain.Product{1: {ID: 1}}}
	pruner := NewPruner(client, cat, svc)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "u1", 1))
	require.NoError(t, svc.Record(ctx, "u1", 99))
	require.NoError(t, svc.Record(ctx, "u2", 99))

	pruner.pruneAll(ctx)

	ids, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	ids, err = svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
