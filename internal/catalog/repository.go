package catalog

import (
	"context"
	"errors"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Repository is the read-side of the product catalog this service needs:
// current price and stock for cart clamping and order verification, plus
// existence checks for the recently-viewed pruner.
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}
