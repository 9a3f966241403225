package cart

import (
	"context"
	"errors"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// Repository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertLine(ctx context.Context, userID string, line domain.CartLine) error
	UpdateLineQuantity(ctx context.Context, userID string, productID int64, quantity int) error
	RemoveLine(ctx context.Context, userID string, productID int64) error
	SetShippingAddress(ctx context.Context, userID string, address domain.Address) error
	SetPaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) error
	DeleteCart(ctx context.Context, userID string) error
}
