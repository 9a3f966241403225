package domain

import (
	"errors"
	"time"
)

// ErrInvalidPaymentMethod rejects anything outside {card, wallet}.
var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// PaymentMethod selects which provider integration a checkout uses.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodWallet
}

// Address is the delivery address attached to a cart and snapshotted onto orders.
type Address struct {
	FullName   string `bson:"full_name" json:"full_name"`
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

// CartLine is one (product, quantity) pair. Quantity is always within
// [1, MaxQuantity]; MaxQuantity mirrors catalog stock at the time the
// line was written.
type CartLine struct {
	ProductID   int64     `bson:"product_id" json:"product_id"`
	Name        string    `bson:"name" json:"name"`
	UnitPrice   float64   `bson:"unit_price" json:"unit_price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	MaxQuantity int       `bson:"max_quantity" json:"max_quantity"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

// Cart is a user's cart. Totals are never stored here; they are
// recomputed from Lines on every read so persisted state cannot drift
// from the pricing rules.
type Cart struct {
	ID              string        `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          string        `bson:"user_id" json:"user_id"`
	Lines           []CartLine    `bson:"lines" json:"lines"`
	ShippingAddress *Address      `bson:"shipping_address,omitempty" json:"shipping_address,omitempty"`
	PaymentMethod   PaymentMethod `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
}

// Product is the catalog view the checkout flow needs: current price and
// stock. The full catalog document (images, descriptions, brand pages)
// belongs to the storefront backend, not this service.
type Product struct {
	ID    int64   `bson:"_id" json:"id"`
	Name  string  `bson:"name" json:"name"`
	Brand string  `bson:"brand" json:"brand"`
	Price float64 `bson:"price" json:"price"`
	Stock int     `bson:"stock" json:"stock"`
}
