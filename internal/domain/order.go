package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a line snapshotted from the cart at order-creation time.
// Prices are frozen here; later catalog changes do not affect the order.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// PaymentReceipt is the capture receipt returned by a payment provider.
// It is stored verbatim on the order when the payment is recorded.
type PaymentReceipt struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// Order is created once with IsPaid=false and mutated only by payment
// reconciliation (IsPaid/PaidAt/Receipt) and fulfillment
// (IsDelivered/DeliveredAt). Orders are never deleted.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress Address         `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ItemsPrice      float64         `json:"items_price"`
	ShippingPrice   float64         `json:"shipping_price"`
	TaxPrice        float64         `json:"tax_price"`
	TotalPrice      float64         `json:"total_price"`
	Currency        string          `json:"currency"`
	IsPaid          bool            `json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	Receipt         *PaymentReceipt `json:"receipt,omitempty"`
	IsDelivered     bool            `json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
