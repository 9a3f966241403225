package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentState tracks one payment attempt through the checkout flow.
type PaymentState string

const (
	PaymentStateDraft            PaymentState = "DRAFT"
	PaymentStateOrderCreated     PaymentState = "ORDER_CREATED"
	PaymentStateSessionInitiated PaymentState = "SESSION_INITIATED"
	PaymentStateProviderRedirect PaymentState = "PROVIDER_REDIRECT"
	PaymentStateProviderWidget   PaymentState = "PROVIDER_WIDGET"
	PaymentStateReconciling      PaymentState = "RECONCILING"
	PaymentStatePaid             PaymentState = "PAID"
	PaymentStateFailed           PaymentState = "FAILED"
)

func (s PaymentState) IsTerminal() bool {
	return s == PaymentStatePaid || s == PaymentStateFailed
}

// String representation (for logging)
func (s PaymentState) String() string {
	return string(s)
}

// transitions is the full legal edge set of the checkout flow.
// FAILED is re-enterable from the widget/redirect states (user closed
// the popup) but PAID is final.
var transitions = map[PaymentState][]PaymentState{
	PaymentStateDraft:            {PaymentStateOrderCreated},
	PaymentStateOrderCreated:     {PaymentStateSessionInitiated},
	PaymentStateSessionInitiated: {PaymentStateProviderRedirect, PaymentStateProviderWidget, PaymentStateFailed},
	PaymentStateProviderRedirect: {PaymentStateReconciling, PaymentStateFailed},
	PaymentStateProviderWidget:   {PaymentStateReconciling, PaymentStateFailed},
	PaymentStateReconciling:      {PaymentStatePaid, PaymentStateFailed},
}

// CanTransitionTo reports whether moving from one payment state to
// another is legal.
func CanTransitionTo(from, to PaymentState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentSession is one provider round-trip for an order. An order may
// accumulate several sessions (abandoned popups, failed verifications)
// but has exactly one terminal PAID session.
type PaymentSession struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Provider    PaymentMethod   `json:"provider"`
	ProviderRef string          `json:"provider_ref"`
	State       PaymentState    `json:"state"`
	Receipt     *PaymentReceipt `json:"receipt,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
