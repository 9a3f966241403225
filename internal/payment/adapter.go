package payment

import (
	"context"
	"errors"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
)

var (
	// ErrProviderUnavailable wraps transport failures and open-breaker
	// rejections. Callers treat it as retryable.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrCaptureDeclined means the provider refused to move funds.
	ErrCaptureDeclined = errors.New("payment capture declined")
)

// CardSession is a hosted checkout session: the browser is navigated to
// URL and the provider redirects back carrying SessionID.
type CardSession struct {
	SessionID string
	URL       string
}

// CardProvider drives the hosted-redirect card flow.
type CardProvider interface {
	CreateSession(ctx context.Context, order *domain.Order) (*CardSession, error)
	// VerifySession asks the provider whether the session was paid.
	// The receipt is only meaningful when paid is true.
	VerifySession(ctx context.Context, sessionID string) (receipt *domain.PaymentReceipt, paid bool, err error)
}

// WalletProvider drives the embedded-widget create/approve/capture flow.
// Approval happens in the provider's popup; the server only sees create,
// capture and verify.
type WalletProvider interface {
	CreateOrder(ctx context.Context, order *domain.Order) (providerOrderID string, err error)
	Capture(ctx context.Context, providerOrderID string) (*domain.PaymentReceipt, error)
	VerifyOrder(ctx context.Context, providerOrderID string) (receipt *domain.PaymentReceipt, paid bool, err error)
}
