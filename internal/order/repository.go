package order

import (
	"context"
	"errors"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionNotFound = errors.New("payment session not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending integration event written in the same
// transaction as the state change it announces.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

const EventOrderPaid = "OrderPaid"

// OrderPaidPayload is the outbox/Kafka payload for a paid order.
type OrderPaidPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalPrice float64   `json:"total_price"`
	Currency   string    `json:"currency"`
	PaidAt     time.Time `json:"paid_at"`
}

type Repository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// MarkPaid flips is_paid exactly once and writes the OrderPaid
	// outbox event in the same transaction. It reports whether this
	// call performed the flip; a second call for the same order is a
	// no-op returning false.
	MarkPaid(ctx context.Context, orderID uuid.UUID, receipt domain.PaymentReceipt) (bool, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) error

	CreateSession(ctx context.Context, session *domain.PaymentSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*domain.PaymentSession, error)
	FindSessionByProviderRef(ctx context.Context, orderID uuid.UUID, providerRef string) (*domain.PaymentSession, error)
	// LatestOpenSession returns the newest non-terminal session for an
	// order and provider, or ErrSessionNotFound.
	LatestOpenSession(ctx context.Context, orderID uuid.UUID, provider domain.PaymentMethod) (*domain.PaymentSession, error)
	UpdateSessionState(ctx context.Context, sessionID uuid.UUID, state domain.PaymentState) error
	SetSessionProviderRef(ctx context.Context, sessionID uuid.UUID, providerRef string, state domain.PaymentState) error
	SetSessionReceipt(ctx context.Context, sessionID uuid.UUID, receipt domain.PaymentReceipt) error
	// GetStuckSessions finds sessions holding a capture receipt whose
	// order is still unpaid: the capture-succeeded/notify-failed gap.
	GetStuckSessions(ctx context.Context) ([]*domain.PaymentSession, error)

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error

	RunMigrations(*Credentials) error
	Close() error
}
