package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/Eymeric05/E-Perfume-sub000/internal/payment"
	"github.com/google/uuid"
)

// memoryOrderRepository backs the service with maps so tests can assert
// persisted state and inject failures at specific steps.
type memoryOrderRepository struct {
	m        sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	sessions map[uuid.UUID]*domain.PaymentSession
	outbox   []*order.OutboxEvent
	nextID   int64

	markPaidErr error
	// calls records the order of interesting operations, for
	// capture-before-notify assertions.
	calls *[]string
}

func newMemoryOrderRepository() *memoryOrderRepository {
	calls := make([]string, 0)
	return &memoryOrderRepository{
		orders:   make(map[uuid.UUID]*domain.Order),
		sessions: make(map[uuid.UUID]*domain.PaymentSession),
		calls:    &calls,
	}
}

func (m *memoryOrderRepository) record(call string) {
	*m.calls = append(*m.calls, call)
}

func (m *memoryOrderRepository) CreateOrder(_ context.Context, ord *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	cp := *ord
	cp.CreatedAt = time.Now()
	m.orders[ord.ID] = &cp
	return nil
}

func (m *memoryOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	ord, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *ord
	return &cp, nil
}

func (m *memoryOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Order
	for _, ord := range m.orders {
		if ord.UserID == userID {
			cp := *ord
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryOrderRepository) MarkPaid(_ context.Context, orderID uuid.UUID, receipt domain.PaymentReceipt) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.record("mark-paid")
	if m.markPaidErr != nil {
		return false, m.markPaidErr
	}
	ord, ok := m.orders[orderID]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if ord.IsPaid {
		return false, nil
	}
	now := time.Now()
	ord.IsPaid = true
	ord.PaidAt = &now
	r := receipt
	ord.Receipt = &r
	m.nextID++
	m.outbox = append(m.outbox, &order.OutboxEvent{
		ID:          m.nextID,
		AggregateID: orderID.String(),
		EventType:   order.EventOrderPaid,
		CreatedAt:   now,
	})
	return true, nil
}

func (m *memoryOrderRepository) MarkDelivered(_ context.Context, orderID uuid.UUID) error {
	m.m.Lock()
	defer m.m.Unlock()
	ord, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	now := time.Now()
	ord.IsDelivered = true
	ord.DeliveredAt = &now
	return nil
}

func (m *memoryOrderRepository) CreateSession(_ context.Context, session *domain.PaymentSession) error {
	m.m.Lock()
	defer m.m.Unlock()
	cp := *session
	cp.CreatedAt = time.Now()
	m.sessions[session.ID] = &cp
	return nil
}

func (m *memoryOrderRepository) GetSession(_ context.Context, id uuid.UUID) (*domain.PaymentSession, error) {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, order.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *memoryOrderRepository) FindSessionByProviderRef(_ context.Context, orderID uuid.UUID, providerRef string) (*domain.PaymentSession, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, session := range m.sessions {
		if session.OrderID == orderID && session.ProviderRef == providerRef {
			cp := *session
			return &cp, nil
		}
	}
	return nil, order.ErrSessionNotFound
}

func (m *memoryOrderRepository) LatestOpenSession(_ context.Context, orderID uuid.UUID, provider domain.PaymentMethod) (*domain.PaymentSession, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var latest *domain.PaymentSession
	for _, session := range m.sessions {
		if session.OrderID != orderID || session.Provider != provider || session.State.IsTerminal() {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, order.ErrSessionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memoryOrderRepository) UpdateSessionState(_ context.Context, sessionID uuid.UUID, state domain.PaymentState) error {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return order.ErrSessionNotFound
	}
	session.State = state
	return nil
}

func (m *memoryOrderRepository) SetSessionProviderRef(_ context.Context, sessionID uuid.UUID, providerRef string, state domain.PaymentState) error {
	m.m.Lock()
	defer m.m.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return order.ErrSessionNotFound
	}
	session.ProviderRef = providerRef
	session.State = state
	return nil
}

func (m *memoryOrderRepository) SetSessionReceipt(_ context.Context, sessionID uuid.UUID, receipt domain.PaymentReceipt) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.record("set-receipt")
	session, ok := m.sessions[sessionID]
	if !ok {
		return order.ErrSessionNotFound
	}
	r := receipt
	session.Receipt = &r
	return nil
}

func (m *memoryOrderRepository) GetStuckSessions(context.Context) ([]*domain.PaymentSession, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.PaymentSession
	for _, session := range m.sessions {
		if session.Receipt == nil {
			continue
		}
		ord, ok := m.orders[session.OrderID]
		if ok && !ord.IsPaid {
			cp := *session
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryOrderRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*order.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*order.OutboxEvent
	for _, event := range m.outbox {
		if event.ProcessedAt == nil {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryOrderRepository) MarkEventProcessed(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	for _, event := range m.outbox {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
		}
	}
	return nil
}

func (m *memoryOrderRepository) RunMigrations(*order.Credentials) error { return nil }
func (m *memoryOrderRepository) Close() error                           { return nil }

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

type mockCardProvider struct {
	createErr  error
	verifyPaid bool
	verifyErr  error
	sessionID  string
}

func (m *mockCardProvider) CreateSession(context.Context, *domain.Order) (*payment.CardSession, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &payment.CardSession{SessionID: m.sessionID, URL: "https://pay.example.com/" + m.sessionID}, nil
}

func (m *mockCardProvider) VerifySession(_ context.Context, sessionID string) (*domain.PaymentReceipt, bool, error) {
	if m.verifyErr != nil {
		return nil, false, m.verifyErr
	}
	if !m.verifyPaid {
		return nil, false, nil
	}
	return &domain.PaymentReceipt{ID: sessionID, Status: "paid"}, true, nil
}

type mockWalletProvider struct {
	providerOrderID string
	createErr       error
	captureErr      error
	verifyPaid      bool

	calls *[]string
}

func (m *mockWalletProvider) CreateOrder(context.Context, *domain.Order) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.providerOrderID, nil
}

func (m *mockWalletProvider) Capture(_ context.Context, providerOrderID string) (*domain.PaymentReceipt, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, "capture")
	}
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	return &domain.PaymentReceipt{ID: providerOrderID, Status: "COMPLETED"}, nil
}

func (m *mockWalletProvider) VerifyOrder(_ context.Context, providerOrderID string) (*domain.PaymentReceipt, bool, error) {
	if !m.verifyPaid {
		return nil, false, nil
	}
	return &domain.PaymentReceipt{ID: providerOrderID, Status: "COMPLETED"}, true, nil
}
