package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/Eymeric05/E-Perfume-sub000/internal/payment"
	"github.com/Eymeric05/E-Perfume-sub000/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderDraft is the client's view of the order at checkout time. Totals
// are submitted but never trusted; the server recomputes them from the
// catalog and rejects drift beyond a cent.
type OrderDraft struct {
	Items           []DraftItem          `json:"order_items"`
	ShippingAddress domain.Address       `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	ItemsPrice      float64              `json:"items_price"`
	ShippingPrice   float64              `json:"shipping_price"`
	TaxPrice        float64              `json:"tax_price"`
	TotalPrice      float64              `json:"total_price"`
}

type DraftItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Service struct {
	orders  order.Repository
	catalog catalog.Repository
	card    payment.CardProvider
	wallet  payment.WalletProvider
	pricing pricing.Config
	logger  *zap.Logger
}

func NewService(
	orders order.Repository,
	cat catalog.Repository,
	card payment.CardProvider,
	wallet payment.WalletProvider,
	pricingCfg pricing.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:  orders,
		catalog: cat,
		card:    card,
		wallet:  wallet,
		pricing: pricingCfg,
		logger:  logger,
	}
}

// CreateOrder validates the draft, reprices it against the catalog and
// persists the order unpaid. The cart is untouched; it is cleared only
// after the payment is reconciled.
func (s *Service) CreateOrder(ctx context.Context, userID string, draft OrderDraft) (*domain.Order, error) {
	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !draft.PaymentMethod.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}
	if draft.ShippingAddress == (domain.Address{}) {
		return nil, ErrMissingAddress
	}

	ids := make([]int64, 0, len(draft.Items))
	for _, item := range draft.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrEmptyOrder, item.ProductID, item.Quantity)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve draft products: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(draft.Items))
	items := make([]domain.OrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, item.ProductID)
		}
		lines = append(lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
	}

	quote := pricing.Compute(lines, s.pricing)
	claimed := pricing.Quote{
		ItemsPrice:    draft.ItemsPrice,
		ShippingPrice: draft.ShippingPrice,
		TaxPrice:      draft.TaxPrice,
		TotalPrice:    draft.TotalPrice,
	}
	if !quote.Matches(claimed) {
		s.logger.Warn("rejecting order draft with drifted totals",
			zap.String("user_id", userID),
			zap.Float64("claimed_total", draft.TotalPrice),
			zap.Float64("computed_total", quote.TotalPrice))
		return nil, ErrPriceMismatch
	}

	ord := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		ItemsPrice:      quote.ItemsPrice,
		ShippingPrice:   quote.ShippingPrice,
		TaxPrice:        quote.TaxPrice,
		TotalPrice:      quote.TotalPrice,
		Currency:        "USD",
	}

	if err := s.orders.CreateOrder(ctx, ord); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", ord.ID.String()),
		zap.String("user_id", userID),
		zap.String("payment_method", string(ord.PaymentMethod)),
		zap.Float64("total", ord.TotalPrice))

	return ord, nil
}

func (s *Service) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	ord, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return ord, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

func (s *Service) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	return s.orders.MarkDelivered(ctx, orderID)
}

// advance moves a session along the state machine, refusing edges the
// transition table does not allow.
func (s *Service) advance(ctx context.Context, session *domain.PaymentSession, to domain.PaymentState) error {
	if !domain.CanTransitionTo(session.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.State, to)
	}
	if err := s.orders.UpdateSessionState(ctx, session.ID, to); err != nil {
		return err
	}
	session.State = to
	return nil
}

// InitiateCardSession starts a hosted-redirect attempt: a fresh session
// row, a provider round-trip for the hosted URL, and the provider's
// session id recorded for the redirect back.
func (s *Service) InitiateCardSession(ctx context.Context, userID string, orderID uuid.UUID) (*payment.CardSession, error) {
	ord, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if ord.IsPaid {
		return nil, ErrOrderAlreadyPaid
	}

	session := &domain.PaymentSession{
		ID:       uuid.New(),
		OrderID:  orderID,
		Provider: domain.PaymentMethodCard,
		State:    domain.PaymentStateOrderCreated,
	}
	if err := s.orders.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	if err := s.advance(ctx, session, domain.PaymentStateSessionInitiated); err != nil {
		return nil, err
	}

	hosted, err := s.card.CreateSession(ctx, ord)
	if err != nil {
		s.failSession(ctx, session)
		return nil, fmt.Errorf("initiate card session: %w", err)
	}

	if err := s.orders.SetSessionProviderRef(ctx, session.ID, hosted.SessionID, domain.PaymentStateProviderRedirect); err != nil {
		return nil, fmt.Errorf("record provider session id: %w", err)
	}

	s.logger.Info("card session initiated",
		zap.String("order_id", orderID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("provider_ref", hosted.SessionID))

	return hosted, nil
}

// CreateWalletOrder is idempotent per order: the widget may call create
// more than once, and each call before approval must return the same
// provider order id.
func (s *Service) CreateWalletOrder(ctx context.Context, userID string, orderID uuid.UUID) (string, error) {
	ord, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if ord.IsPaid {
		return "", ErrOrderAlreadyPaid
	}

	existing, err := s.orders.LatestOpenSession(ctx, orderID, domain.PaymentMethodWallet)
	if err == nil && existing.ProviderRef != "" {
		return existing.ProviderRef, nil
	}
	if err != nil && !errors.Is(err, order.ErrSessionNotFound) {
		return "", fmt.Errorf("look up open wallet session: %w", err)
	}

	session := &domain.PaymentSession{
		ID:       uuid.New(),
		OrderID:  orderID,
		Provider: domain.PaymentMethodWallet,
		State:    domain.PaymentStateOrderCreated,
	}
	if err := s.orders.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create payment session: %w", err)
	}
	if err := s.advance(ctx, session, domain.PaymentStateSessionInitiated); err != nil {
		return "", err
	}

	providerOrderID, err := s.wallet.CreateOrder(ctx, ord)
	if err != nil {
		s.failSession(ctx, session)
		return "", fmt.Errorf("create wallet order: %w", err)
	}

	if err := s.orders.SetSessionProviderRef(ctx, session.ID, providerOrderID, domain.PaymentStateProviderWidget); err != nil {
		return "", fmt.Errorf("record wallet order id: %w", err)
	}

	s.logger.Info("wallet order created",
		zap.String("order_id", orderID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("provider_ref", providerOrderID))

	return providerOrderID, nil
}

// CaptureWalletOrder runs after the user approves in the widget. Funds
// are captured at the provider first; only then is the order marked
// paid. If mark-paid fails after a successful capture, the receipt
// stays on the session and the recovery pass completes the order later.
func (s *Service) CaptureWalletOrder(ctx context.Context, userID string, orderID uuid.UUID, providerOrderID string) (*domain.Order, error) {
	ord, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if ord.IsPaid {
		return ord, nil
	}

	session, err := s.orders.FindSessionByProviderRef(ctx, orderID, providerOrderID)
	if err != nil {
		if errors.Is(err, order.ErrSessionNotFound) {
			return nil, ErrUnknownProviderRef
		}
		return nil, err
	}

	if err := s.advance(ctx, session, domain.PaymentStateReconciling); err != nil {
		return nil, err
	}

	receipt, err := s.wallet.Capture(ctx, providerOrderID)
	if err != nil {
		s.failSession(ctx, session)
		return nil, fmt.Errorf("capture wallet order: %w", err)
	}

	// The receipt is durable before any further step: if notify fails
	// now, the funds are captured and recovery finishes the order.
	if err := s.orders.SetSessionReceipt(ctx, session.ID, *receipt); err != nil {
		s.logger.Error("failed to persist capture receipt",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	if _, err := s.orders.MarkPaid(ctx, orderID, *receipt); err != nil {
		s.logger.Error("capture succeeded but mark-paid failed; leaving session for recovery",
			zap.String("order_id", orderID.String()),
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("record payment: %w", err)
	}

	if err := s.advance(ctx, session, domain.PaymentStatePaid); err != nil {
		s.logger.Warn("paid order left with non-terminal session",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("wallet payment captured",
		zap.String("order_id", orderID.String()),
		zap.String("receipt_id", receipt.ID))

	return s.orders.GetOrderByID(ctx, orderID)
}

// CancelWalletOrder handles the widget's cancel/error callbacks: the
// attempt dies, the order stays unpaid, and the cart is untouched. A
// retry starts a fresh session.
func (s *Service) CancelWalletOrder(ctx context.Context, userID string, orderID uuid.UUID, providerOrderID string) error {
	if _, err := s.GetOrder(ctx, userID, orderID); err != nil {
		return err
	}

	session, err := s.orders.FindSessionByProviderRef(ctx, orderID, providerOrderID)
	if err != nil {
		if errors.Is(err, order.ErrSessionNotFound) {
			return ErrUnknownProviderRef
		}
		return err
	}
	if session.State.IsTerminal() {
		return nil
	}

	return s.advance(ctx, session, domain.PaymentStateFailed)
}

// Verify reconciles an order against the provider after a redirect back
// or a widget approval. It is idempotent: replaying a consumed session
// reference reports the paid order without re-running reconciliation.
func (s *Service) Verify(ctx context.Context, userID string, orderID uuid.UUID, providerRef string) (*domain.Order, error) {
	ord, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if ord.IsPaid {
		return ord, nil
	}

	session, err := s.orders.FindSessionByProviderRef(ctx, orderID, providerRef)
	if err != nil {
		if errors.Is(err, order.ErrSessionNotFound) {
			return nil, ErrUnknownProviderRef
		}
		return nil, err
	}

	if !session.State.IsTerminal() {
		if err := s.advance(ctx, session, domain.PaymentStateReconciling); err != nil {
			return nil, err
		}
	}

	var receipt *domain.PaymentReceipt
	var paid bool
	switch session.Provider {
	case domain.PaymentMethodCard:
		receipt, paid, err = s.card.VerifySession(ctx, providerRef)
	case domain.PaymentMethodWallet:
		receipt, paid, err = s.wallet.VerifyOrder(ctx, providerRef)
	default:
		return nil, domain.ErrInvalidPaymentMethod
	}
	if err != nil {
		return nil, fmt.Errorf("verify with provider: %w", err)
	}

	if !paid {
		if !session.State.IsTerminal() {
			if err := s.advance(ctx, session, domain.PaymentStateFailed); err != nil {
				return nil, err
			}
		}
		s.logger.Info("verification reported unpaid",
			zap.String("order_id", orderID.String()),
			zap.String("provider_ref", providerRef))
		return ord, nil
	}

	if err := s.orders.SetSessionReceipt(ctx, session.ID, *receipt); err != nil {
		s.logger.Error("failed to persist verify receipt",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	changed, err := s.orders.MarkPaid(ctx, orderID, *receipt)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	if !session.State.IsTerminal() {
		if err := s.advance(ctx, session, domain.PaymentStatePaid); err != nil {
			s.logger.Warn("paid order left with non-terminal session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
	}

	if changed {
		s.logger.Info("order reconciled as paid",
			zap.String("order_id", orderID.String()),
			zap.String("provider_ref", providerRef))
	}

	return s.orders.GetOrderByID(ctx, orderID)
}

// failSession force-fails an attempt after a provider error. State
// guard violations here only get logged; the session is already dead.
func (s *Service) failSession(ctx context.Context, session *domain.PaymentSession) {
	if err := s.advance(ctx, session, domain.PaymentStateFailed); err != nil {
		s.logger.Warn("could not fail payment session",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}
