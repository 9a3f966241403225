package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (id, user_id, items, shipping_address, payment_method,
	              items_price, shipping_price, tax_price, total_price, currency,
	              created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		addressJSON,
		order.PaymentMethod,
		order.ItemsPrice,
		order.ShippingPrice,
		order.TaxPrice,
		order.TotalPrice,
		order.Currency)

	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

const orderColumns = `id, user_id, items, shipping_address, payment_method,
	items_price, shipping_price, tax_price, total_price, currency,
	is_paid, paid_at, receipt, is_delivered, delivered_at, created_at, updated_at`

func (r *PostgresRepository) scanOrder(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, addressJSON []byte
	var receiptJSON []byte

	err := scanner.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&addressJSON,
		&order.PaymentMethod,
		&order.ItemsPrice,
		&order.ShippingPrice,
		&order.TaxPrice,
		&order.TotalPrice,
		&order.Currency,
		&order.IsPaid,
		&order.PaidAt,
		&receiptJSON,
		&order.IsDelivered,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if len(receiptJSON) > 0 {
		var receipt domain.PaymentReceipt
		if err := json.Unmarshal(receiptJSON, &receipt); err != nil {
			return nil, fmt.Errorf("unmarshal receipt: %w", err)
		}
		order.Receipt = &receipt
	}

	return &order, nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders rows: %w", err)
	}

	return orders, nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, receipt domain.PaymentReceipt) (bool, error) {
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return false, fmt.Errorf("marshal receipt: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin mark-paid tx: %w", err)
	}
	defer tx.Rollback()

	// The is_paid guard makes the flip idempotent: replayed verifies
	// and duplicate reconciliation passes fall through here.
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET is_paid = TRUE, paid_at = NOW(), receipt = $2, updated_at = NOW()
		 WHERE id = $1 AND is_paid = FALSE`,
		orderID, receiptJSON)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark paid rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return false, fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return false, ErrOrderNotFound
		}
		return false, tx.Commit()
	}

	var payload OrderPaidPayload
	row := tx.QueryRowContext(ctx,
		`SELECT user_id, total_price, currency, paid_at FROM orders WHERE id = $1`, orderID)
	payload.OrderID = orderID.String()
	if err := row.Scan(&payload.UserID, &payload.TotalPrice, &payload.Currency, &payload.PaidAt); err != nil {
		return false, fmt.Errorf("read paid order for event: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal order-paid payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		orderID.String(), EventOrderPaid, payloadJSON)
	if err != nil {
		return false, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit mark-paid tx: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET is_delivered = TRUE, delivered_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND is_delivered = FALSE`,
		orderID)
	if err != nil {
		return fmt.Errorf("mark order delivered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
	}
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *domain.PaymentSession) error {
	query := `INSERT INTO payment_sessions (id, order_id, provider, provider_ref, state, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.OrderID,
		session.Provider,
		session.ProviderRef,
		session.State)
	if err != nil {
		return fmt.Errorf("insert payment session: %w", err)
	}
	return nil
}

const sessionColumns = `id, order_id, provider, COALESCE(provider_ref, ''), state, receipt, created_at, updated_at`

func scanSession(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.PaymentSession, error) {
	var session domain.PaymentSession
	var receiptJSON []byte

	err := scanner.Scan(
		&session.ID,
		&session.OrderID,
		&session.Provider,
		&session.ProviderRef,
		&session.State,
		&receiptJSON,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(receiptJSON) > 0 {
		var receipt domain.PaymentReceipt
		if err := json.Unmarshal(receiptJSON, &receipt); err != nil {
			return nil, fmt.Errorf("unmarshal session receipt: %w", err)
		}
		session.Receipt = &receipt
	}
	return &session, nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session by id: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) FindSessionByProviderRef(ctx context.Context, orderID uuid.UUID, providerRef string) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
	          WHERE order_id = $1 AND provider_ref = $2
	          ORDER BY created_at DESC LIMIT 1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, orderID, providerRef))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session by provider ref: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) LatestOpenSession(ctx context.Context, orderID uuid.UUID, provider domain.PaymentMethod) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
	          WHERE order_id = $1 AND provider = $2 AND state NOT IN ($3, $4)
	          ORDER BY created_at DESC LIMIT 1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query,
		orderID, provider, domain.PaymentStatePaid, domain.PaymentStateFailed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest open session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) UpdateSessionState(ctx context.Context, sessionID uuid.UUID, state domain.PaymentState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_sessions SET state = $2, updated_at = NOW() WHERE id = $1`,
		sessionID, state)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session state rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) SetSessionProviderRef(ctx context.Context, sessionID uuid.UUID, providerRef string, state domain.PaymentState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_sessions SET provider_ref = $2, state = $3, updated_at = NOW() WHERE id = $1`,
		sessionID, providerRef, state)
	if err != nil {
		return fmt.Errorf("set session provider ref: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session provider ref rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) SetSessionReceipt(ctx context.Context, sessionID uuid.UUID, receipt domain.PaymentReceipt) error {
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal session receipt: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_sessions SET receipt = $2, updated_at = NOW() WHERE id = $1`,
		sessionID, receiptJSON)
	if err != nil {
		return fmt.Errorf("set session receipt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session receipt rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) GetStuckSessions(ctx context.Context) ([]*domain.PaymentSession, error) {
	query := `SELECT s.id, s.order_id, s.provider, COALESCE(s.provider_ref, ''), s.state, s.receipt, s.created_at, s.updated_at
	          FROM payment_sessions s
	          JOIN orders o ON o.id = s.order_id
	          WHERE s.receipt IS NOT NULL AND o.is_paid = FALSE`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.PaymentSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stuck sessions rows: %w", err)
	}

	return sessions, nil
}

func (r *PostgresRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at, processed_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id ASC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
			&event.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox rows: %w", err)
	}

	return events, nil
}

func (r *PostgresRepository) MarkEventProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}
