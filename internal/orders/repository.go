// Package orders owns durable order records. It is the only writer of
// provider-transaction-id to order mappings; the unique constraint on that
// column is the concurrency primitive that makes duplicate capture
// deliveries a no-op.
package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateTransaction means this provider transaction id already
	// produced an order. Callers treat it as success and fetch the
	// original.
	ErrDuplicateTransaction = errors.New("provider transaction already processed")
)

type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, order_number, user_id, provider_transaction_id, total_charged, shipping_address, items, status, created_at`

// CreateOrder persists the order and its outbox event in one transaction.
// A 23505 on provider_transaction_id surfaces as ErrDuplicateTransaction.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, order_number, user_id, provider_transaction_id, total_charged, shipping_address, items, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.Number,
		order.UserID,
		order.ProviderTransactionID,
		order.TotalCharged.StringFixed(2),
		addressJSON,
		itemsJSON,
		order.Status)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":                order.ID,
		"order_number":            order.Number,
		"user_id":                 order.UserID,
		"items":                   order.Items,
		"total_charged":           order.TotalCharged,
		"provider_transaction_id": order.ProviderTransactionID,
		"captured_at":             time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	outboxQuery := `INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, outboxQuery, order.ID.String(), "order.captured", payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	return r.scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetOrderByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE provider_transaction_id = $1`, orderColumns)
	return r.scanOrder(r.db.QueryRowContext(ctx, query, transactionID))
}

func (r *PostgresRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var result []*domain.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE NOT processed ORDER BY created_at LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateId, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *PostgresRepository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func scanOrderRow(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, addressJSON []byte
	var total string

	err := row.Scan(
		&order.ID,
		&order.Number,
		&order.UserID,
		&order.ProviderTransactionID,
		&total,
		&addressJSON,
		&itemsJSON,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.TotalCharged, err = parseTotal(total)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}

	return &order, nil
}
