package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// ledger — реестр обработанных заказов поверх PostgreSQL. Вариант для
// развёртываний, где несколько инстансов делят одну базу.
type ledger struct {
	db *sql.DB
}

var _ domain.Ledger = (*ledger)(nil)

// NewLedger создаёт PostgreSQL-реализацию Ledger.
func NewLedger(store *Store) domain.Ledger {
	return &ledger{db: store.DB()}
}

// Has сообщает, есть ли в реестре хотя бы одна позиция заказа.
func (l *ledger) Has(orderID string) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return false, domain.ErrOrderIDRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var exists bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_orders WHERE order_id = $1)
	`, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: query processed order: %v", domain.ErrLedgerUnavailable, err)
	}
	return exists, nil
}

// Record фиксирует позицию заказа. Конфликт по первичному ключу означает
// повторную запись и игнорируется.
func (l *ledger) Record(rec domain.ProcessedOrderRecord) error {
	if strings.TrimSpace(rec.OrderID) == "" {
		return domain.ErrOrderIDRequired
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO processed_orders (order_id, order_item_id, batch_number, batch_type, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, order_item_id) DO NOTHING
	`,
		rec.OrderID,
		rec.OrderItemID,
		rec.BatchNumber,
		string(rec.BatchType),
		rec.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("%w: record processed order %s: %v", domain.ErrLedgerUnavailable, rec.OrderID, err)
	}
	return nil
}

// FilterUnprocessed возвращает идентификаторы без записей в реестре,
// сохраняя исходный порядок.
func (l *ledger) FilterUnprocessed(orderIDs []string) ([]string, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT order_id FROM processed_orders WHERE order_id = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: filter processed orders: %v", domain.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{}, len(orderIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan processed order id: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate processed orders: %v", domain.ErrLedgerUnavailable, err)
	}

	out := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Count возвращает общее число записей реестра.
func (l *ledger) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count processed orders: %v", domain.ErrLedgerUnavailable, err)
	}
	return count, nil
}

// CountByCategory возвращает распределение записей по категориям.
func (l *ledger) CountByCategory() (map[domain.Category]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT batch_type, COUNT(*) FROM processed_orders GROUP BY batch_type
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: count by category: %v", domain.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	out := make(map[domain.Category]int, 3)
	for rows.Next() {
		var (
			batchType string
			count     int
		)
		if err := rows.Scan(&batchType, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[domain.Category(batchType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate category counts: %v", domain.ErrLedgerUnavailable, err)
	}
	return out, nil
}

// isUniqueViolation распознаёт нарушение уникальности PostgreSQL (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
