package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// Ledger — реестр обработанных заказов поверх SQLite. Долговечность
// обеспечивает файл базы: записанный заказ не попадёт в новый батч и
// после перезапуска процесса.
type Ledger struct {
	db  *sqlx.DB
	log *log.Entry
}

var _ domain.Ledger = (*Ledger)(nil)

// NewLedger создаёт реестр поверх открытого хранилища.
func NewLedger(store *Store, logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.WithField("component", "sqlite_ledger")
	}
	return &Ledger{db: store.DB(), log: logger}
}

type processedOrderRow struct {
	OrderID     string    `db:"order_id"`
	OrderItemID string    `db:"order_item_id"`
	BatchNumber string    `db:"batch_number"`
	BatchType   string    `db:"batch_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Has сообщает, есть ли в реестре хотя бы одна позиция заказа.
func (l *Ledger) Has(orderID string) (bool, error) {
	var count int
	err := l.db.Get(&count,
		`SELECT COUNT(*) FROM processed_orders WHERE order_id = ?`, orderID)
	if err != nil {
		return false, fmt.Errorf("%w: query processed order: %v", domain.ErrLedgerUnavailable, err)
	}
	return count > 0, nil
}

// Record фиксирует позицию заказа. INSERT OR IGNORE делает повторную
// запись той же пары (order_id, order_item_id) безвредной.
func (l *Ledger) Record(rec domain.ProcessedOrderRecord) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO processed_orders
		     (order_id, order_item_id, batch_number, batch_type, processed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.OrderID, rec.OrderItemID, rec.BatchNumber, string(rec.BatchType), rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("%w: record processed order %s: %v", domain.ErrLedgerUnavailable, rec.OrderID, err)
	}
	return nil
}

// FilterUnprocessed возвращает идентификаторы без записей в реестре,
// сохраняя исходный порядок.
func (l *Ledger) FilterUnprocessed(orderIDs []string) ([]string, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT DISTINCT order_id FROM processed_orders WHERE order_id IN (?)`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("build filter query: %w", err)
	}

	var known []string
	if err := l.db.Select(&known, l.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: filter processed orders: %v", domain.ErrLedgerUnavailable, err)
	}

	seen := make(map[string]struct{}, len(known))
	for _, id := range known {
		seen[id] = struct{}{}
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
func (l *Ledger) Count() (int, error) {
	var count int
	if err := l.db.Get(&count, `SELECT COUNT(*) FROM processed_orders`); err != nil {
		return 0, fmt.Errorf("%w: count processed orders: %v", domain.ErrLedgerUnavailable, err)
	}
	return count, nil
}

// CountByCategory возвращает распределение записей по категориям.
func (l *Ledger) CountByCategory() (map[domain.Category]int, error) {
	rows := []struct {
		BatchType string `db:"batch_type"`
		Count     int    `db:"cnt"`
	}{}
	err := l.db.Select(&rows,
		`SELECT batch_type, COUNT(*) AS cnt FROM processed_orders GROUP BY batch_type`)
	if err != nil {
		return nil, fmt.Errorf("%w: count by category: %v", domain.ErrLedgerUnavailable, err)
	}

	out := make(map[domain.Category]int, len(rows))
	for _, row := range rows {
		out[domain.Category(strings.TrimSpace(row.BatchType))] = row.Count
	}
	return out, nil
}
