package memory

import (
	"sync"
	"time"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// Ledger — потокобезопасный реестр обработанных заказов в памяти.
// Подходит для тестов и разовых прогонов; не переживает перезапуск.
type Ledger struct {
	mu sync.RWMutex
	// byItem хранит запись на каждую пару (order_id, order_item_id).
	byItem map[itemKey]domain.ProcessedOrderRecord
	// orders хранит множество обработанных заказов для быстрого Has.
	orders map[string]struct{}
}

type itemKey struct {
	orderID     string
	orderItemID string
}

var _ domain.Ledger = (*Ledger)(nil)

// NewLedger создаёт пустой реестр.
func NewLedger() *Ledger {
	return &Ledger{
		byItem: make(map[itemKey]domain.ProcessedOrderRecord),
		orders: make(map[string]struct{}),
	}
}

// Has сообщает, обрабатывался ли заказ ранее.
func (l *Ledger) Has(orderID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.orders[orderID]
	return ok, nil
}

// Record фиксирует обработку позиции заказа. Повторная запись той же пары
// (order_id, order_item_id) не изменяет реестр.
func (l *Ledger) Record(rec domain.ProcessedOrderRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := itemKey{orderID: rec.OrderID, orderItemID: rec.OrderItemID}
	if _, exists := l.byItem[key]; exists {
		return nil
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	l.byItem[key] = rec
	l.orders[rec.OrderID] = struct{}{}
	return nil
}

// FilterUnprocessed возвращает идентификаторы, которых нет в реестре,
// в исходном порядке.
func (l *Ledger) FilterUnprocessed(orderIDs []string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if _, ok := l.orders[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Count возвращает число записей реестра.
func (l *Ledger) Count() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.byItem), nil
}

// CountByCategory возвращает распределение записей по категориям.
func (l *Ledger) CountByCategory() (map[domain.Category]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[domain.Category]int, 3)
	for _, rec := range l.byItem {
		out[rec.BatchType]++
	}
	return out, nil
}
