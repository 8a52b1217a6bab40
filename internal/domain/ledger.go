package domain

import "time"

// ProcessedOrderRecord — запись реестра обработанных заказов.
// На каждый (order_id, order_item_id) существует не более одной записи;
// заказ из реестра никогда не попадает в новый batch-файл повторно.
type ProcessedOrderRecord struct {
	OrderID     string
	OrderItemID string
	BatchNumber string
	BatchType   Category
	ProcessedAt time.Time
}

// Ledger хранит идентификаторы уже обработанных заказов и обеспечивает
// exactly-once семантику конвейера. Реализация обязана переживать
// перезапуск процесса; недоступность реестра трактуется как
// ErrLedgerUnavailable и закрывает весь цикл (fail closed).
type Ledger interface {
	// Has сообщает, обрабатывался ли заказ ранее.
	Has(orderID string) (bool, error)
	// Record фиксирует обработку; повторный вызов для того же заказа — no-op.
	Record(rec ProcessedOrderRecord) error
	// FilterUnprocessed возвращает подмножество идентификаторов, которых
	// ещё нет в реестре, сохраняя исходный порядок.
	FilterUnprocessed(orderIDs []string) ([]string, error)
	// Count возвращает общее число записей.
	Count() (int, error)
	// CountByCategory возвращает распределение записей по категориям.
	CountByCategory() (map[Category]int, error)
}
