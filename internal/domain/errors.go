package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка отсутствующего EAN у позиции.
	ErrItemEANRequired = errors.New("item ean is required")
	// ErrLedgerUnavailable — реестр обработанных заказов недоступен; цикл
	// обязан завершиться без обработки, иначе возможна повторная отгрузка.
	ErrLedgerUnavailable = errors.New("processed-order ledger unavailable")
	// ErrCycleInFlight возвращается при попытке запустить цикл, пока
	// предыдущий ещё не завершился.
	ErrCycleInFlight = errors.New("processing cycle already in flight")
	// ErrNoActiveAccounts — в конфигурации нет ни одного активного аккаунта.
	ErrNoActiveAccounts = errors.New("no active marketplace accounts configured")
	// ErrSourceUnavailable — источник заказов недоступен или отверг авторизацию.
	ErrSourceUnavailable = errors.New("order source unavailable")
	// ErrDeliveryFailed — загрузка файлов в удалённое хранилище не удалась.
	ErrDeliveryFailed = errors.New("batch delivery failed")
	// ErrMonitorAlreadyRunning — монитор уже запущен (есть живой PID-файл).
	ErrMonitorAlreadyRunning = errors.New("monitor already running")
	// ErrMonitorNotRunning — операция остановки без запущенного монитора.
	ErrMonitorNotRunning = errors.New("monitor is not running")
)

// IsLedgerUnavailable проверяет, является ли ошибка недоступностью реестра.
func IsLedgerUnavailable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}
