package domain

import "context"

// OrderSource отдаёт список открытых заказов одного аккаунта продавца.
// Порядок заказов между вызовами не гарантируется; дедупликацию
// обеспечивает Ledger, а не источник.
type OrderSource interface {
	FetchOpenOrders(ctx context.Context) ([]Order, error)
}

// LabelAPI — граница клиента маркетплейса для работы с лейблами.
// Детали HTTP/OAuth остаются внутри реализации.
type LabelAPI interface {
	// CreateShippingLabel запрашивает создание лейбла для позиции и
	// возвращает идентификатор лейбла.
	CreateShippingLabel(ctx context.Context, orderItemID string, quantity int) (string, error)
	// GetShippingLabel скачивает PDF по идентификатору лейбла.
	GetShippingLabel(ctx context.Context, labelID string) ([]byte, error)
}

// LabelState описывает исход попытки получить лейбл для позиции.
type LabelState string

const (
	// LabelNotApplicable — позиция не FBR, лейбл не запрашивается.
	LabelNotApplicable LabelState = "not_applicable"
	// LabelAcquired — лейбл получен и сохранён локально.
	LabelAcquired LabelState = "acquired"
	// LabelFailed — попытка была, но не удалась; колонка лейбла остаётся пустой.
	LabelFailed LabelState = "failed"
)

// LabelResult — результат получения лейбла. Failed не фатален для цикла:
// строка batch-файла выводится с пустым лейблом, заказ всё равно
// считается обработанным.
type LabelResult struct {
	State LabelState
	// Ref — идентификатор лейбла; совпадает с именем PDF без расширения.
	Ref string
	// Path — локальный путь сохранённого PDF (пустой, если лейбла нет).
	Path string
	// Reason заполняется для LabelFailed.
	Reason string
}

// LabelAcquirer получает лейбл для позиции заказа.
type LabelAcquirer interface {
	Acquire(ctx context.Context, order Order, item OrderItem) LabelResult
}

// DeliverySink загружает файлы в удалённое хранилище.
type DeliverySink interface {
	// UploadBatches загружает batch-файлы в каталог батчей.
	UploadBatches(ctx context.Context, localPaths []string) error
	// UploadLabels загружает PDF-лейблы в каталог лейблов.
	UploadLabels(ctx context.Context, localPaths []string) error
}

// Notifier отправляет человекочитаемую сводку по итогам цикла.
// Ошибка отправки логируется и никогда не отменяет уже сделанную работу.
type Notifier interface {
	Send(ctx context.Context, report CycleReport) error
}
