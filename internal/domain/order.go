package domain

import "time"

// OrderStatus описывает статус заказа на стороне маркетплейса.
type OrderStatus string

const (
	// OrderStatusOpen — заказ открыт и ожидает обработки.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusShipped — заказ уже отправлен.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCancelled — заказ отменён покупателем или маркетплейсом.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// FulfilmentMethod показывает, кто физически отправляет позицию.
type FulfilmentMethod string

const (
	// FulfilmentRetailer (FBR) — отправляет продавец; только для таких позиций доступны лейблы.
	FulfilmentRetailer FulfilmentMethod = "FBR"
	// FulfilmentMarketplace (FBB) — отправляет маркетплейс со своего склада.
	FulfilmentMarketplace FulfilmentMethod = "FBB"
)

// IsRetailer сообщает, отправляется ли позиция продавцом.
func (m FulfilmentMethod) IsRetailer() bool {
	return m == FulfilmentRetailer
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции, выдаётся маркетплейсом.
	ID string
	// EAN — идентификатор товара.
	EAN string
	// Quantity — количество единиц товара.
	Quantity int
	// Fulfilment определяет, доступно ли создание лейбла для позиции.
	Fulfilment FulfilmentMethod
}

// Order агрегирует заказ маркетплейса. После загрузки из источника
// заказ не мутируется; конвейер только выводит из него классификацию.
type Order struct {
	ID       string
	PlacedAt time.Time
	Status   OrderStatus
	Items    []OrderItem
}

// TotalQuantity возвращает суммарное количество единиц по всем позициям.
func (o Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// DistinctEANs возвращает количество различных EAN в заказе.
func (o Order) DistinctEANs() int {
	seen := make(map[string]struct{}, len(o.Items))
	for _, item := range o.Items {
		if item.EAN == "" {
			continue
		}
		seen[item.EAN] = struct{}{}
	}
	return len(seen)
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.EAN == "" {
			errs = append(errs, ErrItemEANRequired)
		}
	}

	return errs
}
