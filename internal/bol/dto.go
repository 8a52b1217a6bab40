package bol

import (
	"fmt"
	"time"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

// reducedOrdersDTO — страница списка заказов Retailer API.
type reducedOrdersDTO struct {
	Orders []reducedOrderDTO `json:"orders"`
}

type reducedOrderDTO struct {
	OrderID             string                `json:"orderId"`
	OrderPlacedDateTime string                `json:"orderPlacedDateTime"`
	OrderItems          []reducedOrderItemDTO `json:"orderItems"`
}

type reducedOrderItemDTO struct {
	OrderItemID string `json:"orderItemId"`
	EAN         string `json:"ean"`
	Quantity    int    `json:"quantity"`
}

// toDomain переводит DTO в доменный заказ. Способ исполнения известен из
// параметра запроса, а не из ответа, поэтому передаётся снаружи.
func (d reducedOrderDTO) toDomain(method domain.FulfilmentMethod) (domain.Order, error) {
	if d.OrderID == "" {
		return domain.Order{}, fmt.Errorf("order without id")
	}

	placedAt, err := parseOrderTime(d.OrderPlacedDateTime)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", d.OrderID, err)
	}

	items := make([]domain.OrderItem, 0, len(d.OrderItems))
	for _, raw := range d.OrderItems {
		items = append(items, domain.OrderItem{
			ID:         raw.OrderItemID,
			EAN:        raw.EAN,
			Quantity:   raw.Quantity,
			Fulfilment: method,
		})
	}

	order := domain.Order{
		ID:       d.OrderID,
		PlacedAt: placedAt,
		Status:   domain.OrderStatusOpen,
		Items:    items,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("order %s invalid: %v", d.OrderID, errs[0])
	}
	return order, nil
}

// parseOrderTime разбирает время размещения заказа. API отдаёт RFC3339
// с зоной, но пустое значение тоже встречается.
func parseOrderTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing order placed time")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse order placed time %q: %w", raw, err)
	}
	return ts, nil
}
