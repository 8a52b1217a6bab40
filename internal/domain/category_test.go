package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

func item(id, ean string, qty int) domain.OrderItem {
	return domain.OrderItem{ID: id, EAN: ean, Quantity: qty, Fulfilment: domain.FulfilmentRetailer}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		items []domain.OrderItem
		want  domain.Category
	}{
		{
			name:  "one ean quantity one",
			items: []domain.OrderItem{item("i1", "8712345678901", 1)},
			want:  domain.CategorySingle,
		},
		{
			name:  "one ean quantity two",
			items: []domain.OrderItem{item("i1", "8712345678901", 2)},
			want:  domain.CategorySingleLine,
		},
		{
			name:  "one ean split over two items",
			items: []domain.OrderItem{item("i1", "8712345678901", 1), item("i2", "8712345678901", 1)},
			want:  domain.CategorySingleLine,
		},
		{
			name:  "two distinct eans",
			items: []domain.OrderItem{item("i1", "8712345678901", 1), item("i2", "8712345678902", 1)},
			want:  domain.CategoryMulti,
		},
		{
			name:  "many eans with quantities",
			items: []domain.OrderItem{item("i1", "1", 3), item("i2", "2", 1), item("i3", "3", 2)},
			want:  domain.CategoryMulti,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := domain.Order{ID: "o-1", Items: tc.items}
			got := domain.Classify(order)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Valid(), "classification must always yield a valid category")
		})
	}
}

// Категория не зависит от порядка позиций.
func TestClassify_OrderIndependent(t *testing.T) {
	items := []domain.OrderItem{
		item("i1", "100", 2),
		item("i2", "200", 1),
		item("i3", "100", 1),
	}
	forward := domain.Order{ID: "o-1", Items: items}

	reversed := make([]domain.OrderItem, len(items))
	for i, it := range items {
		reversed[len(items)-1-i] = it
	}
	backward := domain.Order{ID: "o-1", Items: reversed}

	assert.Equal(t, domain.Classify(forward), domain.Classify(backward))
}

func TestCategoryCode(t *testing.T) {
	assert.Equal(t, "S", domain.CategorySingle.Code())
	assert.Equal(t, "SL", domain.CategorySingleLine.Code())
	assert.Equal(t, "M", domain.CategoryMulti.Code())
	assert.Equal(t, "", domain.Category("Unknown").Code())
}

func TestGroupByCategory_PreservesSourceOrder(t *testing.T) {
	orders := []domain.Order{
		{ID: "a", Items: []domain.OrderItem{item("i1", "1", 1)}},
		{ID: "b", Items: []domain.OrderItem{item("i2", "1", 1), item("i3", "2", 1)}},
		{ID: "c", Items: []domain.OrderItem{item("i4", "9", 1)}},
		{ID: "d", Items: []domain.OrderItem{item("i5", "9", 5)}},
	}

	groups := domain.GroupByCategory(orders)

	singles := groups[domain.CategorySingle]
	if assert.Len(t, singles, 2) {
		assert.Equal(t, "a", singles[0].ID)
		assert.Equal(t, "c", singles[1].ID)
	}
	assert.Len(t, groups[domain.CategoryMulti], 1)
	assert.Len(t, groups[domain.CategorySingleLine], 1)
}
