package domain

// Category — классификация заказа по составу позиций.
// Три значения взаимоисключающие и покрывают все заказы.
type Category string

const (
	// CategorySingle — один товар, одна единица.
	CategorySingle Category = "Single"
	// CategorySingleLine — один товар, несколько единиц.
	CategorySingleLine Category = "SingleLine"
	// CategoryMulti — несколько различных товаров.
	CategoryMulti Category = "Multi"
)

// Code возвращает короткий префикс категории для имён файлов: S, SL, M.
func (c Category) Code() string {
	switch c {
	case CategorySingle:
		return "S"
	case CategorySingleLine:
		return "SL"
	case CategoryMulti:
		return "M"
	default:
		return ""
	}
}

// Valid проверяет, что категория относится к поддерживаемым значениям.
func (c Category) Valid() bool {
	switch c {
	case CategorySingle, CategorySingleLine, CategoryMulti:
		return true
	default:
		return false
	}
}

// Categories перечисляет категории в порядке вывода файлов.
func Categories() []Category {
	return []Category{CategorySingle, CategorySingleLine, CategoryMulti}
}

// Classify относит заказ ровно к одной категории. Функция чистая и
// детерминированная: результат зависит только от множества EAN и
// суммарного количества, порядок позиций не играет роли.
func Classify(o Order) Category {
	if o.DistinctEANs() > 1 {
		return CategoryMulti
	}
	if o.TotalQuantity() > 1 {
		return CategorySingleLine
	}
	return CategorySingle
}

// GroupByCategory раскладывает заказы по категориям, сохраняя порядок
// внутри каждой категории таким, каким его вернул источник.
func GroupByCategory(orders []Order) map[Category][]Order {
	groups := make(map[Category][]Order, 3)
	for _, order := range orders {
		cat := Classify(order)
		groups[cat] = append(groups[cat], order)
	}
	return groups
}
