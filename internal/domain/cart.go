package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// StorageKeyCart: ключ хранилища, под которым лежит JSON-массив позиций корзины.
	StorageKeyCart = "cart"
	// StorageKeyWelcome: ключ флага о том, что приветственное окно уже закрыто.
	StorageKeyWelcome = "saboAvisoV1"
	// PlaceholderImage подставляется, если у товара нет картинки.
	PlaceholderImage = "images/placeholder.png"
)

var hundred = decimal.NewFromInt(100)

// LineItem представляет одну позицию корзины.
type LineItem struct {
	// ID уникален в пределах одной корзины.
	ID   string
	Name string
	// Price: цена за единицу, фиксируется в момент добавления.
	Price decimal.Decimal
	// Quantity всегда >= 1; позиция с меньшим количеством удаляется.
	Quantity int
	Image    string
}

// Subtotal возвращает price * quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UnitAmountMinor переводит цену в минимальные денежные единицы (центы/сентаво).
func (i LineItem) UnitAmountMinor() int64 {
	return ToMinorUnits(i.Price)
}

// Validate проверяет инварианты позиции.
func (i LineItem) Validate() []error {
	var errs []error

	if strings.TrimSpace(i.ID) == "" {
		errs = append(errs, ErrItemIDRequired)
	}
	if i.Price.IsNegative() {
		errs = append(errs, ErrInvalidPrice)
	}
	if i.Quantity < 1 {
		errs = append(errs, ErrItemQtyInvalid)
	}

	return errs
}

// ParsePrice разбирает цену из строки (например, из data-атрибута кнопки).
// Нечисловые и отрицательные значения отклоняются с ErrInvalidPrice.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	// Витрина иногда отдаёт цену в формате "29,90".
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if price.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return price, nil
}

// ToMinorUnits округляет amount*100 до целого (half away from zero).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// CartTotal возвращает сумму price*quantity по всем позициям.
func CartTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CartCount возвращает суммарное количество единиц товара.
func CartCount(items []LineItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
