package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// storedItem задаёт формат позиции в хранилище: {id, name, price, quantity, image},
// price хранится JSON-числом.
type storedItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

func encodeItems(items []domain.LineItem) (string, error) {
	stored := make([]storedItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, storedItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.RawMessage(item.Price.String()),
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(data), nil
}

// decodeItems разбирает сохранённую корзину. Пустая строка и JSON null дают
// пустую корзину; любая невалидная позиция или данные после массива делают
// значение целиком невалидным.
func decodeItems(raw string) ([]domain.LineItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))

	var stored []storedItem
	if err := dec.Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode cart: unexpected data after cart array")
	}

	items := make([]domain.LineItem, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for idx, s := range stored {
		price, err := decodePrice(s.Price)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", idx, domain.ErrInvalidPrice)
		}
		item := domain.LineItem{
			ID:       s.ID,
			Name:     s.Name,
			Price:    price,
			Quantity: s.Quantity,
			Image:    s.Image,
		}
		if errs := item.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("item[%d]: %w", idx, errs[0])
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("item[%d]: duplicate id %q", idx, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	return items, nil
}

// decodePrice принимает только JSON-число: строка "29.9" невалидна.
func decodePrice(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return decimal.Decimal{}, domain.ErrInvalidPrice
	}
	return decimal.NewFromString(string(raw))
}
