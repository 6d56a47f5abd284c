package domain

import "context"

// CheckoutItem описывает позицию в запросе на создание платёжной ссылки.
type CheckoutItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	// Price хранит цену за единицу в минимальных денежных единицах.
	Price int64 `json:"price"`
}

// CheckoutRequest описывает тело запроса к checkout endpoint.
type CheckoutRequest struct {
	Handle      string         `json:"handle"`
	Items       []CheckoutItem `json:"items"`
	RedirectURL string         `json:"redirect_url"`
}

// AmountMinor возвращает сумму запроса в минимальных единицах.
func (r CheckoutRequest) AmountMinor() int64 {
	var sum int64
	for _, item := range r.Items {
		sum += int64(item.Quantity) * item.Price
	}
	return sum
}

// CheckoutLink содержит успешный ответ endpoint, то есть страницу оплаты.
type CheckoutLink struct {
	URL string `json:"url"`
}

// CheckoutGateway создаёт платёжную ссылку по содержимому корзины.
type CheckoutGateway interface {
	CreateLink(ctx context.Context, req CheckoutRequest) (CheckoutLink, error)
}
