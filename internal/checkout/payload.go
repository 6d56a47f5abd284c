package checkout

import (
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// DefaultHandle задаёт handle магазина у платёжного провайдера.
	DefaultHandle = "onlinepayment2026"
	// SuccessPath указывает страницу, на которую провайдер возвращает покупателя.
	SuccessPath = "/success.html"
)

// BuildRequest сериализует корзину в запрос на создание платёжной ссылки.
// Цена каждой позиции переводится в минимальные единицы с округлением.
func BuildRequest(items []domain.LineItem, handle, redirectURL string) (domain.CheckoutRequest, error) {
	if len(items) == 0 {
		return domain.CheckoutRequest{}, domain.ErrEmptyCart
	}

	req := domain.CheckoutRequest{
		Handle:      handle,
		Items:       make([]domain.CheckoutItem, 0, len(items)),
		RedirectURL: redirectURL,
	}
	for _, item := range items {
		req.Items = append(req.Items, domain.CheckoutItem{
			Description: item.Name,
			Quantity:    item.Quantity,
			Price:       item.UnitAmountMinor(),
		})
	}
	return req, nil
}

// SuccessURL строит redirect_url из origin витрины.
func SuccessURL(origin string) string {
	return strings.TrimRight(origin, "/") + SuccessPath
}
