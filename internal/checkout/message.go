package checkout

import (
	"errors"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const failurePrefix = "Ocorreu um erro ao processar o checkout: "

// UserMessage превращает ошибку checkout в одно сообщение для покупателя.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyCart):
		return "Seu carrinho está vazio!"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return "Seu link de pagamento já está sendo gerado."
	case errors.Is(err, domain.ErrCheckoutURLMissing):
		return failurePrefix + "URL de pagamento não retornada."
	case errors.Is(err, domain.ErrCheckoutRejected):
		return failurePrefix + "Erro ao gerar link de pagamento. Tente novamente."
	case errors.Is(err, domain.ErrCheckoutUnavailable):
		return failurePrefix + "Não foi possível conectar ao servidor de pagamento."
	default:
		return failurePrefix + err.Error()
	}
}
