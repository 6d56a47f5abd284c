package domain

import "errors"

var (
	// Ошибка пустого идентификатора товара.
	ErrItemIDRequired = errors.New("item id is required")
	// ErrInvalidPrice: цена не является неотрицательным числом.
	ErrInvalidPrice = errors.New("item price must be a non-negative number")
	// Ошибка при некорректном количестве товара (< 1).
	ErrItemQtyInvalid = errors.New("item quantity must be at least one")
	// ErrIndexOutOfRange возвращается, если позиция с таким индексом отсутствует в корзине.
	ErrIndexOutOfRange = errors.New("cart index out of range")
	// ErrPersistFailed: корзина изменена в памяти, но не сохранена в хранилище.
	ErrPersistFailed = errors.New("cart persist failed")
	// ErrKeyNotFound возвращается хранилищем, если ключ отсутствует.
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrEmptyCart: checkout пустой корзины запрещён ещё до сетевого вызова.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInProgress: предыдущий checkout ещё не завершён.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrCheckoutUnavailable: сетевая ошибка при обращении к checkout endpoint.
	ErrCheckoutUnavailable = errors.New("checkout endpoint unavailable")
	// ErrCheckoutRejected: endpoint ответил не-2xx статусом.
	ErrCheckoutRejected = errors.New("checkout request rejected")
	// ErrCheckoutURLMissing: в успешном ответе нет ссылки на оплату.
	ErrCheckoutURLMissing = errors.New("checkout response has no payment url")

	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsCheckoutFailure сообщает, относится ли ошибка к сбою обращения к checkout endpoint.
func IsCheckoutFailure(err error) bool {
	return errors.Is(err, ErrCheckoutUnavailable) ||
		errors.Is(err, ErrCheckoutRejected) ||
		errors.Is(err, ErrCheckoutURLMissing)
}
