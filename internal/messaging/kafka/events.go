package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события витрины.
type EventType string

const (
	// EventTypeCheckoutForwarded: прокси переслал запрос провайдеру и получил ответ.
	EventTypeCheckoutForwarded EventType = "checkout.forwarded"
	// EventTypeCheckoutFailed: провайдер недоступен, покупатель получил 500.
	EventTypeCheckoutFailed EventType = "checkout.failed"
)

// AggregateCheckout задаёт aggregate_type для событий checkout в outbox.
const AggregateCheckout = "checkout"

// Topics для Kafka
const (
	TopicCheckoutEvents  = "storefront.checkout.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers, которые добавляются к каждому сообщению.
const (
	HeaderEventType     = "x-event-type"
	HeaderRequestID     = "x-request-id"
	HeaderOriginalTopic = "x-original-topic"
)

// CheckoutEvent описывает payload события checkout, которое прокси кладёт в outbox.
type CheckoutEvent struct {
	EventType      EventType              `json:"event_type"`
	RequestID      string                 `json:"request_id"`
	Handle         string                 `json:"handle,omitempty"`
	ItemCount      int                    `json:"item_count"`
	AmountMinor    int64                  `json:"amount_minor"`
	UpstreamStatus int                    `json:"upstream_status,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создаёт событие по запросу, прошедшему через прокси.
func NewCheckoutEvent(eventType EventType, requestID string, req domain.CheckoutRequest, upstreamStatus int) *CheckoutEvent {
	return &CheckoutEvent{
		EventType:      eventType,
		RequestID:      requestID,
		Handle:         req.Handle,
		ItemCount:      len(req.Items),
		AmountMinor:    req.AmountMinor(),
		UpstreamStatus: upstreamStatus,
		Timestamp:      time.Now().UTC(),
	}
}
