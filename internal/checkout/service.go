// Package checkout собирает запрос на оплату из корзины и отправляет его
// в checkout endpoint. Корзина при этом только читается.
package checkout

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// LoadingLabel показывается на кнопке, пока ссылка генерируется.
const LoadingLabel = "Gerando Link..."

// CartReader описывает то, что checkout читает из Cart Store.
type CartReader interface {
	Items() []domain.LineItem
}

// Trigger описывает элемент управления, запустивший checkout.
type Trigger interface {
	Label() string
	SetLabel(label string)
	SetEnabled(enabled bool)
}

// Config задаёт параметры запроса к провайдеру.
type Config struct {
	Handle      string
	RedirectURL string
}

// Service выполняет checkout текущей корзины.
type Service struct {
	cart     CartReader
	gateway  domain.CheckoutGateway
	cfg      Config
	logger   *log.Entry
	metrics  *metrics.StorefrontMetrics
	inFlight atomic.Bool
}

// ServiceOption настраивает Service.
type ServiceOption func(*Service)

// WithServiceLogger задаёт logger.
func WithServiceLogger(logger *log.Entry) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceMetrics включает метрики checkout.
func WithServiceMetrics(m *metrics.StorefrontMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService создаёт checkout-сервис.
func NewService(cart CartReader, gateway domain.CheckoutGateway, cfg Config, options ...ServiceOption) *Service {
	if cfg.Handle == "" {
		cfg.Handle = DefaultHandle
	}
	s := &Service{
		cart:    cart,
		gateway: gateway,
		cfg:     cfg,
		logger:  log.WithField("component", "checkout"),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Submit отправляет корзину в checkout endpoint и возвращает ссылку на оплату.
//
// Пустая корзина отклоняется до сетевого вызова. На время запроса trigger
// выключен и показывает LoadingLabel; при ошибке он включается обратно с
// исходной надписью. При успехе trigger остаётся выключенным: вызывающий
// уходит на страницу оплаты.
func (s *Service) Submit(ctx context.Context, trigger Trigger) (domain.CheckoutLink, error) {
	if trigger == nil {
		trigger = noopTrigger{}
	}

	req, err := BuildRequest(s.cart.Items(), s.cfg.Handle, s.cfg.RedirectURL)
	if err != nil {
		s.metrics.RecordCheckout(metrics.CheckoutResultEmpty, 0)
		return domain.CheckoutLink{}, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return domain.CheckoutLink{}, domain.ErrCheckoutInProgress
	}
	defer s.inFlight.Store(false)

	originalLabel := trigger.Label()
	trigger.SetLabel(LoadingLabel)
	trigger.SetEnabled(false)

	logger := s.logger.WithFields(log.Fields{
		"items":        len(req.Items),
		"amount_minor": req.AmountMinor(),
	})

	started := time.Now()
	link, err := s.gateway.CreateLink(ctx, req)
	elapsed := time.Since(started)
	if err != nil {
		trigger.SetLabel(originalLabel)
		trigger.SetEnabled(true)
		s.metrics.RecordCheckout(resultOf(err), elapsed)
		if domain.IsCheckoutFailure(err) {
			logger.WithError(err).Warn("checkout failed")
		} else {
			logger.WithError(err).Info("checkout aborted")
		}
		return domain.CheckoutLink{}, err
	}

	s.metrics.RecordCheckout(metrics.CheckoutResultSuccess, elapsed)
	logger.WithField("duration", elapsed).Info("checkout link ready")
	return link, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.CheckoutResultCanceled
	case errors.Is(err, domain.ErrCheckoutRejected):
		return metrics.CheckoutResultRejected
	case errors.Is(err, domain.ErrCheckoutURLMissing):
		return metrics.CheckoutResultNoURL
	default:
		return metrics.CheckoutResultUnavailable
	}
}

type noopTrigger struct{}

func (noopTrigger) Label() string   { return "" }
func (noopTrigger) SetLabel(string) {}
func (noopTrigger) SetEnabled(bool) {}
