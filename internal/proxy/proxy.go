// Package proxy реализует HTTP-прокси к платёжному провайдеру с CORS для витрины.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	// DefaultTargetURL указывает endpoint провайдера, создающий платёжные ссылки.
	DefaultTargetURL = "https://api.infinitepay.io/invoices/public/checkout/links"

	// MaxBodyBytes ограничивает тело входящего запроса.
	MaxBodyBytes = 1 << 20

	upstreamUserAgent      = "Mozilla/5.0"
	defaultUpstreamTimeout = 30 * time.Second
	maxUpstreamBodyBytes   = 4 << 20
)

// Config задаёт upstream и CORS.
type Config struct {
	TargetURL       string
	AllowedOrigin   string
	UpstreamTimeout time.Duration
}

// Proxy пересылает запросы на создание платёжной ссылки провайдеру.
type Proxy struct {
	cfg     Config
	client  *http.Client
	outbox  domain.OutboxRepository
	metrics *metrics.StorefrontMetrics
	logger  *log.Entry
}

// Option настраивает Proxy.
type Option func(*Proxy)

// WithHTTPClient подменяет клиента для upstream.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Proxy) {
		if client != nil {
			p.client = client
		}
	}
}

// WithOutbox включает запись событий checkout в outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(p *Proxy) { p.outbox = repo }
}

// WithMetrics включает метрики прокси.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(p *Proxy) { p.metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New создаёт прокси.
func New(cfg Config, options ...Option) *Proxy {
	if cfg.TargetURL == "" {
		cfg.TargetURL = DefaultTargetURL
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = defaultUpstreamTimeout
	}

	p := &Proxy{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.WithField("component", "checkout-proxy"),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Router возвращает chi-роутер: OPTIONS и POST на / и /api/checkout.
func (p *Proxy) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(p.logger))
	r.Use(middleware.Recoverer)
	r.Use(p.cors)

	for _, pattern := range []string{"/", "/api/checkout"} {
		r.Options(pattern, p.handlePreflight)
		r.Post(pattern, p.handleCheckout)
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (p *Proxy) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", p.cfg.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (p *Proxy) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (p *Proxy) handleCheckout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	logger := p.logger.WithField("request_id", requestID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	// тело пересылается как есть; разбор нужен только для события
	var checkoutReq domain.CheckoutRequest
	_ = json.Unmarshal(body, &checkoutReq)

	started := time.Now()
	resp, err := p.forward(r.Context(), requestID, body)
	elapsed := time.Since(started)
	if err != nil {
		p.metrics.RecordProxyRequest(0, elapsed)
		logger.WithError(err).Error("payment provider unreachable")
		p.recordEvent(logger, kafka.EventTypeCheckoutFailed, requestID, checkoutReq, 0, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	upstreamBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodyBytes))
	if err != nil {
		p.metrics.RecordProxyRequest(0, elapsed)
		logger.WithError(err).Error("read payment provider response")
		p.recordEvent(logger, kafka.EventTypeCheckoutFailed, requestID, checkoutReq, resp.StatusCode, err)
		writeError(w, http.StatusInternalServerError, "read upstream response: "+err.Error())
		return
	}

	p.metrics.RecordProxyRequest(resp.StatusCode, elapsed)
	logger.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": elapsed,
		"items":    len(checkoutReq.Items),
	}).Info("checkout forwarded")
	p.recordEvent(logger, kafka.EventTypeCheckoutForwarded, requestID, checkoutReq, resp.StatusCode, nil)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(upstreamBody)
}

func (p *Proxy) forward(ctx context.Context, requestID string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.UpstreamTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TargetURL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", upstreamUserAgent)
	if requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (p *Proxy) recordEvent(logger *log.Entry, eventType kafka.EventType, requestID string, req domain.CheckoutRequest, status int, cause error) {
	if p.outbox == nil {
		return
	}

	event := kafka.NewCheckoutEvent(eventType, requestID, req, status)
	if cause != nil {
		event.Error = cause.Error()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Warn("marshal checkout event")
		return
	}

	if _, err := p.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateCheckout,
		AggregateID:   requestID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		logger.WithError(err).Warn("enqueue checkout event")
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(started),
				"request_id": middleware.GetReqID(r.Context()),
				"remote":     r.RemoteAddr,
			}).Debug("http request")
		})
	}
}
