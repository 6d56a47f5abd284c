package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultClientTimeout = 30 * time.Second
	maxErrorBodyBytes    = 4 << 10
	maxResponseBytes     = 1 << 20

	// HeaderRequestID передаётся прокси и логируется на обеих сторонах.
	HeaderRequestID = "X-Request-ID"
)

// Client реализует domain.CheckoutGateway поверх HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *log.Entry
}

// ClientOption настраивает Client.
type ClientOption func(*Client)

// WithHTTPClient подменяет http.Client (таймауты, транспорт в тестах).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientLogger задаёт logger клиента.
func WithClientLogger(logger *log.Entry) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создаёт клиента checkout endpoint.
func NewClient(endpoint string, options ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultClientTimeout},
		logger:   log.WithField("component", "checkout-client"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// CreateLink отправляет POST с JSON-телом и возвращает ссылку на оплату.
// Повторных попыток нет.
func (c *Client) CreateLink(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutLink, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.CheckoutLink{}, fmt.Errorf("marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.CheckoutLink{}, fmt.Errorf("%w: build request: %w", domain.ErrCheckoutUnavailable, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)

	logger := c.logger.WithFields(log.Fields{
		"request_id": requestID,
		"items":      len(req.Items),
	})

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.WithError(err).Error("checkout endpoint unreachable")
		return domain.CheckoutLink{}, fmt.Errorf("%w: %w", domain.ErrCheckoutUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(detail)),
		}).Error("checkout endpoint rejected request")
		return domain.CheckoutLink{}, fmt.Errorf("%w: status %d", domain.ErrCheckoutRejected, resp.StatusCode)
	}

	var link domain.CheckoutLink
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&link); err != nil {
		logger.WithError(err).Error("checkout response is not valid json")
		return domain.CheckoutLink{}, fmt.Errorf("%w: decode response: %w", domain.ErrCheckoutURLMissing, err)
	}
	if strings.TrimSpace(link.URL) == "" {
		return domain.CheckoutLink{}, domain.ErrCheckoutURLMissing
	}

	logger.Info("payment link created")
	return link, nil
}

var _ domain.CheckoutGateway = (*Client)(nil)
