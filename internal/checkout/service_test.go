package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type stubGateway struct {
	mu       sync.Mutex
	calls    int
	requests []domain.CheckoutRequest
	link     domain.CheckoutLink
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (g *stubGateway) CreateLink(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutLink, error) {
	g.mu.Lock()
	g.calls++
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.entered != nil {
		close(g.entered)
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return domain.CheckoutLink{}, ctx.Err()
		}
	}
	return g.link, g.err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type buttonTrigger struct {
	mu      sync.Mutex
	label   string
	enabled bool
	history []string
}

func newButton() *buttonTrigger {
	return &buttonTrigger{label: "Finalizar Compra", enabled: true}
}

func (b *buttonTrigger) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *buttonTrigger) SetLabel(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
	b.history = append(b.history, label)
}

func (b *buttonTrigger) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func filledStore(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.NewStore(memory.NewKeyValueStorage(), cart.WithLogger(loggerForTests()))
	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddItem("sku1", "Tee", decimal.RequireFromString("29.9"), ""))
	require.NoError(t, store.AddItem("sku1", "Tee", decimal.RequireFromString("29.9"), ""))
	require.NoError(t, store.AddItem("sku2", "Cap", decimal.RequireFromString("15.005"), ""))
	return store
}

func TestService_Submit_Success(t *testing.T) {
	store := filledStore(t)
	gateway := &stubGateway{link: domain.CheckoutLink{URL: "https://pay.example/1"}}
	button := newButton()
	svc := checkout.NewService(store, gateway, checkout.Config{
		RedirectURL: checkout.SuccessURL("https://sabor.example/"),
	}, checkout.WithServiceLogger(loggerForTests()))

	link, err := svc.Submit(context.Background(), button)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/1", link.URL)

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.Equal(t, checkout.DefaultHandle, req.Handle)
	assert.Equal(t, "https://sabor.example/success.html", req.RedirectURL)
	assert.Equal(t, []domain.CheckoutItem{
		{Description: "Tee", Quantity: 2, Price: 2990},
		{Description: "Cap", Quantity: 1, Price: 1501},
	}, req.Items)

	assert.Equal(t, checkout.LoadingLabel, button.Label())
	assert.False(t, button.enabled, "trigger stays disabled while navigating away")
	assert.Equal(t, 2, store.Len(), "checkout must not modify the cart")
}

func TestService_Submit_EmptyCartRejectedBeforeNetwork(t *testing.T) {
	store := cart.NewStore(memory.NewKeyValueStorage())
	require.NoError(t, store.Initialize())
	gateway := &stubGateway{}
	button := newButton()
	reg := prometheus.NewRegistry()

	svc := checkout.NewService(store, gateway, checkout.Config{},
		checkout.WithServiceMetrics(metrics.NewStorefrontMetricsWithRegisterer(reg)))

	_, err := svc.Submit(context.Background(), button)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, 0, gateway.callCount())
	assert.Empty(t, button.history, "trigger untouched for empty cart")
	assert.Equal(t, "Seu carrinho está vazio!", checkout.UserMessage(err))
}

func TestService_Submit_FailureRestoresTrigger(t *testing.T) {
	for _, gatewayErr := range []error{
		domain.ErrCheckoutRejected,
		domain.ErrCheckoutUnavailable,
		domain.ErrCheckoutURLMissing,
	} {
		t.Run(gatewayErr.Error(), func(t *testing.T) {
			store := filledStore(t)
			before := store.Items()
			gateway := &stubGateway{err: gatewayErr}
			button := newButton()
			logger, hook := logtest.NewNullLogger()
			svc := checkout.NewService(store, gateway, checkout.Config{}, checkout.WithServiceLogger(logrus.NewEntry(logger)))

			_, err := svc.Submit(context.Background(), button)
			assert.ErrorIs(t, err, gatewayErr)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
			assert.Equal(t, 1, gateway.callCount(), "no automatic retry")
			assert.Equal(t, "Finalizar Compra", button.Label())
			assert.True(t, button.enabled)
			assert.Equal(t, []string{checkout.LoadingLabel, "Finalizar Compra"}, button.history)
			assert.Equal(t, before, store.Items())
			assert.Contains(t, checkout.UserMessage(err), "Ocorreu um erro ao processar o checkout")
		})
	}
}

func TestService_Submit_RejectsConcurrentSubmit(t *testing.T) {
	store := filledStore(t)
	gateway := &stubGateway{
		link:    domain.CheckoutLink{URL: "https://pay.example/1"},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc := checkout.NewService(store, gateway, checkout.Config{}, checkout.WithServiceLogger(loggerForTests()))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), newButton())
		done <- err
	}()
	<-gateway.entered

	_, err := svc.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrCheckoutInProgress)

	// корзина остаётся доступной, пока запрос в полёте
	require.NoError(t, store.AddItem("sku3", "Meia", decimal.RequireFromString("9.9"), ""))

	close(gateway.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gateway.callCount())
}

func TestService_Submit_Canceled(t *testing.T) {
	store := filledStore(t)
	gateway := &stubGateway{block: make(chan struct{})}
	button := newButton()
	logger, hook := logtest.NewNullLogger()
	svc := checkout.NewService(store, gateway, checkout.Config{}, checkout.WithServiceLogger(logrus.NewEntry(logger)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, button)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, button.enabled)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level, "cancellation is not a checkout failure")
}

func TestBuildRequest(t *testing.T) {
	_, err := checkout.BuildRequest(nil, checkout.DefaultHandle, "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	req, err := checkout.BuildRequest([]domain.LineItem{
		{ID: "a", Name: "A", Price: decimal.RequireFromString("0.1"), Quantity: 3},
	}, "shop", "https://x/success.html")
	require.NoError(t, err)
	assert.Equal(t, "shop", req.Handle)
	assert.Equal(t, []domain.CheckoutItem{{Description: "A", Quantity: 3, Price: 10}}, req.Items)
}

func TestSuccessURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000/success.html", checkout.SuccessURL("http://localhost:8000"))
	assert.Equal(t, "https://sabor.example/success.html", checkout.SuccessURL("https://sabor.example/"))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", checkout.UserMessage(nil))
	assert.Equal(t,
		"Ocorreu um erro ao processar o checkout: URL de pagamento não retornada.",
		checkout.UserMessage(domain.ErrCheckoutURLMissing))
	assert.Equal(t,
		"Ocorreu um erro ao processar o checkout: Erro ao gerar link de pagamento. Tente novamente.",
		checkout.UserMessage(errors.Join(domain.ErrCheckoutRejected, errors.New("status 500"))))
	assert.Equal(t,
		"Ocorreu um erro ao processar o checkout: boom",
		checkout.UserMessage(errors.New("boom")))
}
