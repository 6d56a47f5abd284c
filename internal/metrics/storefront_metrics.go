package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label "result" для checkout.
const (
	CheckoutResultSuccess     = "success"
	CheckoutResultEmpty       = "empty_cart"
	CheckoutResultRejected    = "rejected"
	CheckoutResultUnavailable = "unavailable"
	CheckoutResultNoURL       = "no_url"
	CheckoutResultCanceled    = "canceled"
)

// StorefrontMetrics содержит метрики корзины, checkout и checkout-прокси.
// Все методы безопасно вызывать на nil.
type StorefrontMetrics struct {
	cartMutations   *prometheus.CounterVec
	cartUnits       prometheus.Gauge
	persistFailures prometheus.Counter

	checkoutAttempts *prometheus.CounterVec
	checkoutDuration prometheus.Histogram

	proxyRequests         *prometheus.CounterVec
	proxyUpstreamDuration prometheus.Histogram
}

// NewStorefrontMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном registerer;
// повторная регистрация возвращает уже существующие коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations grouped by operation",
		}, []string{"op"}),
		cartUnits: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_units",
			Help: "Number of product units currently in the cart",
		}),
		persistFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of failed cart writes to storage",
		}),
		checkoutAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_attempts_total",
			Help: "Total number of checkout submissions grouped by result",
		}, []string{"result"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout endpoint calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		proxyRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_proxy_requests_total",
			Help: "Total number of checkout proxy requests grouped by upstream status class",
		}, []string{"status"}),
		proxyUpstreamDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_proxy_upstream_duration_seconds",
			Help:    "Duration of payment provider calls made by the checkout proxy",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	return register(registerer, opts.Name, collector)
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	return register(registerer, opts.Name, collector)
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	return register(registerer, opts.Name, collector)
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	return register(registerer, opts.Name, collector)
}

// register регистрирует коллектор; при AlreadyRegisteredError возвращает существующий
// коллектор того же типа.
func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) T {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	existing, ok := alreadyRegistered.ExistingCollector.(T)
	if !ok {
		panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
	}
	return existing
}

// RecordCartMutation учитывает изменение корзины и текущее количество единиц.
func (m *StorefrontMetrics) RecordCartMutation(op string, units int) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
	m.cartUnits.Set(float64(units))
}

// RecordCartLoaded выставляет gauge после загрузки корзины из хранилища.
func (m *StorefrontMetrics) RecordCartLoaded(units int) {
	if m == nil {
		return
	}
	m.cartUnits.Set(float64(units))
}

// RecordPersistFailure увеличивает счётчик неудачных сохранений.
func (m *StorefrontMetrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// RecordCheckout фиксирует результат checkout и длительность сетевого вызова.
// Нулевая длительность (отказ до сети) в гистограмму не попадает.
func (m *StorefrontMetrics) RecordCheckout(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutAttempts.WithLabelValues(result).Inc()
	if duration > 0 {
		m.checkoutDuration.Observe(duration.Seconds())
	}
}

// RecordProxyRequest фиксирует ответ провайдера, проксированный клиенту.
func (m *StorefrontMetrics) RecordProxyRequest(statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(StatusClass(statusCode)).Inc()
	m.proxyUpstreamDuration.Observe(duration.Seconds())
}

// StatusClass сворачивает HTTP-код в класс вида "2xx".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}
