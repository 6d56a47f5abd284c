package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewStorefrontMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetricsWithRegisterer(reg)

	if m.cartMutations == nil || m.cartUnits == nil || m.persistFailures == nil {
		t.Fatal("cart collectors should not be nil")
	}
	if m.checkoutAttempts == nil || m.checkoutDuration == nil {
		t.Fatal("checkout collectors should not be nil")
	}
	if m.proxyRequests == nil || m.proxyUpstreamDuration == nil {
		t.Fatal("proxy collectors should not be nil")
	}
}

func TestNewStorefrontMetrics_ReusesAlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewStorefrontMetricsWithRegisterer(reg)
	second := NewStorefrontMetricsWithRegisterer(reg)

	first.RecordPersistFailure()
	second.RecordPersistFailure()

	if got := testutil.ToFloat64(first.persistFailures); got != 2 {
		t.Errorf("expected shared counter value 2, got %f", got)
	}
}

func TestRecordCartMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetricsWithRegisterer(reg)

	m.RecordCartMutation("add", 1)
	m.RecordCartMutation("add", 2)
	m.RecordCartMutation("remove", 0)

	if got := testutil.ToFloat64(m.cartMutations.WithLabelValues("add")); got != 2 {
		t.Errorf("expected 2 add mutations, got %f", got)
	}
	if got := testutil.ToFloat64(m.cartMutations.WithLabelValues("remove")); got != 1 {
		t.Errorf("expected 1 remove mutation, got %f", got)
	}

	gauge := &dto.Metric{}
	if err := m.cartUnits.Write(gauge); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gauge.Gauge.GetValue() != 0 {
		t.Errorf("expected cart units 0, got %f", gauge.Gauge.GetValue())
	}
}

func TestRecordCheckout_SkipsZeroDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetricsWithRegisterer(reg)

	m.RecordCheckout(CheckoutResultEmpty, 0)
	m.RecordCheckout(CheckoutResultSuccess, 120*time.Millisecond)

	if got := testutil.ToFloat64(m.checkoutAttempts.WithLabelValues(CheckoutResultEmpty)); got != 1 {
		t.Errorf("expected 1 empty_cart attempt, got %f", got)
	}

	hist := &dto.Metric{}
	if err := m.checkoutDuration.Write(hist); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if hist.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 duration sample, got %d", hist.Histogram.GetSampleCount())
	}
}

func TestRecordProxyRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetricsWithRegisterer(reg)

	m.RecordProxyRequest(201, time.Millisecond)
	m.RecordProxyRequest(502, time.Millisecond)

	if got := testutil.ToFloat64(m.proxyRequests.WithLabelValues("2xx")); got != 1 {
		t.Errorf("expected one 2xx request, got %f", got)
	}
	if got := testutil.ToFloat64(m.proxyRequests.WithLabelValues("5xx")); got != 1 {
		t.Errorf("expected one 5xx request, got %f", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *StorefrontMetrics
	m.RecordCartMutation("add", 1)
	m.RecordCartLoaded(1)
	m.RecordPersistFailure()
	m.RecordCheckout(CheckoutResultSuccess, time.Second)
	m.RecordProxyRequest(200, time.Second)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 404: "4xx", 500: "5xx", 0: "error", 700: "error"}
	for code, want := range tests {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetricsWithRegisterer(reg)

	m.RecordPublish(OutboxResultSent)
	m.RecordPublish(OutboxResultSent)
	m.RecordPublish(OutboxResultFailed)
	if got := testutil.ToFloat64(m.publishAttempts.WithLabelValues(OutboxResultSent)); got != 2 {
		t.Errorf("expected 2 sent, got %f", got)
	}

	m.SetBacklog(3, 90*time.Second)
	if got := testutil.ToFloat64(m.pendingRecords); got != 3 {
		t.Errorf("expected 3 pending, got %f", got)
	}
	if got := testutil.ToFloat64(m.oldestPendingAge); got != 90 {
		t.Errorf("expected age 90s, got %f", got)
	}

	m.SetBacklog(0, time.Hour)
	if got := testutil.ToFloat64(m.oldestPendingAge); got != 0 {
		t.Errorf("empty backlog must reset age, got %f", got)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.RecordPublish(OutboxResultSent)
	nilMetrics.SetBacklog(1, time.Second)
}
