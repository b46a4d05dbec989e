package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorsAreExposed(t *testing.T) {
	m := New()
	m.TicksTotal.Inc()
	m.DroppedBatches.WithLabelValues(ConsumerWSClient).Inc()
	m.TradesTotal.WithLabelValues("BUY").Inc()
	m.TradeFailures.WithLabelValues("insufficient_funds").Inc()
	m.TradeDur.Observe(0.02)
	m.Inconsistencies.Inc()
	m.WSClients.Set(3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`market_ticks_total 1`,
		`market_dropped_batches_total{consumer="ws_client"} 1`,
		`trades_total{side="BUY"} 1`,
		`trade_failures_total{reason="insufficient_funds"} 1`,
		`ledger_inconsistencies_total 1`,
		`websocket_clients 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNewIsIsolated(t *testing.T) {
	// Each Metrics owns its registry, so building two must not panic
	// with duplicate registration.
	a := New()
	b := New()
	a.TicksTotal.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "market_ticks_total 1") {
		t.Error("registries are shared between instances")
	}
}
