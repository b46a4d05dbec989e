package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// fakeBackend serves the REST shapes the bot consumes. tradeCalls counts
// POST /api/trades hits so tests can assert client-side validation
// short-circuits.
func fakeBackend(tradeCalls *atomic.Int64) http.Handler {
	const quote = `{"symbol":"ACME","price":101.5,"open":100,"high":102,"low":99.5,` +
		`"previous_close":100,"change":1.5,"change_percent":1.5,"volume":4200,` +
		`"updated_at":"2024-01-01T00:00:00Z"}`

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stocks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[" + quote + "]"))
	})
	mux.HandleFunc("/api/stocks/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ACME") {
			w.Write([]byte(quote))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Symbol not found"}`))
	})
	mux.HandleFunc("/api/users/42/portfolio", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[{"symbol":"ACME","quantity":2,"average_price":101.5}],"realized_pnl":3.25}`))
	})
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[],"realized_pnl":0}`))
	})
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		if tradeCalls != nil {
			tradeCalls.Add(1)
		}
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"POOR"`) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Insufficient funds: required 20000.00, available 10000.00"}`))
			return
		}
		w.Write([]byte(`{"user_id":"42","symbol":"ACME","side":"BUY","quantity":2,"price":101.5,` +
			`"total":203,"balance":9797,"portfolio":{"positions":[{"symbol":"ACME","quantity":2,` +
			`"average_price":101.5}],"realized_pnl":0},"realized_change":0}`))
	})
	return mux
}

func newTestBot(t *testing.T, tradeCalls *atomic.Int64) *Bot {
	t.Helper()
	ts := httptest.NewServer(fakeBackend(tradeCalls))
	t.Cleanup(ts.Close)

	b, err := New(Config{
		Token:      "test-token",
		BackendURL: ts.URL,
		Prefix:     "!",
		Log:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return b
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	b := newTestBot(t, nil)
	ctx := context.Background()

	for _, msg := range []string{"hello", "", "!", "!unknown", "buy ACME 2"} {
		if reply, ok := b.dispatch(ctx, "42", "<@42>", msg); ok {
			t.Errorf("message %q should be ignored, got reply %q", msg, reply)
		}
	}
}

func TestDispatchUsageHints(t *testing.T) {
	b := newTestBot(t, nil)
	ctx := context.Background()

	cases := map[string]string{
		"!price":    "사용법: !price SYMBOL",
		"!buy":      "사용법: !buy SYMBOL 수량",
		"!buy ACME": "사용법: !buy SYMBOL 수량",
		"!sell":     "사용법: !sell SYMBOL 수량",
	}
	for msg, want := range cases {
		reply, ok := b.dispatch(ctx, "42", "<@42>", msg)
		if !ok || reply != want {
			t.Errorf("%q: got %q, want %q", msg, reply, want)
		}
	}
}

func TestMarketCommand(t *testing.T) {
	b := newTestBot(t, nil)

	reply, ok := b.dispatch(context.Background(), "42", "<@42>", "!market")
	if !ok {
		t.Fatal("market command not handled")
	}
	for _, want := range []string{"**ACME**", "가격: 101.50", "변동: +1.50 (+1.50%)", "거래량: 4200"} {
		if !strings.Contains(reply, want) {
			t.Errorf("market reply missing %q:\n%s", want, reply)
		}
	}
}

func TestPriceCommandUnknownSymbol(t *testing.T) {
	b := newTestBot(t, nil)

	reply, _ := b.dispatch(context.Background(), "42", "<@42>", "!price NOPE")
	if reply != "알 수 없는 종목이거나 서버 오류가 발생했습니다." {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestBuyCommand(t *testing.T) {
	var calls atomic.Int64
	b := newTestBot(t, &calls)

	reply, ok := b.dispatch(context.Background(), "42", "<@42>", "!buy ACME 2")
	if !ok {
		t.Fatal("buy command not handled")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 trade call, got %d", calls.Load())
	}
	for _, want := range []string{"<@42>님의 BUY 주문이 체결되었습니다!", "계좌 잔액: 9797.00", "보유 종목: ACME 2주"} {
		if !strings.Contains(reply, want) {
			t.Errorf("buy reply missing %q:\n%s", want, reply)
		}
	}
}

func TestTradeRejectedSurfacesDetail(t *testing.T) {
	b := newTestBot(t, nil)

	reply, _ := b.dispatch(context.Background(), "42", "<@42>", "!buy POOR 5")
	want := "거래가 거부되었습니다: Insufficient funds: required 20000.00, available 10000.00"
	if reply != want {
		t.Errorf("got %q, want %q", reply, want)
	}
}

func TestQuantityValidationShortCircuits(t *testing.T) {
	var calls atomic.Int64
	b := newTestBot(t, &calls)
	ctx := context.Background()

	for _, qty := range []string{"abc", "-1", "0", "NaN", "Inf"} {
		reply, ok := b.dispatch(ctx, "42", "<@42>", "!buy ACME "+qty)
		if !ok || reply != "수량은 양의 숫자로 입력해주세요." {
			t.Errorf("qty %q: got %q", qty, reply)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("backend should not be called for invalid quantities, got %d calls", calls.Load())
	}
}

func TestPortfolioCommand(t *testing.T) {
	b := newTestBot(t, nil)
	ctx := context.Background()

	reply, _ := b.dispatch(ctx, "42", "<@42>", "!portfolio")
	want := "ACME: 2주 (평단 101.50)\n누적 실현 손익: +3.25"
	if reply != want {
		t.Errorf("got %q, want %q", reply, want)
	}

	reply, _ = b.dispatch(ctx, "7", "<@7>", "!portfolio")
	if reply != "현재 보유한 종목이 없습니다." {
		t.Errorf("unexpected empty-portfolio reply: %q", reply)
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"2", 2, true},
		{"0.5", 0.5, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"+Inf", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseQuantity(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseQuantity(%q) = %v,%v, want %v,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
