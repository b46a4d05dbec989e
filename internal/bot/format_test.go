package bot

import (
	"testing"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

func TestFormatQuote(t *testing.T) {
	q := model.Quote{
		Symbol:        "ACME",
		Price:         101.5,
		High:          102,
		Low:           99.5,
		Change:        1.5,
		ChangePercent: 1.5,
		Volume:        4200,
	}
	want := "**ACME**\n가격: 101.50\n변동: +1.50 (+1.50%)\n고가/저가: 102.00 / 99.50\n거래량: 4200"
	if got := formatQuote(q); got != want {
		t.Errorf("formatQuote:\n got %q\nwant %q", got, want)
	}
}

func TestFormatQuoteNegativeChange(t *testing.T) {
	q := model.Quote{Symbol: "BNB", Price: 48.5, High: 50, Low: 48.5, Change: -1.5, ChangePercent: -3, Volume: 100}
	want := "**BNB**\n가격: 48.50\n변동: -1.50 (-3.00%)\n고가/저가: 50.00 / 48.50\n거래량: 100"
	if got := formatQuote(q); got != want {
		t.Errorf("formatQuote:\n got %q\nwant %q", got, want)
	}
}

func TestFormatTrade(t *testing.T) {
	r := model.TradeResult{
		UserID:   "42",
		Symbol:   "ACME",
		Side:     model.SideBuy,
		Quantity: 2,
		Price:    100.25,
		Total:    200.5,
		Balance:  9799.5,
		Portfolio: model.Portfolio{
			Positions: []model.Position{{Symbol: "ACME", Quantity: 2, AveragePrice: 100.25}},
		},
	}
	want := "<@42>님의 BUY 주문이 체결되었습니다!\n" +
		"ACME 2주 @ 100.25 → 총 200.50\n" +
		"계좌 잔액: 9799.50\n" +
		"실현 손익 변화: +0.00\n" +
		"보유 종목: ACME 2주"
	if got := formatTrade("<@42>", r); got != want {
		t.Errorf("formatTrade:\n got %q\nwant %q", got, want)
	}
}

func TestFormatTradeNoHoldings(t *testing.T) {
	r := model.TradeResult{
		Symbol:         "ACME",
		Side:           model.SideSell,
		Quantity:       1.5,
		Price:          80,
		Total:          120,
		Balance:        10_120,
		RealizedChange: -4.5,
	}
	want := "<@7>님의 SELL 주문이 체결되었습니다!\n" +
		"ACME 1.5주 @ 80.00 → 총 120.00\n" +
		"계좌 잔액: 10120.00\n" +
		"실현 손익 변화: -4.50\n" +
		"보유 종목: 보유 종목 없음"
	if got := formatTrade("<@7>", r); got != want {
		t.Errorf("formatTrade:\n got %q\nwant %q", got, want)
	}
}

func TestFormatPortfolio(t *testing.T) {
	p := model.Portfolio{
		Positions: []model.Position{
			{Symbol: "ACME", Quantity: 2, AveragePrice: 100.25},
			{Symbol: "BNB", Quantity: 0.5, AveragePrice: 30},
		},
		RealizedPnL: -12.5,
	}
	want := "ACME: 2주 (평단 100.25)\nBNB: 0.5주 (평단 30.00)\n누적 실현 손익: -12.50"
	if got := formatPortfolio(p); got != want {
		t.Errorf("formatPortfolio:\n got %q\nwant %q", got, want)
	}
}

func TestFormatPortfolioEmpty(t *testing.T) {
	if got := formatPortfolio(model.Portfolio{}); got != "현재 보유한 종목이 없습니다." {
		t.Errorf("unexpected empty portfolio message: %q", got)
	}
}
