package bot

import (
	"fmt"
	"strings"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

func formatQuote(q model.Quote) string {
	return fmt.Sprintf(
		"**%s**\n가격: %.2f\n변동: %+.2f (%+.2f%%)\n고가/저가: %.2f / %.2f\n거래량: %d",
		q.Symbol, q.Price, q.Change, q.ChangePercent, q.High, q.Low, q.Volume,
	)
}

func formatTrade(mention string, r model.TradeResult) string {
	holdings := make([]string, 0, len(r.Portfolio.Positions))
	for _, p := range r.Portfolio.Positions {
		holdings = append(holdings, fmt.Sprintf("%s %v주", p.Symbol, p.Quantity))
	}
	held := strings.Join(holdings, ", ")
	if held == "" {
		held = "보유 종목 없음"
	}
	return fmt.Sprintf(
		"%s님의 %s 주문이 체결되었습니다!\n%s %v주 @ %.2f → 총 %.2f\n계좌 잔액: %.2f\n실현 손익 변화: %+.2f\n보유 종목: %s",
		mention, r.Side, r.Symbol, r.Quantity, r.Price, r.Total, r.Balance, r.RealizedChange, held,
	)
}

func formatPortfolio(p model.Portfolio) string {
	if len(p.Positions) == 0 {
		return "현재 보유한 종목이 없습니다."
	}
	lines := make([]string, 0, len(p.Positions)+1)
	for _, pos := range p.Positions {
		lines = append(lines, fmt.Sprintf("%s: %v주 (평단 %.2f)", pos.Symbol, pos.Quantity, pos.AveragePrice))
	}
	lines = append(lines, fmt.Sprintf("누적 실현 손익: %+.2f", p.RealizedPnL))
	return strings.Join(lines, "\n")
}
