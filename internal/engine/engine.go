// Package engine orchestrates trades across the market feed, the external
// account service and the position ledger.
//
// Every trade follows the same ordering: validate first, move funds
// second, mutate the ledger last. Validation failures leave no trace
// anywhere. A ledger failure after funds moved triggers a best-effort
// compensating reversal of the funds movement.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/internal/ledger"
	"github.com/henryhwan14/DISCORDBOT/internal/model"
	"github.com/henryhwan14/DISCORDBOT/pkg/accounts"
)

// PriceSource yields current prices for tradable symbols.
type PriceSource interface {
	Price(symbol string) (float64, error)
}

// PositionLedger owns per-user positions and realized P&L.
type PositionLedger interface {
	Position(userID, symbol string) (model.Position, bool)
	Portfolio(userID string) model.Portfolio
	ApplyBuy(userID, symbol string, quantity, price float64) (model.Portfolio, error)
	ApplySell(userID, symbol string, quantity, price float64) (model.Portfolio, float64, error)
}

// TradeJournal records executed trades for auditing. A journal failure
// never fails the trade; it is logged and the result stands.
type TradeJournal interface {
	Record(tradeID string, res model.TradeResult) error
}

// Config wires an Engine. Feed, Ledger and Accounts are required;
// Journal is optional.
type Config struct {
	Feed     PriceSource
	Ledger   PositionLedger
	Accounts accounts.Service
	Journal  TradeJournal
	Log      zerolog.Logger
}

// Engine performs trades for users.
type Engine struct {
	feed     PriceSource
	ledger   PositionLedger
	accounts accounts.Service
	journal  TradeJournal
	log      zerolog.Logger

	// OnTrade is called after every successfully executed trade.
	OnTrade func(res model.TradeResult)
	// OnInconsistency is called when a funds movement could not be
	// reversed after a failed ledger write, i.e. the account service and
	// the ledger now disagree.
	OnInconsistency func()
}

// New creates an Engine from its collaborators.
func New(cfg Config) *Engine {
	return &Engine{
		feed:     cfg.Feed,
		ledger:   cfg.Ledger,
		accounts: cfg.Accounts,
		journal:  cfg.Journal,
		log:      cfg.Log.With().Str("component", "engine").Logger(),
	}
}

// Buy purchases quantity of symbol at the current market price.
//
// Ordering: quantity check, price lookup, balance pre-check, debit,
// ledger update. An InsufficientFundsError means nothing was mutated.
func (e *Engine) Buy(ctx context.Context, userID, symbol string, quantity float64) (model.TradeResult, error) {
	if err := validateQuantity(quantity); err != nil {
		return model.TradeResult{}, err
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	price, err := e.feed.Price(sym)
	if err != nil {
		return model.TradeResult{}, err
	}
	total := price * quantity

	bal, err := e.accounts.Balance(ctx, userID)
	if err != nil {
		return model.TradeResult{}, err
	}
	if bal.Balance < total {
		return model.TradeResult{}, &InsufficientFundsError{Required: total, Available: bal.Balance}
	}

	desc := fmt.Sprintf("BUY %v %s @ %.2f", quantity, sym, price)
	newBal, err := e.accounts.CreateTransaction(ctx, userID, -total, desc)
	if err != nil {
		return model.TradeResult{}, err
	}

	pf, err := e.ledger.ApplyBuy(userID, sym, quantity, price)
	if err != nil {
		return model.TradeResult{}, e.reverseFunds(ctx, userID, sym, model.SideBuy, quantity, price, total, err)
	}

	return e.finish(model.TradeResult{
		UserID:    userID,
		Symbol:    sym,
		Side:      model.SideBuy,
		Quantity:  quantity,
		Price:     price,
		Total:     total,
		Balance:   newBal.Balance,
		Portfolio: pf,
	}), nil
}

// Sell disposes of quantity of symbol at the current market price.
//
// Ordering: quantity check, position check (so a symbol the user never
// held reports PositionNotFound, known or not), price lookup, credit,
// ledger update. The result carries the realized P&L from this sell.
func (e *Engine) Sell(ctx context.Context, userID, symbol string, quantity float64) (model.TradeResult, error) {
	if err := validateQuantity(quantity); err != nil {
		return model.TradeResult{}, err
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	pos, ok := e.ledger.Position(userID, sym)
	if !ok {
		return model.TradeResult{}, &ledger.PositionNotFoundError{UserID: userID, Symbol: sym}
	}
	if quantity > pos.Quantity {
		return model.TradeResult{}, &ledger.QuantityExceedsPositionError{
			Symbol:    sym,
			Requested: quantity,
			Held:      pos.Quantity,
		}
	}

	price, err := e.feed.Price(sym)
	if err != nil {
		return model.TradeResult{}, err
	}
	total := price * quantity

	desc := fmt.Sprintf("SELL %v %s @ %.2f", quantity, sym, price)
	newBal, err := e.accounts.CreateTransaction(ctx, userID, total, desc)
	if err != nil {
		return model.TradeResult{}, err
	}

	pf, realized, err := e.ledger.ApplySell(userID, sym, quantity, price)
	if err != nil {
		return model.TradeResult{}, e.reverseFunds(ctx, userID, sym, model.SideSell, quantity, price, total, err)
	}

	return e.finish(model.TradeResult{
		UserID:         userID,
		Symbol:         sym,
		Side:           model.SideSell,
		Quantity:       quantity,
		Price:          price,
		Total:          total,
		Balance:        newBal.Balance,
		Portfolio:      pf,
		RealizedChange: realized,
	}), nil
}

// Portfolio returns the user's current portfolio snapshot.
func (e *Engine) Portfolio(userID string) model.Portfolio {
	return e.ledger.Portfolio(userID)
}

func validateQuantity(quantity float64) error {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return &InvalidQuantityError{Quantity: quantity}
	}
	return nil
}

// reverseFunds tries to undo a funds movement after the ledger refused
// the trade. Best effort: when the reversal itself fails, the account
// service and the ledger disagree and the operator has to reconcile.
func (e *Engine) reverseFunds(ctx context.Context, userID, symbol string, side model.Side, quantity, price, total float64, cause error) error {
	amount := total
	if side == model.SideSell {
		amount = -total
	}
	desc := fmt.Sprintf("REVERSAL %s %v %s @ %.2f", side, quantity, symbol, price)
	if _, err := e.accounts.CreateTransaction(ctx, userID, amount, desc); err != nil {
		e.log.Error().
			Err(err).
			Str("user_id", userID).
			Str("symbol", symbol).
			Str("side", string(side)).
			AnErr("cause", cause).
			Msg("ledger write and funds reversal both failed, account is inconsistent with ledger")
		if e.OnInconsistency != nil {
			e.OnInconsistency()
		}
		return fmt.Errorf("%w (funds reversal also failed: %v)", cause, err)
	}
	e.log.Warn().
		Err(cause).
		Str("user_id", userID).
		Str("symbol", symbol).
		Str("side", string(side)).
		Msg("ledger write failed, funds movement reversed")
	return cause
}

func (e *Engine) finish(res model.TradeResult) model.TradeResult {
	if e.journal != nil {
		id := uuid.NewString()
		if err := e.journal.Record(id, res); err != nil {
			e.log.Error().Err(err).Str("trade_id", id).Msg("trade journal write failed")
		}
	}
	if e.OnTrade != nil {
		e.OnTrade(res)
	}
	e.log.Info().
		Str("user_id", res.UserID).
		Str("symbol", res.Symbol).
		Str("side", string(res.Side)).
		Float64("quantity", res.Quantity).
		Float64("price", res.Price).
		Float64("total", res.Total).
		Msg("trade executed")
	return res
}
