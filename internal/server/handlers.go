package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/henryhwan14/DISCORDBOT/internal/engine"
	"github.com/henryhwan14/DISCORDBOT/internal/ledger"
	"github.com/henryhwan14/DISCORDBOT/internal/market"
	"github.com/henryhwan14/DISCORDBOT/internal/model"
	"github.com/henryhwan14/DISCORDBOT/pkg/accounts"
)

// tradeRequest is the POST /api/trades body.
type tradeRequest struct {
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListStocks returns the current quote for every symbol.
func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.feed.Quotes())
}

// handleGetStock returns the current quote for one symbol.
func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	quote, err := s.feed.Quote(symbol)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Symbol not found")
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

// handlePortfolio returns a user's positions and realized PnL. Unknown
// users get an empty portfolio rather than an error.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.writeJSON(w, http.StatusOK, s.engine.Portfolio(userID))
}

// handleTrade executes a buy or sell order.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.rejectTrade(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.rejectTrade(w, http.StatusBadRequest, "user_id is required", "bad_request")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		s.rejectTrade(w, http.StatusBadRequest, "symbol is required", "bad_request")
		return
	}
	side, ok := model.ParseSide(req.Side)
	if !ok {
		s.rejectTrade(w, http.StatusBadRequest, "Side must be BUY or SELL", "bad_request")
		return
	}

	start := time.Now()
	var (
		result model.TradeResult
		err    error
	)
	switch side {
	case model.SideBuy:
		result, err = s.engine.Buy(r.Context(), req.UserID, req.Symbol, req.Quantity)
	default:
		result, err = s.engine.Sell(r.Context(), req.UserID, req.Symbol, req.Quantity)
	}
	if err != nil {
		s.handleTradeError(w, err)
		return
	}

	s.metrics.TradesTotal.WithLabelValues(string(result.Side)).Inc()
	s.metrics.TradeDur.Observe(time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, result)
}

// handleTradeError maps domain errors onto HTTP statuses. The detail
// string is the wire contract consumed by the bot, so it carries the
// domain error text verbatim.
func (s *Server) handleTradeError(w http.ResponseWriter, err error) {
	var (
		unknownSym *market.UnknownSymbolError
		badQty     *engine.InvalidQuantityError
		noFunds    *engine.InsufficientFundsError
		noPosition *ledger.PositionNotFoundError
		oversell   *ledger.QuantityExceedsPositionError
		svc        *accounts.ServiceError
		storeIO    *ledger.StoreIOError
	)
	switch {
	case errors.As(err, &unknownSym):
		s.rejectTrade(w, http.StatusNotFound, "Symbol not found", "unknown_symbol")
	case errors.As(err, &badQty):
		s.rejectTrade(w, http.StatusBadRequest, badQty.Error(), "invalid_quantity")
	case errors.As(err, &noFunds):
		s.rejectTrade(w, http.StatusBadRequest, noFunds.Error(), "insufficient_funds")
	case errors.As(err, &noPosition):
		s.rejectTrade(w, http.StatusBadRequest, noPosition.Error(), "position_not_found")
	case errors.As(err, &oversell):
		s.rejectTrade(w, http.StatusBadRequest, oversell.Error(), "quantity_exceeds_position")
	case errors.As(err, &svc):
		s.rejectTrade(w, http.StatusBadGateway, svc.Error(), "account_service")
	case errors.As(err, &storeIO):
		s.log.Error().Err(err).Msg("trade failed on position store")
		s.rejectTrade(w, http.StatusInternalServerError, storeIO.Error(), "store_io")
	default:
		s.log.Error().Err(err).Msg("trade failed")
		s.rejectTrade(w, http.StatusInternalServerError, "internal server error", "internal")
	}
}

func (s *Server) rejectTrade(w http.ResponseWriter, status int, detail, reason string) {
	s.metrics.TradeFailures.WithLabelValues(reason).Inc()
	s.writeError(w, status, detail)
}

// handleRecentTrades returns the newest journal rows, newest first.
func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("recent trades query failed")
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleSystemStatus handles system status requests.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memPct := s.systemStats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status":         "running",
		"uptime":         time.Since(s.started).Round(time.Second).String(),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuAvg,
		"memory_percent": memPct,
		"memory": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
		"symbols":    len(s.feed.Quotes()),
		"ws_clients": s.clientCount(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// systemStats returns CPU and RAM usage percentages. The 100ms sampling
// window keeps the endpoint responsive while still giving a real reading.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response in the {"detail": ...} wire shape.
func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
