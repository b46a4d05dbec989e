// Command accountsim is a development stand-in for the external account
// service the backend debits and credits. Balances live in memory and reset
// on restart; every user starts at ACCOUNT_SIM_START_BALANCE.
//
// Endpoints:
//
//	GET  /accounts/{userID}               -> {"user_id": ..., "balance": ...}
//	POST /accounts/{userID}/transactions  <- {"amount": -120.5, "description": "..."}
//	GET  /health
//
// When ACCOUNT_SERVICE_API_KEY is set the account endpoints require the same
// key as a bearer token, which is what the backend client sends.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/config"
	"github.com/henryhwan14/DISCORDBOT/pkg/accounts"
	"github.com/henryhwan14/DISCORDBOT/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty}).
		With().Str("component", "accountsim").Logger()

	store := accounts.NewMemory(cfg.AccountSimStartBalance)

	srv := &http.Server{
		Addr:        cfg.AccountSimAddr,
		Handler:     newRouter(store, cfg.AccountServiceAPIKey, log),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.AccountSimAddr).
			Float64("start_balance", cfg.AccountSimStartBalance).
			Msg("Account simulator listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Account simulator stopped")
}

// newRouter wires the account endpoints. apiKey, when non-empty, gates the
// account routes (but not /health) behind bearer auth.
func newRouter(store *accounts.Memory, apiKey string, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "accountsim"})
	})

	r.Group(func(r chi.Router) {
		if apiKey != "" {
			r.Use(requireBearer(apiKey))
		}
		r.Get("/accounts/{userID}", handleBalance(store))
		r.Post("/accounts/{userID}/transactions", handleTransaction(store, log))
	})

	return r
}

type balanceResponse struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

type transactionRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func handleBalance(store *accounts.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bal, _ := store.Balance(r.Context(), chi.URLParam(r, "userID"))
		writeJSON(w, http.StatusOK, balanceResponse{UserID: bal.UserID, Balance: bal.Balance})
	}
}

func handleTransaction(store *accounts.Memory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		bal, _ := store.CreateTransaction(r.Context(), userID, req.Amount, req.Description)
		log.Info().
			Str("user_id", userID).
			Float64("amount", req.Amount).
			Float64("balance", bal.Balance).
			Str("description", req.Description).
			Msg("transaction applied")
		writeJSON(w, http.StatusOK, balanceResponse{UserID: bal.UserID, Balance: bal.Balance})
	}
}

func requireBearer(key string) func(http.Handler) http.Handler {
	want := "Bearer " + key
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != want {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration_ms", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
