// Command backend runs the trading backend: the simulated price feed, the
// position ledger, the trade engine and the HTTP/WebSocket API, all in one
// process.
//
// Configuration is read from the environment (see config.Load); an optional
// .env file is honored for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/henryhwan14/DISCORDBOT/config"
	"github.com/henryhwan14/DISCORDBOT/internal/engine"
	"github.com/henryhwan14/DISCORDBOT/internal/journal"
	"github.com/henryhwan14/DISCORDBOT/internal/ledger"
	"github.com/henryhwan14/DISCORDBOT/internal/market"
	"github.com/henryhwan14/DISCORDBOT/internal/metrics"
	"github.com/henryhwan14/DISCORDBOT/internal/server"
	"github.com/henryhwan14/DISCORDBOT/pkg/accounts"
	"github.com/henryhwan14/DISCORDBOT/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("Starting trading backend")

	m := metrics.New()

	// Price feed
	feed := market.New(market.Config{
		Symbols:        cfg.Symbols(),
		UpdateInterval: cfg.UpdateInterval(),
		Volatility:     cfg.MarketVolatility,
		Seed:           uint64(cfg.MarketRandomSeed),
		Log:            log,
	})
	feed.OnTick = m.TicksTotal.Inc
	feed.OnDrop = func() {
		m.DroppedBatches.WithLabelValues(metrics.ConsumerFeedSubscriber).Inc()
	}

	// Position ledger
	store, err := ledger.Open(cfg.PositionsFile, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PositionsFile).Msg("Failed to open position file")
	}

	// Trade journal
	jnl, err := journal.Open(cfg.JournalDB, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.JournalDB).Msg("Failed to open trade journal")
	}
	defer jnl.Close()

	// Account service: external over HTTP when a base URL is configured,
	// otherwise an in-process store.
	acct := accounts.New(cfg.AccountServiceBaseURL, cfg.AccountServiceAPIKey, cfg.AccountTimeout())
	if cfg.AccountServiceBaseURL != "" {
		log.Info().Str("base_url", cfg.AccountServiceBaseURL).Msg("Using external account service")
	} else {
		log.Info().Msg("Using in-memory account store")
	}

	// Trade engine
	eng := engine.New(engine.Config{
		Feed:     feed,
		Ledger:   store,
		Accounts: acct,
		Journal:  jnl,
		Log:      log,
	})
	eng.OnInconsistency = m.Inconsistencies.Inc

	// HTTP/WebSocket API
	srv := server.New(server.Config{
		Addr:    cfg.BackendAddr(),
		Log:     log,
		Feed:    feed,
		Engine:  eng,
		Journal: jnl,
		Metrics: m,
	})

	feed.Start(context.Background())

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().
		Str("addr", cfg.BackendAddr()).
		Strs("symbols", cfg.Symbols()).
		Msg("Backend started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop accepting requests first, then stop the feed; closing the
	// subscriptions ends the remaining websocket pumps.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	feed.Stop()

	log.Info().Msg("Backend stopped")
}
