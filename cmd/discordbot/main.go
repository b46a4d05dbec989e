// Command discordbot runs the Discord front end for the trading backend.
// It needs DISCORD_TOKEN set; BACKEND_BASE_URL points at a running backend.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/henryhwan14/DISCORDBOT/config"
	"github.com/henryhwan14/DISCORDBOT/internal/bot"
	"github.com/henryhwan14/DISCORDBOT/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if cfg.DiscordToken == "" {
		log.Fatal().Msg("DISCORD_TOKEN environment variable is required")
	}

	b, err := bot.New(bot.Config{
		Token:      cfg.DiscordToken,
		BackendURL: cfg.BackendBaseURL,
		Prefix:     cfg.CommandPrefix,
		Log:        log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := b.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Discord")
	}

	log.Info().
		Str("backend", cfg.BackendBaseURL).
		Str("prefix", cfg.CommandPrefix).
		Msg("Bot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	if err := b.Stop(); err != nil {
		log.Error().Err(err).Msg("Error closing Discord session")
	}
	log.Info().Msg("Bot stopped")
}
