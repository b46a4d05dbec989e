// Package bot runs the Discord front end: prefixed chat commands that are
// forwarded to the trading backend over its REST API.
package bot

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

// Config holds bot configuration.
type Config struct {
	Token      string
	BackendURL string
	Prefix     string
	Log        zerolog.Logger
}

// Bot bridges Discord messages and the trading backend.
type Bot struct {
	session *discordgo.Session
	client  *Client
	prefix  string
	log     zerolog.Logger
}

// New creates the bot and its Discord session. The session is not opened
// until Start.
func New(cfg Config) (*Bot, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	b := &Bot{
		session: session,
		client:  NewClient(cfg.BackendURL, 10*time.Second),
		prefix:  cfg.Prefix,
		log:     cfg.Log.With().Str("component", "bot").Logger(),
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessage)

	return b, nil
}

// Start opens the Discord gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Stop closes the Discord gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Msg("logged in")
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	reply, ok := b.dispatch(context.Background(), m.Author.ID, m.Author.Mention(), m.Content)
	if !ok || reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to send reply")
	}
}

// dispatch parses a prefixed command and returns the reply text. ok is
// false when the message is not a command this bot answers.
func (b *Bot) dispatch(ctx context.Context, userID, mention, content string) (string, bool) {
	if !strings.HasPrefix(content, b.prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(fields) == 0 {
		return "", false
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "market":
		return b.marketCommand(ctx), true
	case "price":
		if len(args) < 1 {
			return "사용법: " + b.prefix + "price SYMBOL", true
		}
		return b.priceCommand(ctx, args[0]), true
	case "buy":
		if len(args) < 2 {
			return "사용법: " + b.prefix + "buy SYMBOL 수량", true
		}
		return b.tradeCommand(ctx, userID, mention, args[0], args[1], model.SideBuy), true
	case "sell":
		if len(args) < 2 {
			return "사용법: " + b.prefix + "sell SYMBOL 수량", true
		}
		return b.tradeCommand(ctx, userID, mention, args[0], args[1], model.SideSell), true
	case "portfolio":
		return b.portfolioCommand(ctx, userID), true
	}
	return "", false
}

func (b *Bot) marketCommand(ctx context.Context) string {
	quotes, err := b.client.Quotes(ctx)
	if err != nil {
		return fmt.Sprintf("시장 데이터를 불러오지 못했습니다: %v", err)
	}
	parts := make([]string, 0, len(quotes))
	for _, q := range quotes {
		parts = append(parts, formatQuote(q))
	}
	return strings.Join(parts, "\n\n")
}

func (b *Bot) priceCommand(ctx context.Context, symbol string) string {
	quote, err := b.client.Quote(ctx, symbol)
	if err != nil {
		return "알 수 없는 종목이거나 서버 오류가 발생했습니다."
	}
	return formatQuote(quote)
}

func (b *Bot) tradeCommand(ctx context.Context, userID, mention, symbol, rawQty string, side model.Side) string {
	qty, ok := parseQuantity(rawQty)
	if !ok {
		return "수량은 양의 숫자로 입력해주세요."
	}
	result, err := b.client.Trade(ctx, userID, symbol, side, qty)
	if err != nil {
		return fmt.Sprintf("거래가 거부되었습니다: %v", err)
	}
	return formatTrade(mention, result)
}

func (b *Bot) portfolioCommand(ctx context.Context, userID string) string {
	portfolio, err := b.client.Portfolio(ctx, userID)
	if err != nil {
		return fmt.Sprintf("포트폴리오를 불러오지 못했습니다: %v", err)
	}
	return formatPortfolio(portfolio)
}

// parseQuantity accepts any positive finite number.
func parseQuantity(raw string) (float64, bool) {
	qty, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return 0, false
	}
	return qty, true
}
