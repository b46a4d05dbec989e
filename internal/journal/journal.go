// Package journal persists executed trades to SQLite for audit and
// analysis. The position document stays the source of truth for state;
// the journal is append-only history.
package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

// Journal records fills in a SQLite database.
type Journal struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string, log zerolog.Logger) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id      TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		symbol        TEXT NOT NULL,
		side          TEXT NOT NULL,
		quantity      REAL NOT NULL,
		price         REAL NOT NULL,
		total         REAL NOT NULL,
		realized      REAL NOT NULL DEFAULT 0,
		balance_after REAL NOT NULL,
		executed_at   DATETIME NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	jl := log.With().Str("component", "journal").Logger()
	jl.Info().Str("path", dbPath).Msg("trade journal opened")
	return &Journal{db: db, log: jl}, nil
}

// Record persists one executed trade.
func (j *Journal) Record(tradeID string, res model.TradeResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (trade_id, user_id, symbol, side, quantity, price, total, realized, balance_after, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tradeID,
		res.UserID,
		res.Symbol,
		string(res.Side),
		res.Quantity,
		res.Price,
		res.Total,
		res.RealizedChange,
		res.Balance,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Entry is a row from the trades table.
type Entry struct {
	ID           int64   `json:"id"`
	TradeID      string  `json:"trade_id"`
	UserID       string  `json:"user_id"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Total        float64 `json:"total"`
	Realized     float64 `json:"realized"`
	BalanceAfter float64 `json:"balance_after"`
	ExecutedAt   string  `json:"executed_at"`
}

// Recent returns the last N trades, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, trade_id, user_id, symbol, side, quantity, price, total, realized, balance_after, executed_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TradeID, &e.UserID, &e.Symbol, &e.Side,
			&e.Quantity, &e.Price, &e.Total, &e.Realized, &e.BalanceAfter, &e.ExecutedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
