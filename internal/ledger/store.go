// Package ledger persists per-user positions and cumulative realized P&L
// in a single JSON document on disk.
//
// The document maps user IDs to records of the form
//
//	{"positions": {"ACME": {"quantity": 10, "average_price": 101.5}}, "realized_pnl": 42.1}
//
// with two-space indentation and sorted keys. Values keep full float
// precision; presentation rounding happens in the model layer. Every
// mutation rewrites the whole document before returning, so the file
// always reflects the last acknowledged trade.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

// filePosition and fileRecord define the on-disk shape. They are distinct
// from the model types so that disk values escape presentation rounding.
type filePosition struct {
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
}

type fileRecord struct {
	Positions   map[string]filePosition `json:"positions"`
	RealizedPnL float64                 `json:"realized_pnl"`
}

// record is the in-memory per-user state. Positions keep insertion order;
// a reload sorts them by symbol because the document stores them keyed.
type record struct {
	positions []model.Position
	realized  float64
}

func (r *record) clone() *record {
	cp := &record{realized: r.realized}
	if len(r.positions) > 0 {
		cp.positions = make([]model.Position, len(r.positions))
		copy(cp.positions, r.positions)
	}
	return cp
}

func (r *record) find(symbol string) int {
	for i := range r.positions {
		if r.positions[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Store owns the position document. One mutex serializes every read and
// write; mutations hold it across the file write so no partially applied
// state is ever observable.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]*record
	log  zerolog.Logger
}

// Open loads (or creates) the position document at path. A missing file
// is created holding an empty document; an unreadable or corrupt document
// is logged and replaced by an empty store rather than failing startup.
func Open(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		path: path,
		data: make(map[string]*record),
		log:  log.With().Str("component", "ledger").Logger(),
	}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	s.load()
	return s, nil
}

func (s *Store) ensureFile() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return os.WriteFile(s.path, []byte("{}"), 0o644)
	}
	return nil
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to read position file, starting empty")
		return
	}
	var doc map[string]fileRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("corrupt position file, starting empty")
		return
	}
	for user, fr := range doc {
		rec := &record{realized: fr.RealizedPnL}
		symbols := make([]string, 0, len(fr.Positions))
		for sym := range fr.Positions {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			fp := fr.Positions[sym]
			rec.positions = append(rec.positions, model.Position{
				Symbol:       sym,
				Quantity:     fp.Quantity,
				AveragePrice: fp.AveragePrice,
			})
		}
		s.data[user] = rec
	}
	s.log.Info().Int("users", len(s.data)).Str("path", s.path).Msg("position file loaded")
}

// persistLocked rewrites the whole document. Callers hold s.mu.
func (s *Store) persistLocked() error {
	doc := make(map[string]fileRecord, len(s.data))
	for user, rec := range s.data {
		fr := fileRecord{
			Positions:   make(map[string]filePosition, len(rec.positions)),
			RealizedPnL: rec.realized,
		}
		for _, p := range rec.positions {
			fr.Positions[p.Symbol] = filePosition{Quantity: p.Quantity, AveragePrice: p.AveragePrice}
		}
		doc[user] = fr
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *Store) portfolioLocked(userID string) model.Portfolio {
	rec, ok := s.data[userID]
	if !ok {
		return model.Portfolio{}
	}
	pf := model.Portfolio{RealizedPnL: rec.realized}
	if len(rec.positions) > 0 {
		pf.Positions = make([]model.Position, len(rec.positions))
		copy(pf.Positions, rec.positions)
	}
	return pf
}

// Portfolio returns a snapshot of the user's positions and realized P&L.
// Unknown users get an empty portfolio.
func (s *Store) Portfolio(userID string) model.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolioLocked(userID)
}

// Position returns the user's position in symbol, if held.
func (s *Store) Position(userID, symbol string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[userID]
	if !ok {
		return model.Position{}, false
	}
	i := rec.find(strings.ToUpper(symbol))
	if i < 0 {
		return model.Position{}, false
	}
	return rec.positions[i], true
}

// ApplyBuy folds a fill into the user's position at the weighted-average
// cost and persists the document. On a write failure the in-memory record
// is rolled back and a *StoreIOError is returned.
func (s *Store) ApplyBuy(userID, symbol string, quantity, price float64) (model.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym := strings.ToUpper(symbol)
	rec, existed := s.data[userID]
	var prev *record
	if existed {
		prev = rec.clone()
	} else {
		rec = &record{}
		s.data[userID] = rec
	}

	if i := rec.find(sym); i >= 0 {
		pos := &rec.positions[i]
		newQty := pos.Quantity + quantity
		if newQty <= 0 {
			rec.positions = append(rec.positions[:i], rec.positions[i+1:]...)
		} else {
			totalCost := pos.Quantity*pos.AveragePrice + quantity*price
			pos.Quantity = newQty
			pos.AveragePrice = totalCost / newQty
		}
	} else {
		rec.positions = append(rec.positions, model.Position{
			Symbol:       sym,
			Quantity:     quantity,
			AveragePrice: price,
		})
	}

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(userID, prev)
		return model.Portfolio{}, &StoreIOError{Path: s.path, Err: err}
	}
	return s.portfolioLocked(userID), nil
}

// ApplySell reduces the user's position, accumulates realized P&L
// ((price - average) * quantity) and persists the document. The position
// is pruned when its quantity reaches zero. Returns the realized P&L
// delta from this sell. Validation failures leave both memory and disk
// untouched.
func (s *Store) ApplySell(userID, symbol string, quantity, price float64) (model.Portfolio, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sym := strings.ToUpper(symbol)
	rec, ok := s.data[userID]
	if !ok {
		return model.Portfolio{}, 0, &PositionNotFoundError{UserID: userID, Symbol: sym}
	}
	i := rec.find(sym)
	if i < 0 {
		return model.Portfolio{}, 0, &PositionNotFoundError{UserID: userID, Symbol: sym}
	}
	pos := &rec.positions[i]
	if quantity > pos.Quantity {
		return model.Portfolio{}, 0, &QuantityExceedsPositionError{
			Symbol:    sym,
			Requested: quantity,
			Held:      pos.Quantity,
		}
	}

	prev := rec.clone()
	realized := (price - pos.AveragePrice) * quantity
	pos.Quantity -= quantity
	rec.realized += realized
	if pos.Quantity <= 0 {
		rec.positions = append(rec.positions[:i], rec.positions[i+1:]...)
	}

	if err := s.persistLocked(); err != nil {
		s.rollbackLocked(userID, prev)
		return model.Portfolio{}, 0, &StoreIOError{Path: s.path, Err: err}
	}
	return s.portfolioLocked(userID), realized, nil
}

// rollbackLocked restores the pre-mutation record after a failed write.
// prev is nil when the mutation created the user's record.
func (s *Store) rollbackLocked(userID string, prev *record) {
	if prev == nil {
		delete(s.data, userID)
		return
	}
	s.data[userID] = prev
}
