// Package book maintains the canonical per-venue order book built from
// normalized feed updates.
//
// Mutation for a venue is single-writer: the venue's feed goroutine is the
// only caller of Apply for that venue, so updates land in arrival order.
// Readers only ever see committed, immutable sorted snapshots.
package book

import (
	"sort"
	"sync"
	"time"

	"main/internal/feed"
	"main/internal/model"
	"main/internal/model/enum"
)

// Store holds one book per venue.
type Store struct {
	mu       sync.RWMutex
	books    map[enum.Venue]*venueBook
	onCommit []func(venue enum.Venue)
}

type venueBook struct {
	mu             sync.RWMutex
	symbol         string
	sizeInNotional bool
	bids           map[string]model.PriceLevel
	asks           map[string]model.PriceLevel
	revision       uint64
	updatedAt      time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{books: make(map[enum.Venue]*venueBook)}
}

// OnCommit registers a hook fired after every committed mutation. Register
// before feeds start; the hook runs on the feed goroutine and must not block.
func (s *Store) OnCommit(fn func(venue enum.Venue)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onCommit = append(s.onCommit, fn)
	s.mu.Unlock()
}

// Apply folds one normalized feed update into the venue's book.
func (s *Store) Apply(update feed.Update) {
	if !update.Venue.IsAvailable() || len(update.Levels) == 0 && !update.Snapshot {
		return
	}
	vb := s.venue(update.Venue)

	vb.mu.Lock()
	vb.symbol = update.Symbol
	vb.sizeInNotional = update.SizeInNotional
	side := vb.sideMap(update.Side)
	if update.Snapshot {
		// A snapshot fully replaces the side before any later delta is
		// applied, so a stale delta can never land on top of old levels.
		for key := range side {
			delete(side, key)
		}
	}
	for _, level := range update.Levels {
		key := level.Price.String()
		if level.Size.IsZero() {
			delete(side, key)
			continue
		}
		if !level.Size.IsPositive() || !level.Price.IsPositive() {
			continue
		}
		side[key] = level
	}
	vb.revision++
	vb.updatedAt = update.EventTs
	vb.mu.Unlock()

	s.mu.RLock()
	hooks := s.onCommit
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(update.Venue)
	}
}

// Clear drops the venue's book, e.g. when its feed disconnects and the data
// can no longer be trusted.
func (s *Store) Clear(venue enum.Venue) {
	vb := s.venue(venue)
	vb.mu.Lock()
	vb.bids = make(map[string]model.PriceLevel)
	vb.asks = make(map[string]model.PriceLevel)
	vb.revision++
	vb.mu.Unlock()
}

// Snapshot produces a read-only sorted view: bids descending, asks
// ascending. The live maps are never exposed.
func (s *Store) Snapshot(venue enum.Venue) model.BookSnapshot {
	s.mu.RLock()
	vb := s.books[venue]
	s.mu.RUnlock()
	if vb == nil {
		return model.BookSnapshot{Venue: venue}
	}

	vb.mu.RLock()
	defer vb.mu.RUnlock()
	return model.BookSnapshot{
		Venue:          venue,
		Symbol:         vb.symbol,
		Bids:           sortedLevels(vb.bids, true),
		Asks:           sortedLevels(vb.asks, false),
		SizeInNotional: vb.sizeInNotional,
		Revision:       vb.revision,
		UpdatedAt:      vb.updatedAt,
	}
}

func (s *Store) venue(venue enum.Venue) *venueBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	vb := s.books[venue]
	if vb == nil {
		vb = &venueBook{
			bids: make(map[string]model.PriceLevel),
			asks: make(map[string]model.PriceLevel),
		}
		s.books[venue] = vb
	}
	return vb
}

func (vb *venueBook) sideMap(side enum.Side) map[string]model.PriceLevel {
	if side == enum.SideBuy {
		return vb.bids
	}
	return vb.asks
}

func sortedLevels(side map[string]model.PriceLevel, descending bool) []model.PriceLevel {
	if len(side) == 0 {
		return nil
	}
	levels := make([]model.PriceLevel, 0, len(side))
	for _, level := range side {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	return levels
}
