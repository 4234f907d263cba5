// Package ledger is the authoritative set of simulated orders and
// positions and their lifecycle state machine.
//
// A single mutex owns all order state. Every transition re-validates the
// target order's status under the lock before committing, so a transition
// computed against a stale view (a delayed execution racing a cancel, a
// stop trigger racing an explicit close) degrades to a silent no-op
// instead of overwriting newer state.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
)

var (
	ErrUnknownOrder          = errors.New("ledger: order not found")
	ErrUnknownPosition       = errors.New("ledger: position not found")
	ErrNotOpenPosition       = errors.New("ledger: order is not an open position")
	ErrInvalidSymbol         = errors.New("ledger: invalid symbol")
	ErrInvalidVenue          = errors.New("ledger: invalid venue")
	ErrInvalidSide           = errors.New("ledger: invalid side")
	ErrInvalidOrderType      = errors.New("ledger: invalid order type")
	ErrInvalidQuantity       = errors.New("ledger: quantity must be positive")
	ErrInvalidPrice          = errors.New("ledger: limit orders require a positive price")
	ErrInvalidStopPrice      = errors.New("ledger: stop price must be positive")
	ErrInvalidDelay          = errors.New("ledger: delay must not be negative")
	ErrInsufficientLiquidity = errors.New("ledger: insufficient liquidity")
)

// Ledger owns all simulated order state.
type Ledger struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	sequence []string // insertion order, for stable listing
	revision uint64

	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// New creates an empty ledger. A nil clock falls back to time.Now.
func New(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		orders:   make(map[string]*model.Order),
		validate: validator.New(),
		now:      clock,
		newID:    uuid.NewString,
	}
}

// Revision is bumped once per committed change batch; pollers use it to
// skip republishing an unchanged ledger.
func (l *Ledger) Revision() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}

// Get returns a copy of one order.
func (l *Ledger) Get(id string) (*model.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Orders returns copies of all orders in insertion order.
func (l *Ledger) Orders() []*model.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.Order, 0, len(l.sequence))
	for _, id := range l.sequence {
		if o, ok := l.orders[id]; ok {
			out = append(out, o.Clone())
		}
	}
	return out
}

// List serializes every order to its flat record form.
func (l *Ledger) List() []model.OrderRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.OrderRecord, 0, len(l.sequence))
	for _, id := range l.sequence {
		if o, ok := l.orders[id]; ok {
			out = append(out, model.ToRecord(o))
		}
	}
	return out
}

// Restore replaces the ledger contents from previously serialized records,
// re-hydrating every field including nested fill timestamps. Records are
// ordered by creation time so listing order survives the round trip.
func (l *Ledger) Restore(records []model.OrderRecord) error {
	restored := make([]*model.Order, 0, len(records))
	for _, record := range records {
		o, err := record.ToOrder()
		if err != nil {
			return errors.Wrap(err, "restore ledger")
		}
		restored = append(restored, o)
	}
	sort.SliceStable(restored, func(i, j int) bool {
		return restored[i].CreatedAt.Before(restored[j].CreatedAt)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = make(map[string]*model.Order, len(restored))
	l.sequence = l.sequence[:0]
	for _, o := range restored {
		l.orders[o.ID] = o
		l.sequence = append(l.sequence, o.ID)
	}
	l.revision++
	return nil
}

// Prune drops cancelled orders. Resting orders are otherwise kept
// indefinitely; there is no expiry.
func (l *Ledger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, o := range l.orders {
		if o.Status == enum.OrderStatusCancelled {
			l.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		l.revision++
	}
	return removed
}

func (l *Ledger) insertLocked(o *model.Order) {
	l.orders[o.ID] = o
	l.sequence = append(l.sequence, o.ID)
}

func (l *Ledger) removeLocked(id string) {
	delete(l.orders, id)
	for i, existing := range l.sequence {
		if existing == id {
			l.sequence = append(l.sequence[:i], l.sequence[i+1:]...)
			break
		}
	}
}
