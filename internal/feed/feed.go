// Package feed owns the venue connections. One adapter per venue maintains
// the websocket session (subscription handshake, keep-alive, reconnect with
// backoff) and translates venue wire messages into the normalized Update
// consumed by the book store.
//
// Connectivity is surfaced only through Status: adapters never let
// connection errors escape into downstream logic.
package feed

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/model"
	"main/internal/model/enum"
)

// Update is the single normalized delta/snapshot representation every venue
// payload is reduced to. Within Levels a zero size means "remove this price
// level", any other size means "set/replace it".
type Update struct {
	Venue   enum.Venue
	Symbol  string
	Side    enum.Side
	Levels  []model.PriceLevel
	EventTs time.Time

	// Snapshot marks a full replacement of the side.
	Snapshot bool

	// SizeInNotional marks sizes quoted in quote-currency notional
	// (baseQty = notional / price). Set by adapters whose venue quotes
	// that way so the simulator converts consistently.
	SizeInNotional bool
}

// Handler receives normalized updates on the adapter's feed goroutine.
type Handler func(Update)

// Adapter is one venue connection.
type Adapter interface {
	Venue() enum.Venue
	// Observe registers the update handler; call before Run.
	Observe(handler Handler)
	// Run blocks, maintaining the connection until the context ends.
	Run(ctx context.Context)
	// Status reports current connectivity; it is polled, not thrown.
	Status() enum.FeedStatus
}

// Config is the per-venue connection configuration.
type Config struct {
	Symbol            string
	Depth             int
	URL               string
	KeepaliveInterval time.Duration
	StaleAfter        time.Duration
}

func (c Config) withDefaults(url string, keepalive time.Duration) Config {
	if c.URL == "" {
		c.URL = url
	}
	if c.Depth <= 0 {
		c.Depth = 50
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = keepalive
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 45 * time.Second
	}
	return c
}

type status struct {
	v atomic.Uint32
}

func (s *status) set(fs enum.FeedStatus) { s.v.Store(uint32(fs)) }

func (s *status) get() enum.FeedStatus {
	fs := enum.FeedStatus(s.v.Load())
	if !fs.IsAvailable() {
		return enum.FeedStatusDisconnected
	}
	return fs
}

const (
	backoffMin = 500 * time.Millisecond
	backoffMax = 30 * time.Second
)

type backoff struct {
	next time.Duration
}

func (b *backoff) Next() time.Duration {
	if b.next < backoffMin {
		b.next = backoffMin
	}
	d := b.next
	b.next *= 2
	if b.next > backoffMax {
		b.next = backoffMax
	}
	// jitter so reconnecting venues don't sync up
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func (b *backoff) Reset() { b.next = backoffMin }

// runLoop drives session with reconnect-and-backoff until shutdown. The
// session func returns when the connection dies; its error is logged, never
// propagated.
func runLoop(ctx context.Context, venue enum.Venue, st *status, session func(ctx context.Context) error) {
	var bo backoff
	for {
		st.set(enum.FeedStatusConnecting)
		started := time.Now()
		err := session(ctx)
		st.set(enum.FeedStatusDisconnected)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > time.Minute {
			bo.Reset()
		}
		wait := bo.Next()
		logs.Warnf("%s feed disconnected, reconnect in %s, err: %+v", venue, wait, err)
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// parseLevel converts a [price, size] string pair.
func parseLevel(price, size string) (model.PriceLevel, bool) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.PriceLevel{}, false
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		return model.PriceLevel{}, false
	}
	return model.PriceLevel{Price: p, Size: s}, true
}
