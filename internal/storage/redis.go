package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"

	"main/internal/model"
)

const bookTopTTL = 30 * time.Second

// BookTop is the published best-of-book summary for one venue.
type BookTop struct {
	Venue     string `json:"venue"`
	Symbol    string `json:"symbol"`
	BestBid   string `json:"bestBid"`
	BestAsk   string `json:"bestAsk"`
	Revision  uint64 `json:"revision"`
	UpdatedAt string `json:"updatedAt"`
}

// BookCache mirrors the top of every book into Redis so dashboards can
// read it without touching the process.
type BookCache struct {
	client *redis.Client
}

func NewBookCache(client *redis.Client) *BookCache {
	return &BookCache{client: client}
}

func bookTopKey(venue, symbol string) string {
	return "booktop:" + venue + ":" + symbol
}

// Publish writes the snapshot's top of book under a short TTL so stale
// venues age out on their own.
func (c *BookCache) Publish(ctx context.Context, snap model.BookSnapshot) error {
	top := BookTop{
		Venue:     snap.Venue.String(),
		Symbol:    snap.Symbol,
		Revision:  snap.Revision,
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if bid, ok := snap.BestBid(); ok {
		top.BestBid = bid.String()
	}
	if ask, ok := snap.BestAsk(); ok {
		top.BestAsk = ask.String()
	}

	payload, err := json.Marshal(top)
	if err != nil {
		return errors.Wrap(err, "marshal book top")
	}
	key := bookTopKey(top.Venue, top.Symbol)
	if err := c.client.Set(ctx, key, payload, bookTopTTL).Err(); err != nil {
		return errors.Wrapf(err, "publish book top %s", key)
	}
	return nil
}

// Fetch reads one venue's published top of book.
func (c *BookCache) Fetch(ctx context.Context, venue, symbol string) (*BookTop, error) {
	payload, err := c.client.Get(ctx, bookTopKey(venue, symbol)).Bytes()
	if err != nil {
		return nil, errors.Wrapf(err, "fetch book top %s", bookTopKey(venue, symbol))
	}
	var top BookTop
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, errors.Wrap(err, "unmarshal book top")
	}
	return &top, nil
}
