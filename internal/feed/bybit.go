package feed

import (
	"context"
	"strconv"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/internal/model/enum"
)

const (
	_bybitBaseWsUrl = "wss://stream.bybit.com/v5/public/spot"

	bybitKeepaliveInterval = 20 * time.Second
)

// Bybit streams orderbook.<depth>.<symbol>: one snapshot then deltas, with
// b/a short keys and base-quantity sizes.
type Bybit struct {
	cfg     Config
	topic   string
	status  status
	handler Handler
}

func NewBybit(cfg Config) *Bybit {
	cfg = cfg.withDefaults(_bybitBaseWsUrl, bybitKeepaliveInterval)
	return &Bybit{
		cfg:   cfg,
		topic: "orderbook." + strconv.Itoa(cfg.Depth) + "." + cfg.Symbol,
	}
}

func (a *Bybit) Venue() enum.Venue { return enum.VenueBybit }

func (a *Bybit) Observe(handler Handler) { a.handler = handler }

func (a *Bybit) Status() enum.FeedStatus { return a.status.get() }

func (a *Bybit) Run(ctx context.Context) {
	runLoop(ctx, a.Venue(), &a.status, a.session)
}

type bybitOpRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type bybitOpResponse struct {
	Op      string `json:"op"`
	Success bool   `json:"success"`
	RetMsg  string `json:"ret_msg"`
}

type bybitBookMessage struct {
	Topic string        `json:"topic"`
	Type  string        `json:"type"` // snapshot | delta
	Ts    int64         `json:"ts"`
	Data  bybitBookData `json:"data"`
}

type bybitBookData struct {
	Symbol string      `json:"s"`
	Bids   [][2]string `json:"b"` // [0]price [1]size
	Asks   [][2]string `json:"a"`
}

func (a *Bybit) session(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wss := ws.New(sctx, a.cfg.URL)
	if err := wss.Start(sctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	defer wss.Close()

	if err := a.subscribeOrderbook(sctx, wss); err != nil {
		return errors.Wrap(err, "subscribe orderbook")
	}
	a.status.set(enum.FeedStatusConnected)

	ch, cancelSub := wss.Subscribe()
	defer cancelSub()

	keepalive := time.NewTicker(a.cfg.KeepaliveInterval)
	defer keepalive.Stop()
	stale := time.NewTimer(a.cfg.StaleAfter)
	defer stale.Stop()

	for {
		select {
		case <-sys.Shutdown():
			return nil
		case <-sctx.Done():
			return sctx.Err()
		case <-keepalive.C:
			if err := wss.WriteJSON(bybitOpRequest{Op: "ping"}); err != nil {
				return errors.Wrap(err, "keepalive")
			}
		case <-stale.C:
			return errors.New("bybit: feed stale")
		case m, ok := <-ch:
			if !ok {
				return errors.New("bybit: stream closed")
			}
			stale.Reset(a.cfg.StaleAfter)
			payload, ok := ws.ReadMessage[bybitBookMessage](m)
			if !ok || payload.Topic != a.topic {
				continue
			}
			for _, update := range normalizeBybitBook(payload) {
				if a.handler != nil {
					a.handler(update)
				}
			}
		}
	}
}

func (a *Bybit) subscribeOrderbook(ctx context.Context, wss *ws.WebSocket) error {
	appendIntoRegister := true
	return wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := bybitOpRequest{Op: "subscribe", Args: []string{a.topic}}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[bybitOpResponse](m)
			if !ok || resp.Op != "subscribe" {
				return false, nil
			}
			if !resp.Success {
				return false, errors.Errorf("subscribe rejected, msg: %s", resp.RetMsg)
			}
			return true, nil
		},
	}, appendIntoRegister)
}

func normalizeBybitBook(payload bybitBookMessage) []Update {
	snapshot := payload.Type == "snapshot"
	ts := time.Now().UTC()
	if payload.Ts > 0 {
		ts = time.UnixMilli(payload.Ts).UTC()
	}

	var updates []Update
	if levels := parseLevelPairs(payload.Data.Bids); snapshot || len(levels) > 0 {
		updates = append(updates, Update{
			Venue:    enum.VenueBybit,
			Symbol:   payload.Data.Symbol,
			Side:     enum.SideBuy,
			Levels:   levels,
			EventTs:  ts,
			Snapshot: snapshot,
		})
	}
	if levels := parseLevelPairs(payload.Data.Asks); snapshot || len(levels) > 0 {
		updates = append(updates, Update{
			Venue:    enum.VenueBybit,
			Symbol:   payload.Data.Symbol,
			Side:     enum.SideSell,
			Levels:   levels,
			EventTs:  ts,
			Snapshot: snapshot,
		})
	}
	return updates
}

func parseLevelPairs(rows [][2]string) []model.PriceLevel {
	if len(rows) == 0 {
		return nil
	}
	levels := make([]model.PriceLevel, 0, len(rows))
	for _, row := range rows {
		level, ok := parseLevel(row[0], row[1])
		if !ok {
			continue
		}
		levels = append(levels, level)
	}
	return levels
}
