package feed

import (
	"context"
	"strconv"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/internal/model/enum"
)

const (
	_okxBaseWsUrl = "wss://ws.okx.com:8443/ws/v5/public"

	okxKeepaliveInterval = 25 * time.Second
	okxBooksChannel      = "books"
)

// OKX streams the books channel: full snapshot on subscribe, incremental
// updates afterwards, base-quantity sizes.
type OKX struct {
	cfg     Config
	status  status
	handler Handler
}

func NewOKX(cfg Config) *OKX {
	return &OKX{cfg: cfg.withDefaults(_okxBaseWsUrl, okxKeepaliveInterval)}
}

func (a *OKX) Venue() enum.Venue { return enum.VenueOKX }

func (a *OKX) Observe(handler Handler) { a.handler = handler }

func (a *OKX) Status() enum.FeedStatus { return a.status.get() }

func (a *OKX) Run(ctx context.Context) {
	runLoop(ctx, a.Venue(), &a.status, a.session)
}

type okxSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxSubscribeRequest struct {
	Op   string            `json:"op"`
	Args []okxSubscribeArg `json:"args"`
}

type okxEvent struct {
	Event string          `json:"event"`
	Arg   okxSubscribeArg `json:"arg"`
	Code  string          `json:"code"`
	Msg   string          `json:"msg"`
}

type okxBookMessage struct {
	Arg    okxSubscribeArg `json:"arg"`
	Action string          `json:"action"` // snapshot | update
	Data   []okxBookData   `json:"data"`
}

type okxBookData struct {
	// level rows are [price, size, ...] string arrays
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Ts   string     `json:"ts"`
}

func (a *OKX) session(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wss := ws.New(sctx, a.cfg.URL)
	if err := wss.Start(sctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	defer wss.Close()

	if err := a.subscribeBooks(sctx, wss); err != nil {
		return errors.Wrap(err, "subscribe books")
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
			// okx closes idle sessions; it answers a literal ping.
			if err := wss.WriteJSON("ping"); err != nil {
				return errors.Wrap(err, "keepalive")
			}
		case <-stale.C:
			return errors.New("okx: feed stale")
		case m, ok := <-ch:
			if !ok {
				return errors.New("okx: stream closed")
			}
			stale.Reset(a.cfg.StaleAfter)
			payload, ok := ws.ReadMessage[okxBookMessage](m)
			if !ok || payload.Arg.Channel != okxBooksChannel || len(payload.Data) == 0 {
				continue
			}
			for _, update := range normalizeOKXBook(payload) {
				if a.handler != nil {
					a.handler(update)
				}
			}
		}
	}
}

func (a *OKX) subscribeBooks(ctx context.Context, wss *ws.WebSocket) error {
	appendIntoRegister := true
	return wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := okxSubscribeRequest{
				Op: "subscribe",
				Args: []okxSubscribeArg{
					{Channel: okxBooksChannel, InstID: a.cfg.Symbol},
				},
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var event okxEvent
			if err := m.Unmarshal(&event); err != nil || event.Event == "" {
				return false, nil
			}
			if event.Event == "error" {
				return false, errors.Errorf("subscribe rejected, code: %s, msg: %s", event.Code, event.Msg)
			}
			return event.Event == "subscribe" && event.Arg.Channel == okxBooksChannel, nil
		},
	}, appendIntoRegister)
}

func normalizeOKXBook(payload okxBookMessage) []Update {
	snapshot := payload.Action == "snapshot"
	updates := make([]Update, 0, 2*len(payload.Data))
	for _, data := range payload.Data {
		ts := okxTimestamp(data.Ts)
		if levels := parseLevelRows(data.Bids); snapshot || len(levels) > 0 {
			updates = append(updates, Update{
				Venue:    enum.VenueOKX,
				Symbol:   payload.Arg.InstID,
				Side:     enum.SideBuy,
				Levels:   levels,
				EventTs:  ts,
				Snapshot: snapshot,
			})
		}
		if levels := parseLevelRows(data.Asks); snapshot || len(levels) > 0 {
			updates = append(updates, Update{
				Venue:    enum.VenueOKX,
				Symbol:   payload.Arg.InstID,
				Side:     enum.SideSell,
				Levels:   levels,
				EventTs:  ts,
				Snapshot: snapshot,
			})
		}
	}
	return updates
}

// parseLevelRows reads [price, size, ...] rows, keeping zero sizes as
// deletions. Unparseable rows are dropped and logged.
func parseLevelRows(rows [][]string) []model.PriceLevel {
	if len(rows) == 0 {
		return nil
	}
	levels := make([]model.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		level, ok := parseLevel(row[0], row[1])
		if !ok {
			logs.Warnf("drop unparseable level row: %v", row)
			continue
		}
		levels = append(levels, level)
	}
	return levels
}

func okxTimestamp(ts string) time.Time {
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
