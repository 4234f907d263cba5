package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/internal/model/enum"
)

const (
	_deribitBaseWsUrl = "wss://www.deribit.com/ws/api/v2"

	deribitKeepaliveInterval = 30 * time.Second

	deribitSubscribeID = 1
	deribitTestID      = 2
)

// Deribit streams book.<instrument>.100ms over JSON-RPC. Level rows carry a
// change action (new/change/delete) and sizes are quoted in USD notional,
// so every update is flagged SizeInNotional.
type Deribit struct {
	cfg     Config
	channel string
	status  status
	handler Handler
}

func NewDeribit(cfg Config) *Deribit {
	cfg = cfg.withDefaults(_deribitBaseWsUrl, deribitKeepaliveInterval)
	return &Deribit{
		cfg:     cfg,
		channel: "book." + cfg.Symbol + ".100ms",
	}
}

func (a *Deribit) Venue() enum.Venue { return enum.VenueDeribit }

func (a *Deribit) Observe(handler Handler) { a.handler = handler }

func (a *Deribit) Status() enum.FeedStatus { return a.status.get() }

func (a *Deribit) Run(ctx context.Context) {
	runLoop(ctx, a.Venue(), &a.status, a.session)
}

type deribitRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type deribitResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type deribitNotification struct {
	Method string `json:"method"`
	Params struct {
		Channel string          `json:"channel"`
		Data    deribitBookData `json:"data"`
	} `json:"params"`
}

type deribitBookData struct {
	Type           string `json:"type"` // snapshot | change
	Timestamp      int64  `json:"timestamp"`
	InstrumentName string `json:"instrument_name"`
	// level rows are [action, price, notionalSize] with
	// action in {new, change, delete}
	Bids [][3]json.RawMessage `json:"bids"`
	Asks [][3]json.RawMessage `json:"asks"`
}

func (a *Deribit) session(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wss := ws.New(sctx, a.cfg.URL)
	if err := wss.Start(sctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	defer wss.Close()

	if err := a.subscribeBook(sctx, wss); err != nil {
		return errors.Wrap(err, "subscribe book")
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
			ping := deribitRequest{JSONRPC: "2.0", ID: deribitTestID, Method: "public/test"}
			if err := wss.WriteJSON(ping); err != nil {
				return errors.Wrap(err, "keepalive")
			}
		case <-stale.C:
			return errors.New("deribit: feed stale")
		case m, ok := <-ch:
			if !ok {
				return errors.New("deribit: stream closed")
			}
			stale.Reset(a.cfg.StaleAfter)
			payload, ok := ws.ReadMessage[deribitNotification](m)
			if !ok || payload.Method != "subscription" || payload.Params.Channel != a.channel {
				continue
			}
			for _, update := range normalizeDeribitBook(payload.Params.Data) {
				if a.handler != nil {
					a.handler(update)
				}
			}
		}
	}
}

func (a *Deribit) subscribeBook(ctx context.Context, wss *ws.WebSocket) error {
	appendIntoRegister := true
	return wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := deribitRequest{
				JSONRPC: "2.0",
				ID:      deribitSubscribeID,
				Method:  "public/subscribe",
				Params:  map[string]any{"channels": []string{a.channel}},
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[deribitResponse](m)
			if !ok || resp.ID != deribitSubscribeID {
				return false, nil
			}
			if resp.Error != nil {
				return false, errors.Errorf("subscribe rejected, code: %d, msg: %s", resp.Error.Code, resp.Error.Message)
			}
			return true, nil
		},
	}, appendIntoRegister)
}

func normalizeDeribitBook(data deribitBookData) []Update {
	snapshot := data.Type == "snapshot"
	ts := time.Now().UTC()
	if data.Timestamp > 0 {
		ts = time.UnixMilli(data.Timestamp).UTC()
	}

	var updates []Update
	if levels := parseDeribitRows(data.Bids); snapshot || len(levels) > 0 {
		updates = append(updates, Update{
			Venue:          enum.VenueDeribit,
			Symbol:         data.InstrumentName,
			Side:           enum.SideBuy,
			Levels:         levels,
			EventTs:        ts,
			Snapshot:       snapshot,
			SizeInNotional: true,
		})
	}
	if levels := parseDeribitRows(data.Asks); snapshot || len(levels) > 0 {
		updates = append(updates, Update{
			Venue:          enum.VenueDeribit,
			Symbol:         data.InstrumentName,
			Side:           enum.SideSell,
			Levels:         levels,
			EventTs:        ts,
			Snapshot:       snapshot,
			SizeInNotional: true,
		})
	}
	return updates
}

// parseDeribitRows reduces [action, price, size] rows to the normalized
// form: delete becomes a zero size, new/change keep the reported size.
// Raw JSON numbers go straight into decimals so no float precision is lost.
func parseDeribitRows(rows [][3]json.RawMessage) []model.PriceLevel {
	if len(rows) == 0 {
		return nil
	}
	levels := make([]model.PriceLevel, 0, len(rows))
	for _, row := range rows {
		var action string
		if err := json.Unmarshal(row[0], &action); err != nil {
			logs.Warnf("drop level row with bad action: %s", row[0])
			continue
		}
		var price, size decimal.Decimal
		if err := json.Unmarshal(row[1], &price); err != nil {
			logs.Warnf("drop level row with bad price: %s", row[1])
			continue
		}
		if action == "delete" {
			levels = append(levels, model.PriceLevel{Price: price, Size: decimal.Zero})
			continue
		}
		if err := json.Unmarshal(row[2], &size); err != nil {
			logs.Warnf("drop level row with bad size: %s", row[2])
			continue
		}
		levels = append(levels, model.PriceLevel{Price: price, Size: size})
	}
	return levels
}
