package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model/enum"
)

// timeLayout keeps nanosecond precision through serialization.
const timeLayout = time.RFC3339Nano

// OrderRecord is the flat serialization form of an Order. Decimals travel
// as strings and timestamps as RFC3339Nano so the round trip is lossless.
// The same shape backs the ledger list serialization and the storage rows.
type OrderRecord struct {
	ID         string `json:"id" gorm:"primaryKey;column:id"`
	Symbol     string `json:"symbol" gorm:"column:symbol"`
	Venue      string `json:"venue" gorm:"column:venue"`
	Side       string `json:"side" gorm:"column:side"`
	Type       string `json:"type" gorm:"column:type"`
	Price      string `json:"price,omitempty" gorm:"column:price"`
	Quantity   string `json:"quantity" gorm:"column:quantity"`
	DelayMs    int64  `json:"delayMs" gorm:"column:delay_ms"`
	Status     string `json:"status" gorm:"column:status"`
	FailReason string `json:"failReason,omitempty" gorm:"column:fail_reason"`
	CreatedAt  string `json:"createdAt" gorm:"column:created_at"`

	HasResult             bool   `json:"hasResult,omitempty" gorm:"column:has_result"`
	ResultAvgFillPrice    string `json:"resultAvgFillPrice,omitempty" gorm:"column:result_avg_fill_price"`
	ResultSlippagePercent string `json:"resultSlippagePercent,omitempty" gorm:"column:result_slippage_percent"`
	ResultFilledPercent   string `json:"resultFilledPercent,omitempty" gorm:"column:result_filled_percent"`
	ResultPriceImpact     string `json:"resultPriceImpact,omitempty" gorm:"column:result_price_impact"`
	ResultExecutedAt      string `json:"resultExecutedAt,omitempty" gorm:"column:result_executed_at"`

	HasExitResult       bool   `json:"hasExitResult,omitempty" gorm:"column:has_exit_result"`
	ExitAvgFillPrice    string `json:"exitAvgFillPrice,omitempty" gorm:"column:exit_avg_fill_price"`
	ExitSlippagePercent string `json:"exitSlippagePercent,omitempty" gorm:"column:exit_slippage_percent"`
	ExitFilledPercent   string `json:"exitFilledPercent,omitempty" gorm:"column:exit_filled_percent"`
	ExitPriceImpact     string `json:"exitPriceImpact,omitempty" gorm:"column:exit_price_impact"`
	ExitExecutedAt      string `json:"exitExecutedAt,omitempty" gorm:"column:exit_executed_at"`

	PnL           string `json:"pnl,omitempty" gorm:"column:pnl"`
	LivePnL       string `json:"livePnl" gorm:"column:live_pnl"`
	HasTimeToFill bool   `json:"hasTimeToFill,omitempty" gorm:"column:has_time_to_fill"`
	TimeToFillNs  int64  `json:"timeToFillNs,omitempty" gorm:"column:time_to_fill_ns"`

	PositionID string `json:"positionId,omitempty" gorm:"column:position_id"`
	StopPrice  string `json:"stopPrice,omitempty" gorm:"column:stop_price"`
}

func (OrderRecord) TableName() string { return "orders" }

// ToRecord flattens an order into its serialization record.
func ToRecord(o *Order) OrderRecord {
	r := OrderRecord{
		ID:        o.ID,
		Symbol:    o.Params.Symbol,
		Venue:     o.Params.Venue.String(),
		Side:      o.Params.Side.String(),
		Type:      o.Params.Type.String(),
		Quantity:  o.Params.Quantity.String(),
		DelayMs:   o.Params.DelayMs,
		Status:    o.Status.String(),
		CreatedAt: o.CreatedAt.Format(timeLayout),
		LivePnL:   o.LivePnL.String(),
	}
	if o.Params.Price != nil {
		r.Price = o.Params.Price.String()
	}
	if o.FailReason != enum.FailReasonNone {
		r.FailReason = o.FailReason.String()
	}
	if o.Result != nil {
		r.HasResult = true
		r.ResultAvgFillPrice = o.Result.AvgFillPrice.String()
		r.ResultSlippagePercent = o.Result.SlippagePercent.String()
		r.ResultFilledPercent = o.Result.FilledPercent.String()
		r.ResultPriceImpact = o.Result.PriceImpact.String()
		r.ResultExecutedAt = o.Result.ExecutedAt.Format(timeLayout)
	}
	if o.ExitResult != nil {
		r.HasExitResult = true
		r.ExitAvgFillPrice = o.ExitResult.AvgFillPrice.String()
		r.ExitSlippagePercent = o.ExitResult.SlippagePercent.String()
		r.ExitFilledPercent = o.ExitResult.FilledPercent.String()
		r.ExitPriceImpact = o.ExitResult.PriceImpact.String()
		r.ExitExecutedAt = o.ExitResult.ExecutedAt.Format(timeLayout)
	}
	if o.PnL != nil {
		r.PnL = o.PnL.String()
	}
	if o.TimeToFill != nil {
		r.HasTimeToFill = true
		r.TimeToFillNs = int64(*o.TimeToFill)
	}
	r.PositionID = o.PositionID
	if o.StopLoss != nil {
		r.StopPrice = o.StopLoss.StopPrice.String()
	}
	return r
}

// ToOrder re-hydrates an order from its serialization record.
func (r OrderRecord) ToOrder() (*Order, error) {
	venue, ok := enum.ParseVenue(r.Venue)
	if !ok {
		return nil, errors.Errorf("record %s: unknown venue %q", r.ID, r.Venue)
	}
	side, ok := enum.ParseSide(r.Side)
	if !ok {
		return nil, errors.Errorf("record %s: unknown side %q", r.ID, r.Side)
	}
	orderType, ok := enum.ParseOrderType(r.Type)
	if !ok {
		return nil, errors.Errorf("record %s: unknown type %q", r.ID, r.Type)
	}
	status, ok := enum.ParseOrderStatus(r.Status)
	if !ok {
		return nil, errors.Errorf("record %s: unknown status %q", r.ID, r.Status)
	}
	failReason, ok := enum.ParseFailReason(r.FailReason)
	if !ok {
		return nil, errors.Errorf("record %s: unknown fail reason %q", r.ID, r.FailReason)
	}

	quantity, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s: quantity", r.ID)
	}
	livePnl, err := decimal.NewFromString(r.LivePnL)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s: live pnl", r.ID)
	}
	createdAt, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s: created at", r.ID)
	}

	o := &Order{
		ID: r.ID,
		Params: OrderParams{
			Symbol:   r.Symbol,
			Venue:    venue,
			Side:     side,
			Type:     orderType,
			Quantity: quantity,
			DelayMs:  r.DelayMs,
		},
		Status:     status,
		FailReason: failReason,
		CreatedAt:  createdAt,
		LivePnL:    livePnl,
		PositionID: r.PositionID,
	}

	if r.Price != "" {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "record %s: price", r.ID)
		}
		o.Params.Price = &price
	}
	if r.HasResult {
		result, err := fillFromRecord(r.ResultAvgFillPrice, r.ResultSlippagePercent, r.ResultFilledPercent, r.ResultPriceImpact, r.ResultExecutedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "record %s: result", r.ID)
		}
		o.Result = result
	}
	if r.HasExitResult {
		exit, err := fillFromRecord(r.ExitAvgFillPrice, r.ExitSlippagePercent, r.ExitFilledPercent, r.ExitPriceImpact, r.ExitExecutedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "record %s: exit result", r.ID)
		}
		o.ExitResult = exit
	}
	if r.PnL != "" {
		pnl, err := decimal.NewFromString(r.PnL)
		if err != nil {
			return nil, errors.Wrapf(err, "record %s: pnl", r.ID)
		}
		o.PnL = &pnl
	}
	if r.HasTimeToFill {
		ttf := time.Duration(r.TimeToFillNs)
		o.TimeToFill = &ttf
	}
	if r.StopPrice != "" {
		stop, err := decimal.NewFromString(r.StopPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "record %s: stop price", r.ID)
		}
		o.StopLoss = &StopLoss{StopPrice: stop}
	}
	return o, nil
}

func fillFromRecord(avg, slippage, filled, impact, executedAt string) (*FillResult, error) {
	avgDec, err := decimal.NewFromString(avg)
	if err != nil {
		return nil, errors.Wrap(err, "avg fill price")
	}
	slippageDec, err := decimal.NewFromString(slippage)
	if err != nil {
		return nil, errors.Wrap(err, "slippage percent")
	}
	filledDec, err := decimal.NewFromString(filled)
	if err != nil {
		return nil, errors.Wrap(err, "filled percent")
	}
	impactDec, err := decimal.NewFromString(impact)
	if err != nil {
		return nil, errors.Wrap(err, "price impact")
	}
	ts, err := time.Parse(timeLayout, executedAt)
	if err != nil {
		return nil, errors.Wrap(err, "executed at")
	}
	return &FillResult{
		AvgFillPrice:    avgDec,
		SlippagePercent: slippageDec,
		FilledPercent:   filledDec,
		PriceImpact:     impactDec,
		ExecutedAt:      ts,
	}, nil
}
