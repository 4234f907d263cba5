package enum

import "github.com/yanun0323/errors"

var ErrUnknownEnumValue = errors.New("enum: unknown value")

// Side buy, sell
type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

// Opposite returns the other side. The zero value maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

func ParseSide(str string) (Side, bool) {
	switch str {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return 0, false
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(data []byte) error {
	parsed, ok := ParseSide(string(data))
	if !ok {
		return ErrUnknownEnumValue
	}
	*s = parsed
	return nil
}

// OrderType market, limit
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	default:
		return "unknown"
	}
}

func ParseOrderType(s string) (OrderType, bool) {
	switch s {
	case "market":
		return OrderTypeMarket, true
	case "limit":
		return OrderTypeLimit, true
	default:
		return 0, false
	}
}

func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OrderType) UnmarshalText(data []byte) error {
	parsed, ok := ParseOrderType(string(data))
	if !ok {
		return ErrUnknownEnumValue
	}
	*t = parsed
	return nil
}

// OrderStatus pending, untriggered, filled open/closed, cancelled, failed
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusPending
	OrderStatusUntriggered
	OrderStatusFilledOpen
	OrderStatusFilledClosed
	OrderStatusCancelled
	OrderStatusFailed
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilledClosed, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusUntriggered:
		return "untriggered"
	case OrderStatusFilledOpen:
		return "filled_open"
	case OrderStatusFilledClosed:
		return "filled_closed"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func ParseOrderStatus(str string) (OrderStatus, bool) {
	switch str {
	case "pending":
		return OrderStatusPending, true
	case "untriggered":
		return OrderStatusUntriggered, true
	case "filled_open":
		return OrderStatusFilledOpen, true
	case "filled_closed":
		return OrderStatusFilledClosed, true
	case "cancelled":
		return OrderStatusCancelled, true
	case "failed":
		return OrderStatusFailed, true
	default:
		return 0, false
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(data []byte) error {
	parsed, ok := ParseOrderStatus(string(data))
	if !ok {
		return ErrUnknownEnumValue
	}
	*s = parsed
	return nil
}

// FailReason distinguishes terminal failure causes.
type FailReason uint8

const (
	FailReasonNone FailReason = iota
	FailReasonInsufficientLiquidity
	FailReasonDataUnavailable
	_fail_reason_end
)

func (r FailReason) String() string {
	switch r {
	case FailReasonNone:
		return "none"
	case FailReasonInsufficientLiquidity:
		return "insufficient_liquidity"
	case FailReasonDataUnavailable:
		return "data_unavailable"
	default:
		return "unknown"
	}
}

func ParseFailReason(s string) (FailReason, bool) {
	switch s {
	case "none", "":
		return FailReasonNone, true
	case "insufficient_liquidity":
		return FailReasonInsufficientLiquidity, true
	case "data_unavailable":
		return FailReasonDataUnavailable, true
	default:
		return 0, false
	}
}

func (r FailReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *FailReason) UnmarshalText(data []byte) error {
	parsed, ok := ParseFailReason(string(data))
	if !ok {
		return ErrUnknownEnumValue
	}
	*r = parsed
	return nil
}
