package enum

// Venue is a trading exchange providing a public order book feed.
type Venue uint8

const (
	_venue_beg Venue = iota
	VenueOKX
	VenueBybit
	VenueDeribit
	_venue_end
)

func (v Venue) IsAvailable() bool {
	return v > _venue_beg && v < _venue_end
}

func (v Venue) String() string {
	switch v {
	case VenueOKX:
		return "okx"
	case VenueBybit:
		return "bybit"
	case VenueDeribit:
		return "deribit"
	default:
		return "unknown"
	}
}

func ParseVenue(s string) (Venue, bool) {
	switch s {
	case "okx":
		return VenueOKX, true
	case "bybit":
		return VenueBybit, true
	case "deribit":
		return VenueDeribit, true
	default:
		return 0, false
	}
}

func (v Venue) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Venue) UnmarshalText(data []byte) error {
	parsed, ok := ParseVenue(string(data))
	if !ok {
		return ErrUnknownEnumValue
	}
	*v = parsed
	return nil
}
