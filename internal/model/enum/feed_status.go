package enum

// FeedStatus is the connectivity state of a venue feed. It is polled by
// callers, never raised as an error.
type FeedStatus uint8

const (
	_feed_status_beg FeedStatus = iota
	FeedStatusConnecting
	FeedStatusConnected
	FeedStatusDisconnected
	_feed_status_end
)

func (s FeedStatus) IsAvailable() bool {
	return s > _feed_status_beg && s < _feed_status_end
}

func (s FeedStatus) String() string {
	switch s {
	case FeedStatusConnecting:
		return "connecting"
	case FeedStatusConnected:
		return "connected"
	case FeedStatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
