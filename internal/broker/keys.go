package broker

import "fmt"

// Keys is the set of broker key/channel names for one symbol, derived from
// the canonical suffix S = upper(base)_upper(quote) per spec §6.2.
type Keys struct {
	Orders           string
	Cancel           string
	SnapshotRequests string
	Deltas           string
	Trades           string
	LastTradedPrice  string
	Bids             string
	Asks             string
}

// KeysFor builds the fixed key names for a symbol's key suffix.
func KeysFor(suffix string) Keys {
	return Keys{
		Orders:           fmt.Sprintf("orderbook:orders:%s", suffix),
		Cancel:           fmt.Sprintf("orderbook:cancel:%s", suffix),
		SnapshotRequests: fmt.Sprintf("orderbook:snapshot:%s:requests", suffix),
		Deltas:           fmt.Sprintf("orderbook:deltas:%s", suffix),
		Trades:           fmt.Sprintf("orderbook:trades:%s", suffix),
		LastTradedPrice:  fmt.Sprintf("orderbook:ltp:%s", suffix),
		Bids:             fmt.Sprintf("orderbook:bids:%s", suffix),
		Asks:             fmt.Sprintf("orderbook:asks:%s", suffix),
	}
}
