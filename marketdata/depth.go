package marketdata

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// DefaultDepthLevels is the number of price levels streamed when the caller
// does not ask for a specific depth.
const DefaultDepthLevels = 20

// MarketDepthSide is the side of the order book a depth entry sits on.
type MarketDepthSide string

const (
	DepthBid MarketDepthSide = "Bid"
	DepthAsk MarketDepthSide = "Ask"
)

// MarketDepthQuote is one participant's quote at one price level.
type MarketDepthQuote struct {
	// TimeStamp is the participant's RFC3339 timestamp for the quote.
	TimeStamp string          `json:"TimeStamp"`
	Side      MarketDepthSide `json:"Side"`
	Price     decimal.Decimal `json:"Price"`
	Size      decimal.Decimal `json:"Size"`
	// OrderCount is the number of orders the participant aggregated into
	// this level.
	OrderCount int `json:"OrderCount"`
	// Name identifies the participant, a market maker or ECN.
	Name string `json:"Name"`
}

// MarketDepthQuotes is one depth book update. Bids are ordered from high to
// low price, asks from low to high.
type MarketDepthQuotes struct {
	Bids []MarketDepthQuote `json:"Bids"`
	Asks []MarketDepthQuote `json:"Asks"`
}

// MarketDepthAggregate is one price level with all participants folded
// together.
type MarketDepthAggregate struct {
	// EarliestTime and LatestTime bound the participant timestamps folded
	// into this level, as RFC3339 timestamps.
	EarliestTime string          `json:"EarliestTime"`
	LatestTime   string          `json:"LatestTime"`
	Side         MarketDepthSide `json:"Side"`
	Price        decimal.Decimal `json:"Price"`
	TotalSize    decimal.Decimal `json:"TotalSize"`
	BiggestSize  decimal.Decimal `json:"BiggestSize"`
	SmallestSize decimal.Decimal `json:"SmallestSize"`
	// NumParticipants is how many participants quote this price.
	NumParticipants int `json:"NumParticipants"`
	// TotalOrderCount sums the order counts across those participants.
	TotalOrderCount int `json:"TotalOrderCount"`
}

// MarketDepthAggregates is one aggregated depth book update. Bids are
// ordered from high to low price, asks from low to high.
type MarketDepthAggregates struct {
	Bids []MarketDepthAggregate `json:"Bids"`
	Asks []MarketDepthAggregate `json:"Asks"`
}

// MarketDepthStreamEvent is one event from a market depth quote stream.
// Exactly one field is set.
type MarketDepthStreamEvent struct {
	Quotes    *MarketDepthQuotes
	Heartbeat *tradestation.Heartbeat
	Status    *tradestation.StreamStatus
	Err       *tradestation.StreamError
}

// MarketDepthAggregateStreamEvent is one event from a market depth
// aggregate stream. Exactly one field is set.
type MarketDepthAggregateStreamEvent struct {
	Aggregates *MarketDepthAggregates
	Heartbeat  *tradestation.Heartbeat
	Status     *tradestation.StreamStatus
	Err        *tradestation.StreamError
}

func depthStreamPath(kind, symbol string, levels int) string {
	if levels <= 0 {
		levels = DefaultDepthLevels
	}
	return "marketdata/stream/marketdepth/" + kind + "/" + url.PathEscape(symbol) +
		"?maxlevels=" + strconv.Itoa(levels)
}

// OpenMarketDepthStream opens a realtime depth-of-book stream for the
// given symbol and returns the pull surface. levels caps how many price
// levels per side are streamed; zero or negative means DefaultDepthLevels.
// Lines carrying Bids are payloads. The remote allows at most 10 concurrent
// streams per client.
func OpenMarketDepthStream(ctx context.Context, c *tradestation.Client, symbol string, levels int) (*tradestation.Stream, error) {
	if symbol == "" {
		return nil, tradestation.ErrMissingField("symbol")
	}
	return c.OpenStream(ctx, depthStreamPath("quotes", symbol, levels), tradestation.KeyPresent("Bids"))
}

// StreamMarketDepthQuotes pushes depth quote stream events into fn until
// the stream ends, fn returns ErrStopStream (a clean stop, returned as
// nil), or fn returns any other error.
func StreamMarketDepthQuotes(ctx context.Context, c *tradestation.Client, symbol string, levels int, fn func(MarketDepthStreamEvent) error) error {
	s, err := OpenMarketDepthStream(ctx, c, symbol, levels)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyDepthEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

// OpenMarketDepthAggregateStream opens a realtime aggregated depth stream
// for the given symbol and returns the pull surface. levels caps how many
// price levels per side are streamed; zero or negative means
// DefaultDepthLevels. Lines carrying Bids are payloads. The remote allows
// at most 10 concurrent streams per client.
func OpenMarketDepthAggregateStream(ctx context.Context, c *tradestation.Client, symbol string, levels int) (*tradestation.Stream, error) {
	if symbol == "" {
		return nil, tradestation.ErrMissingField("symbol")
	}
	return c.OpenStream(ctx, depthStreamPath("aggregates", symbol, levels), tradestation.KeyPresent("Bids"))
}

// StreamMarketDepthAggregates pushes aggregated depth stream events into fn
// until the stream ends, fn returns ErrStopStream (a clean stop, returned
// as nil), or fn returns any other error.
func StreamMarketDepthAggregates(ctx context.Context, c *tradestation.Client, symbol string, levels int, fn func(MarketDepthAggregateStreamEvent) error) error {
	s, err := OpenMarketDepthAggregateStream(ctx, c, symbol, levels)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyDepthAggregateEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

func classifyDepthEvent(ev *tradestation.Event) (MarketDepthStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var book MarketDepthQuotes
		if err := json.Unmarshal(ev.Payload, &book); err != nil {
			return MarketDepthStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return MarketDepthStreamEvent{Quotes: &book}, nil
	case ev.Heartbeat != nil:
		return MarketDepthStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return MarketDepthStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return MarketDepthStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return MarketDepthStreamEvent{Err: ev.Err}, nil
	}
}

func classifyDepthAggregateEvent(ev *tradestation.Event) (MarketDepthAggregateStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var book MarketDepthAggregates
		if err := json.Unmarshal(ev.Payload, &book); err != nil {
			return MarketDepthAggregateStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return MarketDepthAggregateStreamEvent{Aggregates: &book}, nil
	case ev.Heartbeat != nil:
		return MarketDepthAggregateStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return MarketDepthAggregateStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return MarketDepthAggregateStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return MarketDepthAggregateStreamEvent{Err: ev.Err}, nil
	}
}
