package marketdata

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// Quote is a snapshot of the latest market for a symbol. Streamed quote
// updates reuse this type; the remote sends only the changed fields, so
// zero values in stream payloads mean "unchanged".
type Quote struct {
	Symbol              string           `json:"Symbol"`
	Ask                 decimal.Decimal  `json:"Ask"`
	AskSize             decimal.Decimal  `json:"AskSize"`
	Bid                 decimal.Decimal  `json:"Bid"`
	BidSize             decimal.Decimal  `json:"BidSize"`
	Open                decimal.Decimal  `json:"Open"`
	High                decimal.Decimal  `json:"High"`
	Low                 decimal.Decimal  `json:"Low"`
	Close               decimal.Decimal  `json:"Close"`
	Last                decimal.Decimal  `json:"Last"`
	LastSize            decimal.Decimal  `json:"LastSize,omitempty"`
	LastVenue           string           `json:"LastVenue,omitempty"`
	High52Week          decimal.Decimal  `json:"High52Week,omitempty"`
	High52WeekTimestamp string           `json:"High52WeekTimestamp,omitempty"`
	Low52Week           decimal.Decimal  `json:"Low52Week,omitempty"`
	Low52WeekTimestamp  string           `json:"Low52WeekTimestamp,omitempty"`
	NetChange           decimal.Decimal  `json:"NetChange,omitempty"`
	NetChangePct        decimal.Decimal  `json:"NetChangePct,omitempty"`
	PreviousVolume      decimal.Decimal  `json:"PreviousVolume,omitempty"`
	Volume              decimal.Decimal  `json:"Volume,omitempty"`
	DailyOpenInterest   decimal.Decimal  `json:"DailyOpenInterest,omitempty"`
	VWAP                decimal.Decimal  `json:"VWAP,omitempty"`
	TickSizeTier        string           `json:"TickSizeTier,omitempty"`
	TradeTime           string           `json:"TradeTime,omitempty"`
	MinPrice            *decimal.Decimal `json:"MinPrice,omitempty"`
	MaxPrice            *decimal.Decimal `json:"MaxPrice,omitempty"`
	FirstNoticeDate     string           `json:"FirstNoticeDate,omitempty"`
	LastTradingDate     string           `json:"LastTradingDate,omitempty"`
	Restrictions        []string         `json:"Restrictions,omitempty"`
	MarketFlags         MarketFlags      `json:"MarketFlags"`
}

// MarketFlags is market specific state for a symbol.
type MarketFlags struct {
	IsBats         bool `json:"IsBats"`
	IsDelayed      bool `json:"IsDelayed"`
	IsHalted       bool `json:"IsHalted"`
	IsHardToBorrow bool `json:"IsHardToBorrow"`
}

type getQuotesResp struct {
	Quotes []Quote     `json:"Quotes"`
	Errors []ItemError `json:"Errors,omitempty"`
}

// GetQuotes fetches quote snapshots for up to 100 symbols. Unknown symbols
// come back in the second return value rather than failing the call.
func GetQuotes(ctx context.Context, c *tradestation.Client, symbols []string) ([]Quote, []ItemError, error) {
	if len(symbols) == 0 {
		return nil, nil, tradestation.ErrMissingField("symbols")
	}
	resp, err := c.Get(ctx, "marketdata/quotes/"+joinSymbols(symbols))
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getQuotesResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.Quotes, out.Errors, nil
}

// GetQuote fetches the latest quote for a single symbol.
func GetQuote(ctx context.Context, c *tradestation.Client, symbol string) (Quote, error) {
	quotes, itemErrs, err := GetQuotes(ctx, c, []string{symbol})
	if err != nil {
		return Quote{}, err
	}
	if len(quotes) == 0 {
		if len(itemErrs) > 0 {
			return Quote{}, tradestation.ErrInvalidRequest(itemErrs[0].Message)
		}
		return Quote{}, tradestation.ErrNotFound("quote", symbol)
	}
	return quotes[0], nil
}

// QuoteStreamEvent is one event from a quote stream. Exactly one field is
// set.
type QuoteStreamEvent struct {
	Quote     *Quote
	Heartbeat *tradestation.Heartbeat
	Status    *tradestation.StreamStatus
	Err       *tradestation.StreamError
}

// OpenQuoteStream opens a realtime quote stream for the given symbols and
// returns the pull surface. Lines carrying a Symbol are payloads. The
// remote allows at most 10 concurrent streams per client.
func OpenQuoteStream(ctx context.Context, c *tradestation.Client, symbols []string) (*tradestation.Stream, error) {
	if len(symbols) == 0 {
		return nil, tradestation.ErrMissingField("symbols")
	}
	path := "marketdata/stream/quotes/" + joinSymbols(symbols)
	return c.OpenStream(ctx, path, tradestation.KeyPresent("Symbol"))
}

// StreamQuotes pushes quote stream events into fn until the stream ends, fn
// returns ErrStopStream (a clean stop, returned as nil), or fn returns any
// other error.
func StreamQuotes(ctx context.Context, c *tradestation.Client, symbols []string, fn func(QuoteStreamEvent) error) error {
	s, err := OpenQuoteStream(ctx, c, symbols)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyQuoteEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

func classifyQuoteEvent(ev *tradestation.Event) (QuoteStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var q Quote
		if err := json.Unmarshal(ev.Payload, &q); err != nil {
			return QuoteStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return QuoteStreamEvent{Quote: &q}, nil
	case ev.Heartbeat != nil:
		return QuoteStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return QuoteStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return QuoteStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return QuoteStreamEvent{Err: ev.Err}, nil
	}
}
