package brokerage

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// Position is one open position in an account.
type Position struct {
	PositionID   string          `json:"PositionID"`
	AccountID    string          `json:"AccountID"`
	Symbol       string          `json:"Symbol"`
	AssetType    string          `json:"AssetType"`
	AveragePrice decimal.Decimal `json:"AveragePrice"`
	Bid          decimal.Decimal `json:"Bid"`
	Ask          decimal.Decimal `json:"Ask"`
	Last         decimal.Decimal `json:"Last"`
	// LongShort is "Long" or "Short".
	LongShort                   string          `json:"LongShort"`
	MarketValue                 decimal.Decimal `json:"MarketValue"`
	Quantity                    decimal.Decimal `json:"Quantity"`
	TotalCost                   decimal.Decimal `json:"TotalCost"`
	UnrealizedProfitLoss        decimal.Decimal `json:"UnrealizedProfitLoss"`
	UnrealizedProfitLossPercent decimal.Decimal `json:"UnrealizedProfitLossPercent"`
	UnrealizedProfitLossQty     decimal.Decimal `json:"UnrealizedProfitLossQty"`
	// Timestamp is the RFC3339 time the position was entered.
	Timestamp string `json:"Timestamp"`
}

type getPositionsResp struct {
	Positions []Position  `json:"Positions"`
	Errors    []ItemError `json:"Errors,omitempty"`
}

// GetPositions returns the open positions for the given accounts.
// symbolFilter is optional; wildcards like "MSFT *" match option legs on the
// underlying.
func GetPositions(ctx context.Context, c *tradestation.Client, accountIDs []string, symbolFilter string) ([]Position, []ItemError, error) {
	path := "brokerage/accounts/" + joinIDs(accountIDs) + "/positions"
	if symbolFilter != "" {
		path += "?symbol=" + url.QueryEscape(symbolFilter)
	}
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getPositionsResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.Positions, out.Errors, nil
}

// GetPositionsByID returns the positions in the given accounts whose
// PositionID is one of positionIDs. The remote has no per-position route,
// so this fetches the accounts' positions and filters locally.
func GetPositionsByID(ctx context.Context, c *tradestation.Client, accountIDs, positionIDs []string) ([]Position, []ItemError, error) {
	if len(positionIDs) == 0 {
		return nil, nil, tradestation.ErrMissingField("positionIDs")
	}
	positions, itemErrs, err := GetPositions(ctx, c, accountIDs, "")
	if err != nil {
		return nil, nil, err
	}
	wanted := make(map[string]bool, len(positionIDs))
	for _, id := range positionIDs {
		wanted[id] = true
	}
	matched := positions[:0]
	for _, p := range positions {
		if wanted[p.PositionID] {
			matched = append(matched, p)
		}
	}
	return matched, itemErrs, nil
}

// PositionStreamEvent is one event from a position stream. Exactly one
// field is set.
type PositionStreamEvent struct {
	Position  *Position
	Heartbeat *tradestation.Heartbeat
	Status    *tradestation.StreamStatus
	Err       *tradestation.StreamError
}

// OpenPositionStream opens the position stream for the given accounts and
// returns the pull surface. Lines carrying a PositionID are payloads.
func OpenPositionStream(ctx context.Context, c *tradestation.Client, accountIDs []string) (*tradestation.Stream, error) {
	path := "brokerage/stream/accounts/" + joinIDs(accountIDs) + "/positions"
	return c.OpenStream(ctx, path, tradestation.KeyPresent("PositionID"))
}

// StreamPositions pushes position stream events into fn until the stream
// ends, fn returns ErrStopStream (a clean stop, returned as nil), or fn
// returns any other error.
func StreamPositions(ctx context.Context, c *tradestation.Client, accountIDs []string, fn func(PositionStreamEvent) error) error {
	s, err := OpenPositionStream(ctx, c, accountIDs)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyPositionEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

func classifyPositionEvent(ev *tradestation.Event) (PositionStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var p Position
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return PositionStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return PositionStreamEvent{Position: &p}, nil
	case ev.Heartbeat != nil:
		return PositionStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return PositionStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return PositionStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return PositionStreamEvent{Err: ev.Err}, nil
	}
}

// decodeStreamError folds a line-level decode failure into the stream-error
// variant so a single malformed line never tears the stream down.
func decodeStreamError(err error) *tradestation.StreamError {
	return &tradestation.StreamError{Error: "JsonDecode", Message: err.Error()}
}
