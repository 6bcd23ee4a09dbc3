package marketdata

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// BarUnit is the unit of time each bar interval is measured in.
type BarUnit string

const (
	UnitMinute  BarUnit = "Minute"
	UnitDaily   BarUnit = "Daily"
	UnitWeekly  BarUnit = "Weekly"
	UnitMonthly BarUnit = "Monthly"
)

// SessionTemplate selects the US equity market session bars are built from.
// Ignored by the remote for non US equity symbols.
type SessionTemplate string

const (
	SessionUSEQPre        SessionTemplate = "USEQPre"
	SessionUSEQPost       SessionTemplate = "USEQPost"
	SessionUSEQPreAndPost SessionTemplate = "USEQPreAndPost"
	SessionUSEQ24Hour     SessionTemplate = "USEQ24Hour"
	SessionDefault        SessionTemplate = "Default"
)

// BarStatus reports whether a bar is still trading or finished.
type BarStatus string

const (
	BarOpen   BarStatus = "Open"
	BarClosed BarStatus = "Closed"
)

// Bar is one candlestick bar of market activity.
type Bar struct {
	Close           decimal.Decimal `json:"Close"`
	DownTicks       uint64          `json:"DownTicks"`
	DownVolume      uint64          `json:"DownVolume"`
	Epoch           int64           `json:"Epoch"`
	High            decimal.Decimal `json:"High"`
	IsEndOfHistory  bool            `json:"IsEndOfHistory"`
	IsRealtime      bool            `json:"IsRealtime,omitempty"`
	Low             decimal.Decimal `json:"Low"`
	Open            decimal.Decimal `json:"Open"`
	OpenInterest    decimal.Decimal `json:"OpenInterest,omitempty"`
	TimeStamp       string          `json:"TimeStamp"`
	TotalTicks      uint64          `json:"TotalTicks"`
	TotalVolume     decimal.Decimal `json:"TotalVolume"`
	UnchangedTicks  uint8           `json:"UnchangedTicks"`
	UnchangedVolume uint8           `json:"UnchangedVolume"`
	UpTicks         uint64          `json:"UpTicks"`
	UpVolume        uint64          `json:"UpVolume"`
	BarStatus       BarStatus       `json:"BarStatus"`
}

// Time returns the bar's timestamp parsed from its RFC3339 form.
func (b Bar) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, b.TimeStamp)
}

// BarsQuery describes a bar chart request. Build one with NewBarsQuery.
type BarsQuery struct {
	Symbol          string
	Interval        int
	Unit            BarUnit
	BarsBack        int
	FirstDate       string
	LastDate        string
	SessionTemplate SessionTemplate
}

// BarsQueryBuilder assembles a BarsQuery and validates it at Build time.
type BarsQueryBuilder struct {
	q BarsQuery
}

// NewBarsQuery starts a bars query for the given symbol. Interval defaults
// to 1 and unit to daily.
func NewBarsQuery(symbol string) *BarsQueryBuilder {
	return &BarsQueryBuilder{q: BarsQuery{
		Symbol:   symbol,
		Interval: 1,
		Unit:     UnitDaily,
	}}
}

// Interval sets how many units each bar aggregates. The remote caps minute
// intervals at 1440.
func (b *BarsQueryBuilder) Interval(n int) *BarsQueryBuilder {
	b.q.Interval = n
	return b
}

func (b *BarsQueryBuilder) Unit(u BarUnit) *BarsQueryBuilder {
	b.q.Unit = u
	return b
}

// BarsBack sets how many bars back to fetch. Mutually exclusive with
// FirstDate.
func (b *BarsQueryBuilder) BarsBack(n int) *BarsQueryBuilder {
	b.q.BarsBack = n
	return b
}

// FirstDate sets the earliest bar, formatted "YYYY-MM-DD" or RFC3339.
// Mutually exclusive with BarsBack.
func (b *BarsQueryBuilder) FirstDate(d string) *BarsQueryBuilder {
	b.q.FirstDate = d
	return b
}

// LastDate sets the latest bar, formatted "YYYY-MM-DD" or RFC3339. Defaults
// to now on the remote side.
func (b *BarsQueryBuilder) LastDate(d string) *BarsQueryBuilder {
	b.q.LastDate = d
	return b
}

func (b *BarsQueryBuilder) SessionTemplate(s SessionTemplate) *BarsQueryBuilder {
	b.q.SessionTemplate = s
	return b
}

// Build validates the query and returns it.
func (b *BarsQueryBuilder) Build() (BarsQuery, error) {
	if b.q.Symbol == "" {
		return BarsQuery{}, tradestation.ErrMissingField("symbol")
	}
	if b.q.BarsBack > 0 && b.q.FirstDate != "" {
		return BarsQuery{}, tradestation.ErrInvalidRequest("barsBack and firstDate are mutually exclusive")
	}
	return b.q, nil
}

// encode renders the query string shared by the snapshot and stream
// endpoints. The stream endpoint ignores the date bounds.
func (q BarsQuery) encode(forStream bool) string {
	v := url.Values{}
	v.Set("interval", strconv.Itoa(q.Interval))
	v.Set("unit", string(q.Unit))
	if q.BarsBack > 0 {
		v.Set("barsBack", strconv.Itoa(q.BarsBack))
	}
	if !forStream {
		if q.FirstDate != "" {
			v.Set("firstDate", q.FirstDate)
		}
		if q.LastDate != "" {
			v.Set("lastDate", q.LastDate)
		}
	}
	if q.SessionTemplate != "" {
		v.Set("sessionTemplate", string(q.SessionTemplate))
	}
	return v.Encode()
}

type getBarsResp struct {
	Bars []Bar `json:"Bars"`
}

// GetBars fetches bars for the given query. The remote caps intraday
// requests at 57600 bars back.
func GetBars(ctx context.Context, c *tradestation.Client, q BarsQuery) ([]Bar, error) {
	path := "marketdata/barcharts/" + url.PathEscape(q.Symbol) + "?" + q.encode(false)
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[getBarsResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Bars, nil
}

// BarStreamEvent is one event from a bar stream. Exactly one field is set.
type BarStreamEvent struct {
	Bar       *Bar
	Heartbeat *tradestation.Heartbeat
	Status    *tradestation.StreamStatus
	Err       *tradestation.StreamError
}

// OpenBarStream opens a realtime bar stream for the given query and returns
// the pull surface. Lines carrying a Close price are payloads.
func OpenBarStream(ctx context.Context, c *tradestation.Client, q BarsQuery) (*tradestation.Stream, error) {
	path := "marketdata/stream/barcharts/" + url.PathEscape(q.Symbol) + "?" + q.encode(true)
	return c.OpenStream(ctx, path, tradestation.KeyPresent("Close"))
}

// StreamBars pushes bar stream events into fn until the stream ends, fn
// returns ErrStopStream (a clean stop, returned as nil), or fn returns any
// other error.
func StreamBars(ctx context.Context, c *tradestation.Client, q BarsQuery, fn func(BarStreamEvent) error) error {
	s, err := OpenBarStream(ctx, c, q)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyBarEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

func classifyBarEvent(ev *tradestation.Event) (BarStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var b Bar
		if err := json.Unmarshal(ev.Payload, &b); err != nil {
			return BarStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return BarStreamEvent{Bar: &b}, nil
	case ev.Heartbeat != nil:
		return BarStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return BarStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return BarStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return BarStreamEvent{Err: ev.Err}, nil
	}
}

func decodeStreamError(err error) *tradestation.StreamError {
	return &tradestation.StreamError{Error: "JsonDecode", Message: err.Error()}
}
