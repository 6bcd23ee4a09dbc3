package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tradestation "github.com/quantpulse/tradestation-go"
)

func newTestClient(t *testing.T, handler http.Handler) *tradestation.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := tradestation.NewBuilder().TestingURL(srv.URL).Build()
	require.NoError(t, err)
	return c
}

func TestBarsQueryDefaults(t *testing.T) {
	q, err := NewBarsQuery("MSFT").Build()
	require.NoError(t, err)
	assert.Equal(t, 1, q.Interval)
	assert.Equal(t, UnitDaily, q.Unit)
}

func TestBarsQueryRequiresSymbol(t *testing.T) {
	_, err := NewBarsQuery("").Build()
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeMissingField, tsErr.Code)
}

func TestBarsQueryRejectsBarsBackWithFirstDate(t *testing.T) {
	_, err := NewBarsQuery("MSFT").BarsBack(5).FirstDate("2024-01-01").Build()
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeBadRequest, tsErr.Code)
}

func TestBarsQueryEncode(t *testing.T) {
	q, err := NewBarsQuery("MSFT").
		Interval(5).
		Unit(UnitMinute).
		BarsBack(20).
		SessionTemplate(SessionUSEQPreAndPost).
		Build()
	require.NoError(t, err)

	assert.Equal(t,
		"barsBack=20&interval=5&sessionTemplate=USEQPreAndPost&unit=Minute",
		q.encode(false))
}

func TestBarsQueryEncodeStreamDropsDateBounds(t *testing.T) {
	q, err := NewBarsQuery("MSFT").FirstDate("2024-01-01").LastDate("2024-02-01").Build()
	require.NoError(t, err)

	assert.Equal(t, "firstDate=2024-01-01&interval=1&lastDate=2024-02-01&unit=Daily", q.encode(false))
	assert.Equal(t, "interval=1&unit=Daily", q.encode(true))
}

func TestGetBars(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/barcharts/MSFT", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("barsBack"))
		assert.Equal(t, "Daily", r.URL.Query().Get("unit"))
		fmt.Fprint(w, `{"Bars": [
			{"High": "396.36", "Low": "392.64", "Open": "393.92", "Close": "395.16",
			 "TimeStamp": "2025-03-25T20:00:00Z", "TotalVolume": "15774968",
			 "DownTicks": 59962, "DownVolume": 7226841, "UpTicks": 59961, "UpVolume": 8548126,
			 "Epoch": 1742932800000, "IsRealtime": false, "IsEndOfHistory": false,
			 "TotalTicks": 119923, "BarStatus": "Closed"},
			{"High": "390.77", "Low": "382.30", "Open": "390.00", "Close": "389.97",
			 "TimeStamp": "2025-03-26T20:00:00Z", "TotalVolume": "21632016",
			 "Epoch": 1743019200000, "IsEndOfHistory": true, "BarStatus": "Closed"}
		]}`)
	}))

	q, err := NewBarsQuery("MSFT").BarsBack(2).Build()
	require.NoError(t, err)

	bars, err := GetBars(context.Background(), c, q)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("395.16")))
	assert.Equal(t, uint64(119923), bars[0].TotalTicks)
	assert.Equal(t, BarClosed, bars[0].BarStatus)
	assert.True(t, bars[1].IsEndOfHistory)

	ts, err := bars[0].Time()
	require.NoError(t, err)
	assert.Equal(t, 2025, ts.Year())
}

func TestGetQuotes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/quotes/TLT,NVDA", r.URL.Path)
		fmt.Fprint(w, `{"Quotes": [
			{"Symbol": "TLT", "Ask": "88.78", "AskSize": "600", "Bid": "88.77",
			 "BidSize": "7100", "Last": "88.77", "Open": "88.52", "High": "88.95",
			 "Low": "88.40", "Close": "88.77", "Volume": "23080861",
			 "NetChange": "0.12", "NetChangePct": "0.135", "TradeTime": "2025-03-26T19:59:59Z",
			 "MarketFlags": {"IsDelayed": true}},
			{"Symbol": "NVDA", "Ask": "113.55", "Bid": "113.54", "Last": "113.54",
			 "MarketFlags": {}}
		]}`)
	}))

	quotes, itemErrs, err := GetQuotes(context.Background(), c, []string{"TLT", "NVDA"})
	require.NoError(t, err)
	require.Empty(t, itemErrs)
	require.Len(t, quotes, 2)
	assert.Equal(t, "TLT", quotes[0].Symbol)
	assert.True(t, quotes[0].Ask.Equal(decimal.RequireFromString("88.78")))
	assert.True(t, quotes[0].MarketFlags.IsDelayed)
	assert.False(t, quotes[1].MarketFlags.IsDelayed)
}

func TestGetQuotesRequiresSymbols(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, _, err := GetQuotes(context.Background(), c, nil)
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeMissingField, tsErr.Code)
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Quotes": [], "Errors": [
			{"Symbol": "NOPE", "Error": "InvalidSymbol", "Message": "symbol NOPE is invalid"}
		]}`)
	}))

	_, err := GetQuote(context.Background(), c, "NOPE")
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeBadRequest, tsErr.Code)
	assert.Equal(t, "symbol NOPE is invalid", tsErr.Message)
}

func TestGetQuoteEmptyResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Quotes": []}`)
	}))

	_, err := GetQuote(context.Background(), c, "MSFT")
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeNotFound, tsErr.Code)
}

func TestGetSymbolDetails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/symbols/MSFT", r.URL.Path)
		fmt.Fprint(w, `{"Symbols": [{
			"AssetType": "STOCK", "Country": "US", "Currency": "USD",
			"Description": "MICROSOFT CORP", "Exchange": "NASDAQ",
			"Root": "MSFT", "Symbol": "MSFT",
			"PriceFormat": {"Format": "Decimal", "Decimals": "2",
			                "IncrementStyle": "Simple", "Increment": "0.01", "PointValue": "1.0"},
			"QuantityFormat": {"Format": "Decimal", "Decimals": "0",
			                   "IncrementStyle": "Simple", "Increment": "1", "MinimumTradeQuantity": "1"}
		}]}`)
	}))

	details, itemErrs, err := GetSymbolDetails(context.Background(), c, []string{"MSFT"})
	require.NoError(t, err)
	require.Empty(t, itemErrs)
	require.Len(t, details, 1)
	assert.Equal(t, AssetStock, details[0].AssetType)
	assert.Equal(t, "0.01", details[0].PriceFormat.Increment)
	assert.Nil(t, details[0].StrikePrice)
}

func TestGetOptionExpirations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/options/expirations/MSFT", r.URL.Path)
		assert.Equal(t, "400", r.URL.Query().Get("strikePrice"))
		fmt.Fprint(w, `{"Expirations": [
			{"Date": "2025-04-04T00:00:00Z", "Type": "Weekly"},
			{"Date": "2025-04-17T00:00:00Z", "Type": "Monthly"}
		]}`)
	}))

	strike := 400.0
	expirations, err := GetOptionExpirations(context.Background(), c, "MSFT", &strike)
	require.NoError(t, err)
	require.Len(t, expirations, 2)
	assert.Equal(t, "Weekly", expirations[0].Type)

	ts, err := expirations[1].Time()
	require.NoError(t, err)
	assert.Equal(t, 17, ts.Day())
}

func TestStreamQuotes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/stream/quotes/TLT", r.URL.Path)
		fmt.Fprint(w, `{"Symbol": "TLT", "Last": "88.77", "MarketFlags": {}}`+"\n")
		fmt.Fprint(w, `{"StreamStatus": "EndSnapshot"}`+"\n")
		fmt.Fprint(w, `{"Symbol": "TLT", "Last": "88.79", "MarketFlags": {}}`+"\n")
	}))

	var lasts []string
	var statuses []string
	err := StreamQuotes(context.Background(), c, []string{"TLT"}, func(ev QuoteStreamEvent) error {
		switch {
		case ev.Quote != nil:
			lasts = append(lasts, ev.Quote.Last.String())
		case ev.Status != nil:
			statuses = append(statuses, ev.Status.StreamStatus)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"88.77", "88.79"}, lasts)
	assert.Equal(t, []string{"EndSnapshot"}, statuses)
}

func TestClassifyBarEvent(t *testing.T) {
	ev := &tradestation.Event{Payload: json.RawMessage(`{"Close": "395.16", "BarStatus": "Open"}`)}
	out, err := classifyBarEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Bar)
	assert.Equal(t, BarOpen, out.Bar.BarStatus)

	ev = &tradestation.Event{Payload: json.RawMessage(`{"Close": "x"}`)}
	out, err = classifyBarEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, "JsonDecode", out.Err.Error)
}

func TestClassifyQuoteEvent(t *testing.T) {
	ev := &tradestation.Event{Payload: json.RawMessage(`{"Symbol": "NVDA", "Last": "113.54"}`)}
	out, err := classifyQuoteEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Quote)
	assert.Equal(t, "NVDA", out.Quote.Symbol)

	ev = &tradestation.Event{Status: &tradestation.StreamStatus{StreamStatus: "GoAway"}}
	out, err = classifyQuoteEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Status)
}

func TestStreamMarketDepthQuotes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/stream/marketdepth/quotes/AMD", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("maxlevels"))
		fmt.Fprint(w, `{"Bids": [{"TimeStamp": "2024-03-01T14:30:01Z", "Side": "Bid", "Price": "178.10", "Size": "300", "OrderCount": 3, "Name": "NSDQ"}], "Asks": []}`+"\n")
		fmt.Fprint(w, `{"Heartbeat": 1, "Timestamp": "2024-03-01T14:30:06Z"}`+"\n")
	}))

	var books []MarketDepthQuotes
	var beats int
	err := StreamMarketDepthQuotes(context.Background(), c, "AMD", 25, func(ev MarketDepthStreamEvent) error {
		switch {
		case ev.Quotes != nil:
			books = append(books, *ev.Quotes)
		case ev.Heartbeat != nil:
			beats++
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, books[0].Bids, 1)
	assert.Equal(t, DepthBid, books[0].Bids[0].Side)
	assert.Equal(t, "178.10", books[0].Bids[0].Price.String())
	assert.Equal(t, "NSDQ", books[0].Bids[0].Name)
	assert.Equal(t, 1, beats)
}

func TestStreamMarketDepthDefaultsLevels(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("maxlevels"))
	}))
	err := StreamMarketDepthQuotes(context.Background(), c, "AMD", 0, func(MarketDepthStreamEvent) error {
		return nil
	})
	require.NoError(t, err)
}

func TestOpenMarketDepthStreamRequiresSymbol(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	_, err := OpenMarketDepthStream(context.Background(), c, "", 0)
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeMissingField, tsErr.Code)
}

func TestStreamMarketDepthAggregates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/stream/marketdepth/aggregates/NGZ30", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("maxlevels"))
		fmt.Fprint(w, `{"Bids": [{"EarliestTime": "2024-03-01T14:30:01Z", "LatestTime": "2024-03-01T14:30:04Z", "Side": "Bid", "Price": "2.415", "TotalSize": "90", "BiggestSize": "50", "SmallestSize": "10", "NumParticipants": 4, "TotalOrderCount": 7}], "Asks": []}`+"\n")
	}))

	var books []MarketDepthAggregates
	err := StreamMarketDepthAggregates(context.Background(), c, "NGZ30", 0, func(ev MarketDepthAggregateStreamEvent) error {
		if ev.Aggregates != nil {
			books = append(books, *ev.Aggregates)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, books[0].Bids, 1)
	assert.Equal(t, "90", books[0].Bids[0].TotalSize.String())
	assert.Equal(t, 4, books[0].Bids[0].NumParticipants)
}

func TestClassifyDepthEvent(t *testing.T) {
	ev := &tradestation.Event{Payload: json.RawMessage(`{"Bids": [], "Asks": [{"Side": "Ask", "Price": "178.12"}]}`)}
	out, err := classifyDepthEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Quotes)
	require.Len(t, out.Quotes.Asks, 1)
	assert.Equal(t, DepthAsk, out.Quotes.Asks[0].Side)

	ev = &tradestation.Event{Payload: json.RawMessage(`{"Bids": [{"Price": "x"}]}`)}
	out, err = classifyDepthEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, "JsonDecode", out.Err.Error)
}

func TestClassifyDepthAggregateEvent(t *testing.T) {
	ev := &tradestation.Event{Payload: json.RawMessage(`{"Bids": [{"Side": "Bid", "Price": "2.415", "TotalOrderCount": 2}], "Asks": []}`)}
	out, err := classifyDepthAggregateEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Aggregates)
	assert.Equal(t, 2, out.Aggregates.Bids[0].TotalOrderCount)

	ev = &tradestation.Event{Err: &tradestation.StreamError{Error: "GoAway", Message: "stream closed"}}
	out, err = classifyDepthAggregateEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, "GoAway", out.Err.Error)
}
