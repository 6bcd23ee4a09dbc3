package orderexecution

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
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

func validRequest(t *testing.T) OrderRequest {
	t.Helper()
	req, err := NewOrderRequest("123456", "MSFT").
		Quantity(decimal.NewFromInt(10)).
		OrderType(TypeLimit).
		TradeAction(ActionBuy).
		LimitPrice(decimal.RequireFromString("395.50")).
		Build()
	require.NoError(t, err)
	return req
}

func TestOrderRequestBuild(t *testing.T) {
	req := validRequest(t)
	assert.Equal(t, "123456", req.AccountID)
	assert.Equal(t, DurationDay, req.TimeInForce.Duration)
	require.NotNil(t, req.LimitPrice)
	assert.True(t, req.LimitPrice.Equal(decimal.RequireFromString("395.50")))

	// Build generates an idempotency id when none was pinned.
	_, err := uuid.Parse(req.OrderConfirmID)
	assert.NoError(t, err)
}

func TestOrderRequestBuildKeepsPinnedConfirmID(t *testing.T) {
	req, err := NewOrderRequest("123456", "MSFT").
		Quantity(decimal.NewFromInt(1)).
		OrderType(TypeMarket).
		TradeAction(ActionBuy).
		OrderConfirmID("my-id").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "my-id", req.OrderConfirmID)
}

func TestOrderRequestValidation(t *testing.T) {
	limit := decimal.RequireFromString("395.50")
	stop := decimal.RequireFromString("390.00")
	qty := decimal.NewFromInt(10)

	tests := []struct {
		name    string
		builder *OrderRequestBuilder
		missing string
	}{
		{
			name:    "no account",
			builder: NewOrderRequest("", "MSFT").Quantity(qty).OrderType(TypeMarket).TradeAction(ActionBuy),
			missing: "account_id",
		},
		{
			name:    "no symbol or legs",
			builder: NewOrderRequest("123456", "").Quantity(qty).OrderType(TypeMarket),
			missing: "symbol",
		},
		{
			name:    "no order type",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).TradeAction(ActionBuy),
			missing: "order_type",
		},
		{
			name:    "no trade action",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).OrderType(TypeMarket),
			missing: "trade_action",
		},
		{
			name:    "no quantity",
			builder: NewOrderRequest("123456", "MSFT").OrderType(TypeMarket).TradeAction(ActionBuy),
			missing: "quantity",
		},
		{
			name:    "limit without limit price",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).OrderType(TypeLimit).TradeAction(ActionBuy),
			missing: "limit_price",
		},
		{
			name:    "stop market without stop price",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).OrderType(TypeStopMarket).TradeAction(ActionSell),
			missing: "stop_price",
		},
		{
			name: "stop limit without stop price",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).OrderType(TypeStopLimit).
				TradeAction(ActionSell).LimitPrice(limit),
			missing: "stop_price",
		},
		{
			name: "GTD without expiration",
			builder: NewOrderRequest("123456", "MSFT").Quantity(qty).OrderType(TypeStopMarket).
				TradeAction(ActionSell).StopPrice(stop).
				TimeInForce(TimeInForce{Duration: DurationGTD}),
			missing: "expiration",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)

			var tsErr *tradestation.Error
			require.ErrorAs(t, err, &tsErr)
			assert.Equal(t, tradestation.CodeMissingField, tsErr.Code)
			assert.Contains(t, tsErr.Message, tt.missing)
		})
	}
}

func TestOrderRequestLegsSkipSymbolChecks(t *testing.T) {
	req, err := NewOrderRequest("123456", "").
		OrderType(TypeMarket).
		Legs([]OrderRequestLeg{
			{Symbol: "MSFT 250404C400", Quantity: decimal.NewFromInt(1), TradeAction: ActionBuyToOpen},
			{Symbol: "MSFT 250404C410", Quantity: decimal.NewFromInt(1), TradeAction: ActionSellToOpen},
		}).
		Build()
	require.NoError(t, err)
	assert.Empty(t, req.Symbol)
	assert.Len(t, req.Legs, 2)
}

func TestConfirmOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orderexecution/orderconfirm", r.URL.Path)
		fmt.Fprint(w, `{"Confirmations": [{
			"OrderConfirmID": "c-1", "AccountID": "123456", "Route": "Intelligent",
			"SummaryMessage": "Buy 10 MSFT @ 395.50 Limit",
			"EstimatedPrice": "395.50", "EstimatedCost": "3955.00", "EstimatedCommission": "0.00"
		}]}`)
	}))

	confirms, err := ConfirmOrder(context.Background(), c, validRequest(t))
	require.NoError(t, err)
	require.Len(t, confirms, 1)
	assert.Equal(t, "c-1", confirms[0].OrderConfirmID)
	assert.True(t, confirms[0].EstimatedCost.Equal(decimal.RequireFromString("3955.00")))
}

func TestPlaceOrderMergesErrorTickets(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orderexecution/orders", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var sent OrderRequest
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, "123456", sent.AccountID)
		assert.NotEmpty(t, sent.OrderConfirmID)

		fmt.Fprint(w, `{
			"Orders": [{"Message": "Sent order", "OrderID": "286234131"}],
			"Errors": [{"OrderID": "", "Error": "InsufficientFunds", "Message": "rejected"}]
		}`)
	}))

	tickets, err := PlaceOrder(context.Background(), c, validRequest(t))
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "286234131", tickets[0].OrderID)
	assert.Empty(t, tickets[0].Error)
	assert.Equal(t, "InsufficientFunds", tickets[1].Error)
}

func TestReplaceOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/orderexecution/orders/286234131", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"LimitPrice": "394.00"}`, string(body))

		fmt.Fprint(w, `{"Message": "Order replaced", "OrderID": "286234131"}`)
	}))

	update := NewOrderUpdate().SetLimitPrice(decimal.RequireFromString("394.00"))
	ticket, err := ReplaceOrder(context.Background(), c, "286234131", update)
	require.NoError(t, err)
	assert.Equal(t, "Order replaced", ticket.Message)
}

func TestReplaceOrderRequiresID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	_, err := ReplaceOrder(context.Background(), c, "", NewOrderUpdate())
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeMissingField, tsErr.Code)
}

func TestCancelOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/orderexecution/orders/286234131", r.URL.Path)
		fmt.Fprint(w, `{"Message": "Cancel request sent", "OrderID": "286234131"}`)
	}))

	ticket, err := CancelOrder(context.Background(), c, "286234131")
	require.NoError(t, err)
	assert.Equal(t, "286234131", ticket.OrderID)
}

func TestNewOrderGroup(t *testing.T) {
	first := validRequest(t)
	second := validRequest(t)

	group, err := NewOrderGroup(GroupBracket, first, second)
	require.NoError(t, err)
	assert.Equal(t, GroupBracket, group.Type)
	assert.Len(t, group.Orders, 2)

	_, err = NewOrderGroup("", first, second)
	require.Error(t, err)

	_, err = NewOrderGroup(GroupOCO, first)
	require.Error(t, err)

	var tsErr *tradestation.Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, tradestation.CodeBadRequest, tsErr.Code)
}

func TestPlaceGroupOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orderexecution/ordergroups", r.URL.Path)

		var sent OrderGroupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		assert.Equal(t, GroupOCO, sent.Type)

		fmt.Fprint(w, `{"Orders": [
			{"Message": "Sent order", "OrderID": "1"},
			{"Message": "Sent order", "OrderID": "2"}
		]}`)
	}))

	group, err := NewOrderGroup(GroupOCO, validRequest(t), validRequest(t))
	require.NoError(t, err)

	tickets, err := PlaceGroupOrder(context.Background(), c, group)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestGetRoutes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orderexecution/routes", r.URL.Path)
		fmt.Fprint(w, `{"Routes": [
			{"Id": "AMEX", "Name": "AMEX", "AssetTypes": ["STOCK"]},
			{"Id": "Intelligent", "Name": "Intelligent", "AssetTypes": ["STOCK", "STOCKOPTION"]}
		]}`)
	}))

	routes, err := GetRoutes(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "Intelligent", routes[1].ID)
}

func TestGetActivationTriggers(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orderexecution/activationtriggers", r.URL.Path)
		fmt.Fprint(w, `{"ActivationTriggers": [
			{"Key": "STT", "Name": "Single Trade Tick", "Description": "One trade tick must print within your stop price to trigger your stop."},
			{"Key": "DBA", "Name": "Double Bid/Ask Tick", "Description": "Two consecutive bid or ask ticks must print within your stop price to trigger your stop."}
		]}`)
	}))

	triggers, err := GetActivationTriggers(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, TriggerSTT, triggers[0].Key)
	assert.Equal(t, "Double Bid/Ask Tick", triggers[1].Name)
}

func TestLegsOnlyOrderOmitsQuantity(t *testing.T) {
	req, err := NewOrderRequest("123456", "").
		OrderType(TypeLimit).
		LimitPrice(decimal.RequireFromString("1.25")).
		Legs([]OrderRequestLeg{
			{Symbol: "MSFT 250404C400", Quantity: decimal.NewFromInt(1), TradeAction: ActionBuyToOpen},
			{Symbol: "MSFT 250404C410", Quantity: decimal.NewFromInt(1), TradeAction: ActionSellToOpen},
		}).
		Build()
	require.NoError(t, err)

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.NotContains(t, fields, "Quantity")
	assert.NotContains(t, fields, "TradeAction")
	assert.Contains(t, fields, "Legs")
}
