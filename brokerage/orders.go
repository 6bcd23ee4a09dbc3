package brokerage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// historicalOrdersWindow is the farthest back the remote accepts a since
// date on the historical-orders endpoints.
const historicalOrdersWindow = 90 * 24 * time.Hour

// Order is an order as reported by the brokerage surface, live or
// historical.
type Order struct {
	OrderID           string          `json:"OrderID"`
	AccountID         string          `json:"AccountID"`
	Status            string          `json:"Status"`
	StatusDescription string          `json:"StatusDescription"`
	OrderType         string          `json:"OrderType"`
	Duration          string          `json:"Duration,omitempty"`
	LimitPrice        decimal.Decimal `json:"LimitPrice,omitempty"`
	StopPrice         decimal.Decimal `json:"StopPrice,omitempty"`
	FilledPrice       decimal.Decimal `json:"FilledPrice,omitempty"`
	OpenedDateTime    string          `json:"OpenedDateTime,omitempty"`
	ClosedDateTime    string          `json:"ClosedDateTime,omitempty"`
	Legs              []OrderLeg      `json:"Legs,omitempty"`
}

// OrderLeg is one leg of an order.
type OrderLeg struct {
	AssetType         string          `json:"AssetType"`
	BuyOrSell         string          `json:"BuyOrSell"`
	Symbol            string          `json:"Symbol"`
	Underlying        string          `json:"Underlying,omitempty"`
	ExecQuantity      decimal.Decimal `json:"ExecQuantity"`
	ExecutionPrice    decimal.Decimal `json:"ExecutionPrice,omitempty"`
	OpenOrClose       string          `json:"OpenOrClose,omitempty"`
	QuantityOrdered   decimal.Decimal `json:"QuantityOrdered"`
	QuantityRemaining decimal.Decimal `json:"QuantityRemaining"`
}

type getOrdersResp struct {
	Orders []Order     `json:"Orders"`
	Errors []ItemError `json:"Errors,omitempty"`
}

// GetOrders returns today's and open orders for the given accounts.
func GetOrders(ctx context.Context, c *tradestation.Client, accountIDs []string) ([]Order, []ItemError, error) {
	return fetchOrders(ctx, c, "brokerage/accounts/"+joinIDs(accountIDs)+"/orders")
}

// GetOrdersByID returns specific orders by order id.
func GetOrdersByID(ctx context.Context, c *tradestation.Client, accountIDs, orderIDs []string) ([]Order, []ItemError, error) {
	path := "brokerage/accounts/" + joinIDs(accountIDs) + "/orders/" + joinIDs(orderIDs)
	return fetchOrders(ctx, c, path)
}

// GetHistoricOrders returns closed orders since the given date, sorted by
// the remote in descending close time. The remote rejects dates more than
// 90 days back; that bound is validated here rather than silently clamped.
func GetHistoricOrders(ctx context.Context, c *tradestation.Client, accountIDs []string, since time.Time) ([]Order, []ItemError, error) {
	if time.Since(since) > historicalOrdersWindow {
		return nil, nil, tradestation.ErrInvalidRequest(
			fmt.Sprintf("historical orders are limited to 90 days back; since=%s", since.Format("2006-01-02")))
	}
	path := "brokerage/accounts/" + joinIDs(accountIDs) + "/historicalorders?since=" + since.Format("2006-01-02")
	return fetchOrders(ctx, c, path)
}

func fetchOrders(ctx context.Context, c *tradestation.Client, path string) ([]Order, []ItemError, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getOrdersResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.Orders, out.Errors, nil
}

// OrderStreamEvent is one event from an order stream. Exactly one field is
// set.
type OrderStreamEvent struct {
	Order     *Order
	Heartbeat *tradestation.Heartbeat
	Status    *tradestation.StreamStatus
	Err       *tradestation.StreamError
}

// OpenOrderStream opens the order stream for the given accounts and returns
// the pull surface. Lines carrying an OrderID are payloads.
func OpenOrderStream(ctx context.Context, c *tradestation.Client, accountIDs []string) (*tradestation.Stream, error) {
	path := "brokerage/stream/accounts/" + joinIDs(accountIDs) + "/orders"
	return c.OpenStream(ctx, path, tradestation.KeyPresent("OrderID"))
}

// StreamOrders pushes order stream events into fn until the stream ends, fn
// returns ErrStopStream (a clean stop, returned as nil), or fn returns any
// other error.
func StreamOrders(ctx context.Context, c *tradestation.Client, accountIDs []string, fn func(OrderStreamEvent) error) error {
	s, err := OpenOrderStream(ctx, c, accountIDs)
	if err != nil {
		return err
	}
	return s.Each(func(ev *tradestation.Event) error {
		out, err := classifyOrderEvent(ev)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

func classifyOrderEvent(ev *tradestation.Event) (OrderStreamEvent, error) {
	switch {
	case ev.Payload != nil:
		var o Order
		if err := json.Unmarshal(ev.Payload, &o); err != nil {
			return OrderStreamEvent{Err: decodeStreamError(err)}, nil
		}
		return OrderStreamEvent{Order: &o}, nil
	case ev.Heartbeat != nil:
		return OrderStreamEvent{Heartbeat: ev.Heartbeat}, nil
	case ev.Status != nil:
		return OrderStreamEvent{Status: ev.Status}, nil
	case ev.DecodeErr != nil:
		return OrderStreamEvent{Err: decodeStreamError(ev.DecodeErr)}, nil
	default:
		return OrderStreamEvent{Err: ev.Err}, nil
	}
}
