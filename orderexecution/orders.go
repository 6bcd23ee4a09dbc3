package orderexecution

import (
	"context"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// OrderTicket is the remote's receipt for a placed, replaced, or canceled
// order. Error is set on per-order failures inside an otherwise successful
// response.
type OrderTicket struct {
	Message string `json:"Message"`
	OrderID string `json:"OrderID"`
	Error   string `json:"Error,omitempty"`
}

// OrderConfirmation is the remote's cost and margin estimate for an order
// that has not been placed.
type OrderConfirmation struct {
	OrderConfirmID      string            `json:"OrderConfirmID"`
	AccountID           string            `json:"AccountID"`
	Route               string            `json:"Route"`
	TimeInForce         TimeInForce       `json:"TimeInForce"`
	SummaryMessage      string            `json:"SummaryMessage"`
	OrderAssetCategory  string            `json:"OrderAssetCategory"`
	LimitPrice          *decimal.Decimal  `json:"LimitPrice,omitempty"`
	StopPrice           *decimal.Decimal  `json:"StopPrice,omitempty"`
	EstimatedPrice      decimal.Decimal   `json:"EstimatedPrice"`
	EstimatedCost       decimal.Decimal   `json:"EstimatedCost"`
	EstimatedCommission decimal.Decimal   `json:"EstimatedCommission"`
	ProductCurrency     string            `json:"ProductCurrency,omitempty"`
	AccountCurrency     string            `json:"AccountCurrency,omitempty"`
	Underlying          string            `json:"Underlying,omitempty"`
	Legs                []OrderRequestLeg `json:"Legs,omitempty"`
}

type placeOrderResp struct {
	Orders []OrderTicket `json:"Orders"`
	Errors []OrderTicket `json:"Errors,omitempty"`
}

type confirmOrderResp struct {
	Confirmations []OrderConfirmation `json:"Confirmations"`
}

// ConfirmOrder asks the remote to validate an order and estimate its cost
// without placing it.
func ConfirmOrder(ctx context.Context, c *tradestation.Client, req OrderRequest) ([]OrderConfirmation, error) {
	resp, err := c.Post(ctx, "orderexecution/orderconfirm", req)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[confirmOrderResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Confirmations, nil
}

// PlaceOrder submits an order. Responses can carry multiple tickets when
// the request fans out, and per-order failures arrive as tickets with
// Error set rather than failing the call.
func PlaceOrder(ctx context.Context, c *tradestation.Client, req OrderRequest) ([]OrderTicket, error) {
	resp, err := c.Post(ctx, "orderexecution/orders", req)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[placeOrderResp](resp)
	if err != nil {
		return nil, err
	}
	return append(out.Orders, out.Errors...), nil
}

// ReplaceOrder updates an active order in place.
func ReplaceOrder(ctx context.Context, c *tradestation.Client, orderID string, update *OrderUpdate) (OrderTicket, error) {
	if orderID == "" {
		return OrderTicket{}, tradestation.ErrMissingField("order_id")
	}
	resp, err := c.Put(ctx, "orderexecution/orders/"+orderID, update)
	if err != nil {
		return OrderTicket{}, err
	}
	return tradestation.Decode[OrderTicket](resp)
}

// CancelOrder cancels an active order.
func CancelOrder(ctx context.Context, c *tradestation.Client, orderID string) (OrderTicket, error) {
	if orderID == "" {
		return OrderTicket{}, tradestation.ErrMissingField("order_id")
	}
	resp, err := c.Delete(ctx, "orderexecution/orders/"+orderID)
	if err != nil {
		return OrderTicket{}, err
	}
	return tradestation.Decode[OrderTicket](resp)
}

// OrderGroupRequest submits several orders as one group: a bracket, an
// order-cancels-order pair, or an unlinked batch.
type OrderGroupRequest struct {
	Orders []OrderRequest `json:"Orders"`
	Type   GroupType      `json:"Type"`
}

// NewOrderGroup builds a group request, requiring at least two orders and
// a group type.
func NewOrderGroup(groupType GroupType, orders ...OrderRequest) (OrderGroupRequest, error) {
	if groupType == "" {
		return OrderGroupRequest{}, tradestation.ErrMissingField("group_type")
	}
	if len(orders) < 2 {
		return OrderGroupRequest{}, tradestation.ErrInvalidRequest("a group order needs at least two orders")
	}
	return OrderGroupRequest{Orders: orders, Type: groupType}, nil
}

// ConfirmGroupOrder validates a group order and estimates its cost without
// placing it.
func ConfirmGroupOrder(ctx context.Context, c *tradestation.Client, group OrderGroupRequest) ([]OrderConfirmation, error) {
	resp, err := c.Post(ctx, "orderexecution/ordergroupconfirm", group)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[confirmOrderResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Confirmations, nil
}

// PlaceGroupOrder submits a group order. Sibling orders are executed as
// individual orders by the remote.
func PlaceGroupOrder(ctx context.Context, c *tradestation.Client, group OrderGroupRequest) ([]OrderTicket, error) {
	resp, err := c.Post(ctx, "orderexecution/ordergroups", group)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[placeOrderResp](resp)
	if err != nil {
		return nil, err
	}
	return append(out.Orders, out.Errors...), nil
}

// Route is a valid execution venue for a set of asset types.
type Route struct {
	ID         string   `json:"Id"`
	Name       string   `json:"Name"`
	AssetTypes []string `json:"AssetTypes"`
}

type getRoutesResp struct {
	Routes []Route `json:"Routes"`
}

// GetRoutes fetches the valid execution routes for the authenticated user.
func GetRoutes(ctx context.Context, c *tradestation.Client) ([]Route, error) {
	resp, err := c.Get(ctx, "orderexecution/routes")
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[getRoutesResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Routes, nil
}

// ActivationTrigger is a tick pattern that can arm a stop order. Send its
// Key with an order to use it.
type ActivationTrigger struct {
	Key         ActivationTriggerKey `json:"Key"`
	Name        string               `json:"Name"`
	Description string               `json:"Description"`
}

// ActivationTriggerKey identifies a trigger pattern. The single, double,
// and twice families differ in how many qualifying ticks must print within
// the stop price before the stop arms.
type ActivationTriggerKey string

const (
	// TriggerSTT arms on one trade tick.
	TriggerSTT ActivationTriggerKey = "STT"
	// TriggerSTTN arms on one trade tick within the NBBO.
	TriggerSTTN ActivationTriggerKey = "STTN"
	// TriggerSBA arms on one ask tick for buys, one bid tick for sells.
	TriggerSBA ActivationTriggerKey = "SBA"
	// TriggerSAB arms on one bid tick for buys, one ask tick for sells.
	TriggerSAB ActivationTriggerKey = "SAB"
	// TriggerDTT arms on two consecutive trade ticks.
	TriggerDTT ActivationTriggerKey = "DTT"
	// TriggerDTTN arms on two consecutive trade ticks within the NBBO.
	TriggerDTTN ActivationTriggerKey = "DTTN"
	// TriggerDBA arms on two consecutive ask ticks for buys, bid ticks for
	// sells.
	TriggerDBA ActivationTriggerKey = "DBA"
	// TriggerDAB arms on two consecutive bid ticks for buys, ask ticks for
	// sells.
	TriggerDAB ActivationTriggerKey = "DAB"
	// TriggerTTT arms on two trade ticks, not necessarily consecutive.
	TriggerTTT ActivationTriggerKey = "TTT"
	// TriggerTTTN arms on two trade ticks within the NBBO.
	TriggerTTTN ActivationTriggerKey = "TTTN"
	// TriggerTBA arms on two ask ticks for buys, two bid ticks for sells.
	TriggerTBA ActivationTriggerKey = "TBA"
	// TriggerTAB arms on two bid ticks for buys, two ask ticks for sells.
	TriggerTAB ActivationTriggerKey = "TAB"
)

type getActivationTriggersResp struct {
	ActivationTriggers []ActivationTrigger `json:"ActivationTriggers"`
}

// GetActivationTriggers fetches the activation triggers valid for the
// authenticated user's orders.
func GetActivationTriggers(ctx context.Context, c *tradestation.Client) ([]ActivationTrigger, error) {
	resp, err := c.Get(ctx, "orderexecution/activationtriggers")
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[getActivationTriggersResp](resp)
	if err != nil {
		return nil, err
	}
	return out.ActivationTriggers, nil
}
