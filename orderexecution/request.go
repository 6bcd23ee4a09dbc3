package orderexecution

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// OrderRequest is the wire form of a new order. Build one with
// NewOrderRequest so required fields and price constraints are checked
// before the request goes out.
type OrderRequest struct {
	AccountID      string            `json:"AccountID"`
	Symbol         string            `json:"Symbol,omitempty"`
	Quantity       *decimal.Decimal  `json:"Quantity,omitempty"`
	OrderType      OrderType         `json:"OrderType"`
	TradeAction    TradeAction       `json:"TradeAction,omitempty"`
	LimitPrice     *decimal.Decimal  `json:"LimitPrice,omitempty"`
	StopPrice      *decimal.Decimal  `json:"StopPrice,omitempty"`
	TimeInForce    TimeInForce       `json:"TimeInForce"`
	Route          string            `json:"Route,omitempty"`
	Legs           []OrderRequestLeg `json:"Legs,omitempty"`
	OSOs           []OSO             `json:"OSOs,omitempty"`
	OrderConfirmID string            `json:"OrderConfirmID,omitempty"`
}

// OrderRequestLeg is one leg of a multi leg order request.
type OrderRequestLeg struct {
	Symbol         string           `json:"Symbol"`
	Quantity       decimal.Decimal  `json:"Quantity"`
	TradeAction    TradeAction      `json:"TradeAction"`
	StrikePrice    *decimal.Decimal `json:"StrikePrice,omitempty"`
	OptionType     string           `json:"OptionType,omitempty"`
	ExpirationDate string           `json:"ExpirationDate,omitempty"`
}

// OSO is an order-sends-order attachment: the contained orders are
// submitted once the parent order fills.
type OSO struct {
	Orders []OrderRequest `json:"Orders"`
	Type   GroupType      `json:"Type"`
}

// OrderRequestBuilder assembles an OrderRequest and validates it at Build
// time.
type OrderRequestBuilder struct {
	req OrderRequest
}

// NewOrderRequest starts an order request. Duration defaults to DAY.
func NewOrderRequest(accountID, symbol string) *OrderRequestBuilder {
	return &OrderRequestBuilder{req: OrderRequest{
		AccountID:   accountID,
		Symbol:      symbol,
		TimeInForce: TimeInForce{Duration: DurationDay},
	}}
}

func (b *OrderRequestBuilder) Quantity(q decimal.Decimal) *OrderRequestBuilder {
	b.req.Quantity = &q
	return b
}

func (b *OrderRequestBuilder) OrderType(t OrderType) *OrderRequestBuilder {
	b.req.OrderType = t
	return b
}

func (b *OrderRequestBuilder) TradeAction(a TradeAction) *OrderRequestBuilder {
	b.req.TradeAction = a
	return b
}

func (b *OrderRequestBuilder) LimitPrice(p decimal.Decimal) *OrderRequestBuilder {
	b.req.LimitPrice = &p
	return b
}

func (b *OrderRequestBuilder) StopPrice(p decimal.Decimal) *OrderRequestBuilder {
	b.req.StopPrice = &p
	return b
}

func (b *OrderRequestBuilder) TimeInForce(tif TimeInForce) *OrderRequestBuilder {
	b.req.TimeInForce = tif
	return b
}

// Route overrides the default Intelligent route.
func (b *OrderRequestBuilder) Route(route string) *OrderRequestBuilder {
	b.req.Route = route
	return b
}

// Legs replaces the symbol level fields with a multi leg order.
func (b *OrderRequestBuilder) Legs(legs []OrderRequestLeg) *OrderRequestBuilder {
	b.req.Legs = legs
	return b
}

// OSO attaches order-sends-order children, submitted when this order fills.
func (b *OrderRequestBuilder) OSO(osos ...OSO) *OrderRequestBuilder {
	b.req.OSOs = append(b.req.OSOs, osos...)
	return b
}

// OrderConfirmID pins the idempotency id for placement. When not set,
// Build generates one.
func (b *OrderRequestBuilder) OrderConfirmID(id string) *OrderRequestBuilder {
	b.req.OrderConfirmID = id
	return b
}

// Build validates the request and returns it. A fresh OrderConfirmID is
// generated when none was set so repeated placements of the same built
// request stay idempotent on the remote side.
func (b *OrderRequestBuilder) Build() (OrderRequest, error) {
	req := b.req
	if req.AccountID == "" {
		return OrderRequest{}, tradestation.ErrMissingField("account_id")
	}
	if req.Symbol == "" && len(req.Legs) == 0 {
		return OrderRequest{}, tradestation.ErrMissingField("symbol")
	}
	if req.OrderType == "" {
		return OrderRequest{}, tradestation.ErrMissingField("order_type")
	}
	if req.Symbol != "" {
		if req.TradeAction == "" {
			return OrderRequest{}, tradestation.ErrMissingField("trade_action")
		}
		if req.Quantity == nil || req.Quantity.IsZero() {
			return OrderRequest{}, tradestation.ErrMissingField("quantity")
		}
	}
	switch req.OrderType {
	case TypeLimit:
		if req.LimitPrice == nil {
			return OrderRequest{}, tradestation.ErrMissingField("limit_price")
		}
	case TypeStopMarket:
		if req.StopPrice == nil {
			return OrderRequest{}, tradestation.ErrMissingField("stop_price")
		}
	case TypeStopLimit:
		if req.LimitPrice == nil {
			return OrderRequest{}, tradestation.ErrMissingField("limit_price")
		}
		if req.StopPrice == nil {
			return OrderRequest{}, tradestation.ErrMissingField("stop_price")
		}
	}
	if req.TimeInForce.Duration == DurationGTD || req.TimeInForce.Duration == DurationGTDPlus {
		if req.TimeInForce.Expiration == "" {
			return OrderRequest{}, tradestation.ErrMissingField("expiration")
		}
	}
	if req.OrderConfirmID == "" {
		req.OrderConfirmID = uuid.NewString()
	}
	return req, nil
}

// OrderUpdate carries the mutable fields of an active order for
// ReplaceOrder. Nil fields are left unchanged on the remote side.
type OrderUpdate struct {
	LimitPrice *decimal.Decimal `json:"LimitPrice,omitempty"`
	StopPrice  *decimal.Decimal `json:"StopPrice,omitempty"`
	OrderType  OrderType        `json:"OrderType,omitempty"`
	Quantity   *decimal.Decimal `json:"Quantity,omitempty"`
}

// NewOrderUpdate starts an empty order update.
func NewOrderUpdate() *OrderUpdate {
	return &OrderUpdate{}
}

func (u *OrderUpdate) SetLimitPrice(p decimal.Decimal) *OrderUpdate {
	u.LimitPrice = &p
	return u
}

func (u *OrderUpdate) SetStopPrice(p decimal.Decimal) *OrderUpdate {
	u.StopPrice = &p
	return u
}

func (u *OrderUpdate) SetOrderType(t OrderType) *OrderUpdate {
	u.OrderType = t
	return u
}

func (u *OrderUpdate) SetQuantity(q decimal.Decimal) *OrderUpdate {
	u.Quantity = &q
	return u
}
