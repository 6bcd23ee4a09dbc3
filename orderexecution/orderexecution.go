// Package orderexecution covers the order execution surface: confirming,
// placing, replacing, and canceling orders, group orders, execution
// routes, and activation triggers.
package orderexecution

// TradeAction is the side of an order.
type TradeAction string

const (
	ActionBuy         TradeAction = "BUY"
	ActionSell        TradeAction = "SELL"
	ActionBuyToCover  TradeAction = "BUYTOCOVER"
	ActionSellShort   TradeAction = "SELLSHORT"
	ActionBuyToOpen   TradeAction = "BUYTOOPEN"
	ActionBuyToClose  TradeAction = "BUYTOCLOSE"
	ActionSellToOpen  TradeAction = "SELLTOOPEN"
	ActionSellToClose TradeAction = "SELLTOCLOSE"
)

// OrderType is the kind of order being placed.
type OrderType string

const (
	TypeLimit      OrderType = "Limit"
	TypeMarket     OrderType = "Market"
	TypeStopMarket OrderType = "StopMarket"
	TypeStopLimit  OrderType = "StopLimit"
)

// Duration is how long an order remains valid in the market.
type Duration string

const (
	// DurationDay is valid until the end of the regular session.
	DurationDay Duration = "DAY"
	// DurationDayPlus is valid until the end of the extended session.
	DurationDayPlus Duration = "DYP"
	// DurationGTC is good till canceled, capped at 90 calendar days.
	DurationGTC Duration = "GTC"
	// DurationGTCPlus is good till canceled through extended sessions.
	DurationGTCPlus Duration = "GCP"
	// DurationGTD is good through a date set in TimeInForce.Expiration.
	DurationGTD Duration = "GTD"
	// DurationGTDPlus is good through a date, extended sessions included.
	DurationGTDPlus Duration = "GDP"
	// DurationOpening fills only at the opening session price.
	DurationOpening Duration = "OPG"
	// DurationClose targets the closing session of an exchange.
	DurationClose Duration = "CLO"
	// DurationIOC fills immediately, partially or not at all.
	DurationIOC Duration = "IOC"
	// DurationFOK fills entirely or cancels, no partial fills.
	DurationFOK Duration = "FOK"
	// DurationOneMinute expires one minute after placement.
	DurationOneMinute Duration = "1"
	// DurationThreeMinute expires three minutes after placement.
	DurationThreeMinute Duration = "3"
	// DurationFiveMinute expires five minutes after placement.
	DurationFiveMinute Duration = "5"
)

// TimeInForce pairs a duration with the expiration date the GTD durations
// require.
type TimeInForce struct {
	Duration   Duration `json:"Duration"`
	Expiration string   `json:"Expiration,omitempty"`
}

// GroupType classifies a group order.
type GroupType string

const (
	// GroupBracket brackets a position with a simultaneous stop and limit.
	GroupBracket GroupType = "BRK"
	// GroupOCO cancels the remaining orders once one fills.
	GroupOCO GroupType = "OCO"
	// GroupNormal submits the orders together with no linkage.
	GroupNormal GroupType = "NORMAL"
)
