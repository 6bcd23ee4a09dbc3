package brokerage

import (
	"context"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// Balance is the intraday balance of one account. The remote quotes every
// monetary figure as a decimal string.
type Balance struct {
	AccountID        string           `json:"AccountID"`
	AccountType      string           `json:"AccountType"`
	BuyingPower      decimal.Decimal  `json:"BuyingPower"`
	CashBalance      decimal.Decimal  `json:"CashBalance"`
	Commission       decimal.Decimal  `json:"Commission"`
	Equity           decimal.Decimal  `json:"Equity"`
	MarketValue      decimal.Decimal  `json:"MarketValue"`
	TodaysProfitLoss decimal.Decimal  `json:"TodaysProfitLoss"`
	UnclearedDeposit decimal.Decimal  `json:"UnclearedDeposit"`
	BalanceDetail    *BalanceDetail   `json:"BalanceDetail,omitempty"`
	CurrencyDetails  []CurrencyDetail `json:"CurrencyDetails,omitempty"`
}

// BalanceDetail holds the asset-class specific balance figures.
type BalanceDetail struct {
	CostOfPositions      decimal.Decimal `json:"CostOfPositions"`
	DayTrades            string          `json:"DayTrades"`
	MaintenanceRate      decimal.Decimal `json:"MaintenanceRate"`
	OptionBuyingPower    decimal.Decimal `json:"OptionBuyingPower"`
	OptionsMarketValue   decimal.Decimal `json:"OptionsMarketValue"`
	OvernightBuyingPower decimal.Decimal `json:"OvernightBuyingPower"`
	RequiredMargin       decimal.Decimal `json:"RequiredMargin"`
	UnsettledFunds       decimal.Decimal `json:"UnsettledFunds"`
	DayTradeExcess       decimal.Decimal `json:"DayTradeExcess"`
	RealizedProfitLoss   decimal.Decimal `json:"RealizedProfitLoss"`
	UnrealizedProfitLoss decimal.Decimal `json:"UnrealizedProfitLoss"`
}

// CurrencyDetail holds futures balance figures per currency.
type CurrencyDetail struct {
	Currency                string          `json:"Currency"`
	BODOpenTradeEquity      decimal.Decimal `json:"BODOpenTradeEquity"`
	CashBalance             decimal.Decimal `json:"CashBalance"`
	Commission              decimal.Decimal `json:"Commission"`
	MarginRequirement       decimal.Decimal `json:"MarginRequirement"`
	NonTradeDebit           decimal.Decimal `json:"NonTradeDebit"`
	NonTradeNetBalance      decimal.Decimal `json:"NonTradeNetBalance"`
	OptionMarketValue       decimal.Decimal `json:"OptionMarketValue"`
	RealTimeUnrealizedGains decimal.Decimal `json:"RealTimeUnrealizedGains"`
	TradeEquity             decimal.Decimal `json:"TradeEquity"`
}

// BODBalance is the beginning-of-day snapshot of one account's balance.
type BODBalance struct {
	AccountID     string            `json:"AccountID"`
	AccountType   string            `json:"AccountType"`
	BalanceDetail *BODBalanceDetail `json:"BalanceDetail,omitempty"`
}

// BODBalanceDetail holds the beginning-of-day equities figures.
type BODBalanceDetail struct {
	AccountBalance                  decimal.Decimal `json:"AccountBalance"`
	CashAvailableToWithdraw         decimal.Decimal `json:"CashAvailableToWithdraw"`
	DayTrades                       string          `json:"DayTrades"`
	DayTradingMarginableBuyingPower decimal.Decimal `json:"DayTradingMarginableBuyingPower"`
	Equity                          decimal.Decimal `json:"Equity"`
	NetCash                         decimal.Decimal `json:"NetCash"`
	OptionBuyingPower               decimal.Decimal `json:"OptionBuyingPower"`
	OptionValue                     decimal.Decimal `json:"OptionValue"`
}

type getBalancesResp struct {
	Balances []Balance   `json:"Balances"`
	Errors   []ItemError `json:"Errors,omitempty"`
}

type getBODBalancesResp struct {
	BODBalances []BODBalance `json:"BODBalances"`
	Errors      []ItemError  `json:"Errors,omitempty"`
}

// GetBalances returns the current balances for the given accounts. On
// partial success the per-account errors are returned alongside the
// balances that did resolve.
func GetBalances(ctx context.Context, c *tradestation.Client, accountIDs []string) ([]Balance, []ItemError, error) {
	resp, err := c.Get(ctx, "brokerage/accounts/"+joinIDs(accountIDs)+"/balances")
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getBalancesResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.Balances, out.Errors, nil
}

// GetBODBalances returns the beginning-of-day balances for the given
// accounts.
func GetBODBalances(ctx context.Context, c *tradestation.Client, accountIDs []string) ([]BODBalance, []ItemError, error) {
	resp, err := c.Get(ctx, "brokerage/accounts/"+joinIDs(accountIDs)+"/bodbalances")
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getBODBalancesResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.BODBalances, out.Errors, nil
}
