package brokerage

import (
	"context"

	tradestation "github.com/quantpulse/tradestation-go"
)

// Account is a TradeStation brokerage account.
type Account struct {
	// AccountID is the main identifier for an account.
	AccountID string `json:"AccountID"`
	// Currency the account is based on.
	Currency string `json:"Currency"`
	// AccountType is e.g. "Cash", "Margin", or "Futures".
	AccountType string `json:"AccountType"`
	// Status of the account, e.g. "Active" or "Closed".
	Status string `json:"Status,omitempty"`
	// AccountDetail holds options level and day-trading flags.
	// Always nil for futures accounts.
	AccountDetail *AccountDetail `json:"AccountDetail,omitempty"`
}

// AccountDetail holds per-account trading approvals.
type AccountDetail struct {
	DayTradingQualified        bool `json:"DayTradingQualified"`
	EnrolledInRegTProgram      bool `json:"EnrolledInRegTProgram"`
	IsStockLocateEligible      bool `json:"IsStockLocateEligible"`
	OptionApprovalLevel        int  `json:"OptionApprovalLevel"`
	PatternDayTrader           bool `json:"PatternDayTrader"`
	RequiresBuyingPowerWarning bool `json:"RequiresBuyingPowerWarning"`
}

type getAccountsResp struct {
	Accounts []Account `json:"Accounts"`
}

// GetAccounts returns every account registered to the authenticated user.
func GetAccounts(ctx context.Context, c *tradestation.Client) ([]Account, error) {
	resp, err := c.Get(ctx, "brokerage/accounts")
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[getAccountsResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// GetAccount returns a single account by id.
func GetAccount(ctx context.Context, c *tradestation.Client, accountID string) (*Account, error) {
	accounts, err := GetAccounts(ctx, c)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].AccountID == accountID {
			return &accounts[i], nil
		}
	}
	return nil, tradestation.ErrNotFound("account", accountID)
}
