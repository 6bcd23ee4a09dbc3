// Package brokerage covers the account-state surface of the TradeStation
// API: accounts, balances, positions, and orders, plus the order and
// position streams.
package brokerage

import (
	"strings"
)

// ItemError is a per-item failure on a partial-success response. List
// endpoints can return it alongside the success array; callers decide
// whether to treat it as fatal.
type ItemError struct {
	AccountID string `json:"AccountID"`
	Error     string `json:"Error"`
	Message   string `json:"Message"`
}

func joinIDs(accountIDs []string) string {
	return strings.Join(accountIDs, ",")
}
