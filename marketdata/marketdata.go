// Package marketdata covers the market data surface: bar charts, quote
// snapshots, market depth, symbol details, and option expirations, each
// with a streaming counterpart where the remote offers one.
package marketdata

import "strings"

// ItemError is a per-symbol error from responses that can partially succeed.
type ItemError struct {
	Symbol  string `json:"Symbol,omitempty"`
	Error   string `json:"Error"`
	Message string `json:"Message"`
}

func joinSymbols(symbols []string) string {
	return strings.Join(symbols, ",")
}
