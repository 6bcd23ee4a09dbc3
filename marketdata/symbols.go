package marketdata

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	tradestation "github.com/quantpulse/tradestation-go"
)

// AssetType classifies a tradeable instrument.
type AssetType string

const (
	AssetUnknown        AssetType = "UNKNOWN"
	AssetStock          AssetType = "STOCK"
	AssetStockOption    AssetType = "STOCKOPTION"
	AssetFuture         AssetType = "FUTURE"
	AssetFutureOption   AssetType = "FUTUREOPTION"
	AssetForex          AssetType = "FOREX"
	AssetCurrencyOption AssetType = "CURRENCYOPTION"
	AssetIndex          AssetType = "INDEX"
	AssetIndexOption    AssetType = "INDEXOPTION"
)

// SymbolDetails describes an instrument: its identity, formatting rules,
// and for derivatives the contract terms.
type SymbolDetails struct {
	AssetType      AssetType        `json:"AssetType"`
	Country        string           `json:"Country"`
	Currency       string           `json:"Currency"`
	Description    string           `json:"Description"`
	Exchange       string           `json:"Exchange"`
	ExpirationDate string           `json:"ExpirationDate,omitempty"`
	FutureType     string           `json:"FutureType,omitempty"`
	OptionType     string           `json:"OptionType,omitempty"`
	PriceFormat    PriceFormat      `json:"PriceFormat"`
	QuantityFormat QuantityFormat   `json:"QuantityFormat"`
	Root           string           `json:"Root"`
	StrikePrice    *decimal.Decimal `json:"StrikePrice,omitempty"`
	Symbol         string           `json:"Symbol"`
	Underlying     string           `json:"Underlying,omitempty"`
}

// PriceFormat describes how prices for a symbol are displayed and
// incremented.
type PriceFormat struct {
	Format            string              `json:"Format"`
	Decimals          string              `json:"Decimals,omitempty"`
	Fraction          string              `json:"Fraction,omitempty"`
	SubFraction       string              `json:"SubFraction,omitempty"`
	IncrementStyle    string              `json:"IncrementStyle"`
	Increment         string              `json:"Increment,omitempty"`
	IncrementSchedule []IncrementSchedule `json:"IncrementSchedule,omitempty"`
	PointValue        decimal.Decimal     `json:"PointValue"`
}

// QuantityFormat describes how order quantities for a symbol are displayed
// and incremented.
type QuantityFormat struct {
	Format               string              `json:"Format"`
	Decimals             string              `json:"Decimals"`
	IncrementStyle       string              `json:"IncrementStyle"`
	Increment            string              `json:"Increment,omitempty"`
	IncrementSchedule    []IncrementSchedule `json:"IncrementSchedule,omitempty"`
	MinimumTradeQuantity decimal.Decimal     `json:"MinimumTradeQuantity"`
}

// IncrementSchedule is one step of a scheduled increment style.
type IncrementSchedule struct {
	Increment decimal.Decimal `json:"Increment"`
	StartsAt  decimal.Decimal `json:"StartsAt"`
}

type getSymbolDetailsResp struct {
	Symbols []SymbolDetails `json:"Symbols"`
	Errors  []ItemError     `json:"Errors,omitempty"`
}

// GetSymbolDetails fetches details for up to 50 symbols. Unknown symbols
// come back in the second return value rather than failing the call.
func GetSymbolDetails(ctx context.Context, c *tradestation.Client, symbols []string) ([]SymbolDetails, []ItemError, error) {
	if len(symbols) == 0 {
		return nil, nil, tradestation.ErrMissingField("symbols")
	}
	resp, err := c.Get(ctx, "marketdata/symbols/"+joinSymbols(symbols))
	if err != nil {
		return nil, nil, err
	}
	out, err := tradestation.Decode[getSymbolDetailsResp](resp)
	if err != nil {
		return nil, nil, err
	}
	return out.Symbols, out.Errors, nil
}

// OptionExpiration is one available expiration for an option chain.
type OptionExpiration struct {
	Date string `json:"Date"`
	Type string `json:"Type"`
}

// Time returns the expiration date parsed from its RFC3339 form.
func (e OptionExpiration) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, e.Date)
}

type getOptionExpirationsResp struct {
	Expirations []OptionExpiration `json:"Expirations"`
}

// GetOptionExpirations fetches available contract expirations for an
// underlying symbol. A non nil strikePrice narrows the result to
// expirations traded at that strike.
func GetOptionExpirations(ctx context.Context, c *tradestation.Client, underlying string, strikePrice *float64) ([]OptionExpiration, error) {
	if underlying == "" {
		return nil, tradestation.ErrMissingField("underlying")
	}
	path := "marketdata/options/expirations/" + url.PathEscape(underlying)
	if strikePrice != nil {
		path += "?strikePrice=" + strconv.FormatFloat(*strikePrice, 'f', -1, 64)
	}
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := tradestation.Decode[getOptionExpirationsResp](resp)
	if err != nil {
		return nil, err
	}
	return out.Expirations, nil
}
