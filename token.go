package tradestation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Scope is a named capability granted to a token. Scopes travel on the wire
// as a single space-separated string.
type Scope string

const (
	// ScopeMarketData grants lookup and streaming of market data.
	ScopeMarketData Scope = "MarketData"
	// ScopeReadAccount grants read access to brokerage accounts.
	ScopeReadAccount Scope = "ReadAccount"
	// ScopeTrade grants order execution.
	ScopeTrade Scope = "Trade"
	// ScopeOptionSpreads grants option spread execution.
	ScopeOptionSpreads Scope = "OptionSpreads"
	// ScopeMatrix grants market depth access.
	ScopeMatrix Scope = "Matrix"
	// ScopeOpenID is required on every token.
	ScopeOpenID Scope = "openid"
	// ScopeOfflineAccess enables refresh tokens and is required.
	ScopeOfflineAccess Scope = "offline_access"
	// ScopeProfile adds basic profile claims to the ID token.
	ScopeProfile Scope = "profile"
	// ScopeEmail adds email claims to the ID token.
	ScopeEmail Scope = "email"
)

var knownScopes = map[Scope]bool{
	ScopeMarketData:    true,
	ScopeReadAccount:   true,
	ScopeTrade:         true,
	ScopeOptionSpreads: true,
	ScopeMatrix:        true,
	ScopeOpenID:        true,
	ScopeOfflineAccess: true,
	ScopeProfile:       true,
	ScopeEmail:         true,
}

// ParseScopes splits a space-separated scope string into the scope set,
// collapsing duplicates. Unknown tokens are rejected.
func ParseScopes(s string) ([]Scope, error) {
	fields := strings.Fields(s)
	scopes := make([]Scope, 0, len(fields))
	seen := make(map[Scope]bool, len(fields))
	for _, f := range fields {
		sc := Scope(f)
		if !knownScopes[sc] {
			return nil, ErrTokenConfig(fmt.Sprintf("unknown scope %q", f))
		}
		if seen[sc] {
			continue
		}
		seen[sc] = true
		scopes = append(scopes, sc)
	}
	return scopes, nil
}

// JoinScopes renders a scope set in its wire form.
func JoinScopes(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, sc := range scopes {
		parts[i] = string(sc)
	}
	return strings.Join(parts, " ")
}

// Token is a TradeStation bearer token. IssuedAt is recorded by the client at
// the moment of acquisition; the remote only reports a relative expires_in.
type Token struct {
	// AccessToken authenticates API requests.
	AccessToken string
	// RefreshToken obtains new access tokens. Refresh responses may omit it,
	// in which case the previous value is carried forward.
	RefreshToken string
	// IDToken carries the OpenID identity claims.
	IDToken string
	// TokenType is always "Bearer" on real tokens.
	TokenType string
	// Scope is the granted scope set.
	Scope []Scope
	// ExpiresIn is the token lifetime in seconds from IssuedAt.
	ExpiresIn int64
	// IssuedAt is the wall-clock time the token was acquired.
	IssuedAt time.Time
}

// tokenWire is the identity endpoint's JSON shape for a token.
type tokenWire struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MarshalJSON renders the token in the identity endpoint's wire shape.
// IssuedAt is client-side state and is not part of the wire form.
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenWire{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		IDToken:      t.IDToken,
		TokenType:    t.TokenType,
		Scope:        JoinScopes(t.Scope),
		ExpiresIn:    t.ExpiresIn,
	})
}

// UnmarshalJSON parses the identity endpoint's wire shape. The caller is
// responsible for stamping IssuedAt.
func (t *Token) UnmarshalJSON(data []byte) error {
	var w tokenWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	scopes, err := ParseScopes(w.Scope)
	if err != nil {
		return err
	}
	t.AccessToken = w.AccessToken
	t.RefreshToken = w.RefreshToken
	t.IDToken = w.IDToken
	t.TokenType = w.TokenType
	t.Scope = scopes
	t.ExpiresIn = w.ExpiresIn
	return nil
}

// ExpiresAt returns the wall-clock deadline after which the token is invalid.
func (t *Token) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsFresh reports whether the token remains usable for at least margin.
func (t *Token) IsFresh(margin time.Duration) bool {
	return t.isFreshAt(time.Now(), margin)
}

func (t *Token) isFreshAt(now time.Time, margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Add(margin).Before(t.ExpiresAt())
}

// HasScope reports whether the token was granted the given scope.
func (t *Token) HasScope(scope Scope) bool {
	if t == nil {
		return false
	}
	for _, sc := range t.Scope {
		if sc == scope {
			return true
		}
	}
	return false
}
