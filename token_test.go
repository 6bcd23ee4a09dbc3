package tradestation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScopes(t *testing.T) {
	scopes, err := ParseScopes("openid offline_access MarketData")
	require.NoError(t, err)
	assert.Equal(t, []Scope{ScopeOpenID, ScopeOfflineAccess, ScopeMarketData}, scopes)
}

func TestParseScopesDeduplicates(t *testing.T) {
	scopes, err := ParseScopes("MarketData MarketData openid")
	require.NoError(t, err)
	assert.Equal(t, []Scope{ScopeMarketData, ScopeOpenID}, scopes)
}

func TestParseScopesRejectsUnknown(t *testing.T) {
	_, err := ParseScopes("openid SuperAdmin")
	require.Error(t, err)

	var tsErr *Error
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, CodeTokenConfig, tsErr.Code)
}

func TestParseScopesEmpty(t *testing.T) {
	scopes, err := ParseScopes("")
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestJoinScopes(t *testing.T) {
	assert.Equal(t, "openid offline_access Trade",
		JoinScopes([]Scope{ScopeOpenID, ScopeOfflineAccess, ScopeTrade}))
}

func TestTokenWireRoundTrip(t *testing.T) {
	tok := Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IDToken:      "id",
		TokenType:    "Bearer",
		Scope:        []Scope{ScopeOpenID, ScopeMarketData},
		ExpiresIn:    1200,
	}

	data, err := json.Marshal(tok)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "openid MarketData", wire["scope"])
	assert.NotContains(t, wire, "issued_at")

	var back Token
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tok.AccessToken, back.AccessToken)
	assert.Equal(t, tok.Scope, back.Scope)
	assert.True(t, back.IssuedAt.IsZero(), "unmarshal must not invent an issue time")
}

func TestTokenFreshness(t *testing.T) {
	now := time.Now()
	tok := &Token{AccessToken: "a", ExpiresIn: 1200, IssuedAt: now}

	// Usable for 20 minutes; fresh with a 30s margin, stale with a 21m margin.
	assert.True(t, tok.isFreshAt(now, 30*time.Second))
	assert.False(t, tok.isFreshAt(now, 21*time.Minute))

	// Stale once the remaining lifetime dips inside the margin.
	assert.False(t, tok.isFreshAt(now.Add(1171*time.Second), 30*time.Second))
	assert.True(t, tok.isFreshAt(now.Add(1169*time.Second), 30*time.Second))
}

func TestTokenFreshnessEdgeCases(t *testing.T) {
	now := time.Now()

	var nilTok *Token
	assert.False(t, nilTok.isFreshAt(now, 0))

	noAccess := &Token{ExpiresIn: 1200, IssuedAt: now}
	assert.False(t, noAccess.isFreshAt(now, 0))

	expired := &Token{AccessToken: "a", ExpiresIn: 0, IssuedAt: now}
	assert.False(t, expired.isFreshAt(now, 0))

	// A restored token with no recorded issue time counts as stale.
	zeroIssued := &Token{AccessToken: "a", ExpiresIn: 1200}
	assert.False(t, zeroIssued.isFreshAt(now, 30*time.Second))
}

func TestTokenHasScope(t *testing.T) {
	tok := &Token{Scope: []Scope{ScopeOpenID, ScopeTrade}}
	assert.True(t, tok.HasScope(ScopeTrade))
	assert.False(t, tok.HasScope(ScopeMatrix))

	var nilTok *Token
	assert.False(t, nilTok.HasScope(ScopeOpenID))
}
