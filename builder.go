package tradestation

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/quantpulse/tradestation-go/internal/observability"
)

// Builder is the first step of client construction. The build order is
// encoded in the type system: Credentials yields a CredentialedBuilder, a
// token source yields an AuthorizedBuilder, and only an AuthorizedBuilder
// can Build. Skipping a step does not compile.
type Builder struct {
	httpClient *http.Client
}

// NewBuilder starts building a client.
func NewBuilder() *Builder {
	return &Builder{httpClient: newHTTPClient()}
}

// newHTTPClient configures the shared connection pool. No overall timeout is
// set: streams hold their response body open indefinitely, so deadlines are
// the caller's via context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// HTTPClient overrides the HTTP client used for all requests, including the
// identity endpoint.
func (b *Builder) HTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// Credentials sets the API key pair and moves to the next build step.
func (b *Builder) Credentials(clientID, clientSecret string) *CredentialedBuilder {
	return &CredentialedBuilder{
		httpClient:   b.httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  DefaultRedirectURI,
		scopes:       []Scope{ScopeOpenID, ScopeOfflineAccess},
		baseURL:      DefaultBaseURL,
		signinURL:    DefaultSigninURL,
		margin:       MinRefreshMargin,
	}
}

// TestingURL builds toward a client aimed at a mock server with placeholder
// credentials and a placeholder token, for tests that never touch the
// identity endpoint.
func (b *Builder) TestingURL(url string) *AuthorizedBuilder {
	return b.Credentials("NO_CLIENT_ID_IN_TEST_MODE", "NO_CLIENT_SECRET_IN_TEST_MODE").
		TestingURL(url).
		Token(Token{
			AccessToken:  "NO_ACCESS_TOKEN_IN_TEST_MODE",
			RefreshToken: "NO_REFRESH_TOKEN_IN_TEST_MODE",
			IDToken:      "NO_ID_TOKEN_IN_TEST_MODE",
			TokenType:    "TESTING",
			ExpiresIn:    9999,
			IssuedAt:     time.Now(),
		})
}

// CredentialedBuilder holds credentials and awaits a token source: either an
// authorization-code exchange or an existing token.
type CredentialedBuilder struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []Scope
	baseURL      string
	signinURL    string
	margin       time.Duration
	traceTo      io.Writer
}

// RedirectURI overrides the redirect URI used in the authorization flow.
func (b *CredentialedBuilder) RedirectURI(uri string) *CredentialedBuilder {
	b.redirectURI = uri
	return b
}

// Scopes sets the requested scope set. openid and offline_access are always
// requested; they are added when missing.
func (b *CredentialedBuilder) Scopes(scopes ...Scope) *CredentialedBuilder {
	out := []Scope{ScopeOpenID, ScopeOfflineAccess}
	for _, sc := range scopes {
		if sc == ScopeOpenID || sc == ScopeOfflineAccess {
			continue
		}
		out = append(out, sc)
	}
	b.scopes = out
	return b
}

// TestingURL substitutes a caller-provided host for both the API base URL
// and the identity host. Only for use against a mock server.
func (b *CredentialedBuilder) TestingURL(url string) *CredentialedBuilder {
	b.baseURL = url
	b.signinURL = url
	return b
}

// SigninURL overrides the identity host used for the authorization and
// token endpoints, leaving the API base URL alone.
func (b *CredentialedBuilder) SigninURL(url string) *CredentialedBuilder {
	b.signinURL = url
	return b
}

// Trace enables request and stream tracing to w, commonly os.Stderr.
// Sensitive query parameters are scrubbed.
func (b *CredentialedBuilder) Trace(w io.Writer) *CredentialedBuilder {
	b.traceTo = w
	return b
}

// AuthorizeURL returns the hosted authorization URL for the configured
// credentials and scopes. state is an opaque caller value echoed back on the
// redirect.
func (b *CredentialedBuilder) AuthorizeURL(state string) string {
	return b.engine().authorizeURL(b.scopes, state)
}

// Authorize exchanges an authorization code for a token and moves to the
// final build step.
func (b *CredentialedBuilder) Authorize(ctx context.Context, authorizationCode string) (*AuthorizedBuilder, error) {
	tok, err := b.engine().exchange(ctx, authorizationCode)
	if err != nil {
		return nil, err
	}
	return &AuthorizedBuilder{cb: b, token: tok}, nil
}

// Token supplies an existing token, skipping the authorization-code step.
// Tokens restored from caller-side persistence must carry their original
// IssuedAt; a zero IssuedAt is treated as already stale.
func (b *CredentialedBuilder) Token(tok Token) *AuthorizedBuilder {
	return &AuthorizedBuilder{cb: b, token: &tok}
}

func (b *CredentialedBuilder) engine() *authEngine {
	return &authEngine{
		httpClient:   b.httpClient,
		signinURL:    b.signinURL,
		clientID:     b.clientID,
		clientSecret: b.clientSecret,
		redirectURI:  b.redirectURI,
	}
}

// AuthorizedBuilder is the final build step.
type AuthorizedBuilder struct {
	cb    *CredentialedBuilder
	token *Token
}

// RefreshMargin sets the safety margin subtracted from a token's lifetime
// when deciding freshness. Margins below 30 s are raised to 30 s.
func (b *AuthorizedBuilder) RefreshMargin(d time.Duration) *AuthorizedBuilder {
	if d < MinRefreshMargin {
		d = MinRefreshMargin
	}
	b.cb.margin = d
	return b
}

// Build assembles the client.
func (b *AuthorizedBuilder) Build() (*Client, error) {
	if b.token == nil || b.token.AccessToken == "" {
		return nil, ErrTokenConfig("token has no access token")
	}
	var trace *observability.TraceWriter
	if b.cb.traceTo != nil {
		trace = observability.NewTraceWriterTo(b.cb.traceTo)
	}
	return &Client{
		httpClient: b.cb.httpClient,
		auth:       b.cb.engine(),
		baseURL:    b.cb.baseURL,
		margin:     b.cb.margin,
		trace:      trace,
		token:      b.token,
	}, nil
}
