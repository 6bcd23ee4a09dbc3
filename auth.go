package tradestation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production brokerage API host.
	DefaultBaseURL = "https://api.tradestation.com/v3"
	// DefaultSigninURL is the identity host for OAuth2 flows.
	DefaultSigninURL = "https://signin.tradestation.com"
	// DefaultRedirectURI is used for the authorization-code exchange unless
	// overridden at build time.
	DefaultRedirectURI = "http://localhost:8080/"
	// MinRefreshMargin is the smallest allowed refresh safety margin.
	MinRefreshMargin = 30 * time.Second
)

// authEngine drives the OAuth2 flows against the identity host. The identity
// host is distinct from the API base URL; both point at the mock server when
// a testing URL is configured.
type authEngine struct {
	httpClient   *http.Client
	signinURL    string
	clientID     string
	clientSecret string
	redirectURI  string
}

// exchange trades an authorization code for a token and stamps IssuedAt.
func (a *authEngine) exchange(ctx context.Context, authorizationCode string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("code", authorizationCode)
	form.Set("redirect_uri", a.redirectURI)
	return a.postToken(ctx, form)
}

// refresh obtains a new token using the current refresh token. The identity
// endpoint may omit refresh_token and scope on refresh; both are carried
// forward from the current token.
func (a *authEngine) refresh(ctx context.Context, current *Token) (*Token, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, ErrTokenConfig("no refresh token available")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("refresh_token", current.RefreshToken)

	tok, err := a.postToken(ctx, form)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = current.RefreshToken
	}
	if len(tok.Scope) == 0 {
		tok.Scope = current.Scope
	}
	return tok, nil
}

func (a *authEngine) postToken(ctx context.Context, form url.Values) (*Token, error) {
	endpoint := a.signinURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ErrTokenConfig(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Code:       CodeTokenConfig,
			Message:    fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			HTTPStatus: resp.StatusCode,
		}
	}

	var tok Token
	if err := tok.UnmarshalJSON(body); err != nil {
		if tsErr, ok := err.(*Error); ok {
			return nil, tsErr
		}
		return nil, &Error{Code: CodeTokenConfig, Message: "malformed token response", Cause: err}
	}
	tok.IssuedAt = time.Now()
	return &tok, nil
}

// authorizeURL builds the hosted authorization URL. state is an opaque value
// echoed back on the redirect for CSRF protection.
func (a *authEngine) authorizeURL(scopes []Scope, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", a.redirectURI)
	q.Set("scope", JoinScopes(scopes))
	q.Set("state", state)
	return a.signinURL + "/authorize?" + q.Encode()
}
