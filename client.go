package tradestation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quantpulse/tradestation-go/internal/observability"
)

// Client is an authenticated TradeStation API client. It owns the bearer
// token, refreshing it before expiration with single-flight semantics, and
// issues all one-shot and streaming requests. Construct it with NewBuilder.
type Client struct {
	httpClient *http.Client
	auth       *authEngine
	baseURL    string
	margin     time.Duration
	trace      *observability.TraceWriter

	mu           sync.RWMutex
	token        *Token
	refreshGroup singleflight.Group
}

// Response is an un-decoded API response. Endpoint glue feeds it through
// Decode to apply the success/error envelope.
type Response struct {
	Data       []byte
	StatusCode int
	Headers    http.Header
}

// Token returns a snapshot of the current bearer token.
func (c *Client) Token() Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return Token{}
	}
	return *c.token
}

// BaseURL returns the base URL requests are issued against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) currentToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// accessToken returns an access token that is fresh for at least the
// configured margin, refreshing when needed. Concurrent callers that observe
// a stale token share a single refresh; on failure they all receive the same
// error. The refresh completes before any of them issues its request.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	tok := c.currentToken()
	if tok == nil || tok.AccessToken == "" {
		return "", errInvalidToken()
	}
	if tok.IsFresh(c.margin) {
		return tok.AccessToken, nil
	}
	return c.refreshShared(ctx)
}

func (c *Client) refreshShared(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		// A waiter that lost the race to an already-completed flight
		// re-checks before issuing another refresh.
		if cur := c.currentToken(); cur.IsFresh(c.margin) {
			return cur.AccessToken, nil
		}
		fresh, err := c.auth.refresh(ctx, c.currentToken())
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		c.trace.TokenRefreshed(fresh.ExpiresAt())
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Refresh forces a token refresh regardless of freshness. Concurrent calls
// coalesce into one request.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		fresh, err := c.auth.refresh(ctx, c.currentToken())
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		c.trace.TokenRefreshed(fresh.ExpiresAt())
		return fresh.AccessToken, nil
	})
	return err
}

// Get issues an authenticated GET for the given path fragment.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete issues an authenticated DELETE for the given path fragment.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do runs the request pipeline: token check, single-flight refresh when
// stale, then one HTTP round trip. There is no automatic retry; business
// level duplicates are the caller's concern.
func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, ErrDecode(err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.url(path)
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errTransport(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.trace.RequestStart(method, u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.trace.RequestError(method, u, err)
		return nil, errTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.trace.RequestError(method, u, err)
		return nil, errTransport(err)
	}
	c.trace.RequestDone(method, u, resp.StatusCode, time.Since(start))

	return &Response{Data: data, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
}

// url joins the base URL and a path fragment supplied by endpoint glue.
// Fragments are appended verbatim apart from slash normalization.
func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}
