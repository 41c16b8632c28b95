// Package api is the CookWorld REST client.
//
// Every call attaches `Authorization: Bearer <token>` when the bound
// TokenSource holds a token and sends unauthenticated otherwise.  Failures
// come back as *Error (logged once here, never swallowed).  The client never
// mutates the session; reacting to an authorization failure is the gate's
// job.
//
// Usage
// -----
//
//	base, _ := api.New(api.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout})
//	cli := base.WithTokens(store)        // per request
//	recipes, err := cli.Recipes(ctx)
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/metrics"
	"github.com/yanizio/cookworld/internal/requestinfo"
)

// maxErrorBody bounds how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

// TokenSource yields the current bearer token.  session.Store satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a plain token to TokenSource.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// StaticToken returns a TokenSource that always yields token.  An empty
// token means unauthenticated.
func StaticToken(token string) TokenSource {
	return TokenFunc(func() (string, bool) { return token, token != "" })
}

// Config configures New.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client // optional; tests pass httptest clients
}

// Client is safe for concurrent use.  Copies made by WithTokens share the
// underlying *http.Client.
type Client struct {
	base   *url.URL
	hc     *http.Client
	tokens TokenSource
}

// New builds an unauthenticated Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q: scheme and host required", cfg.BaseURL)
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, hc: hc, tokens: StaticToken("")}, nil
}

// WithTokens returns a copy bound to ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	if ts == nil {
		ts = StaticToken("")
	}
	cp.tokens = ts
	return &cp
}

// WithToken is WithTokens(StaticToken(token)).
func (c *Client) WithToken(token string) *Client { return c.WithTokens(StaticToken(token)) }

//
// Request plumbing
//

// call describes one backend request.  route is the path template used for
// metrics; path is the expanded form.
type call struct {
	method string
	route  string
	path   string
	query  url.Values
	body   io.Reader
	ctype  string
}

func newCall(method, route string, params ...any) call {
	return call{method: method, route: route, path: expand(route, params...)}
}

func (c call) withJSON(v any) (call, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return c, fmt.Errorf("encode %s body: %w", c.route, err)
	}
	c.body, c.ctype = bytes.NewReader(b), "application/json"
	return c, nil
}

// do sends the call and decodes a JSON body into out (nil discards it).
// 204 and empty bodies leave out untouched.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, cl, &Error{Message: NetworkMessage, Err: err})
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", cl.method, cl.route, err)
	}
	return nil
}

// send dispatches the request and returns the response for any 2xx status.
// Callers close the body.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	u := *c.base
	u.Path = c.base.Path + cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), cl.body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", cl.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.ctype != "" {
		req.Header.Set("Content-Type", cl.ctype)
	}
	if tok, ok := c.tokens.Token(); ok && tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if id := requestinfo.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	metrics.BackendRequestSeconds.WithLabelValues(cl.method, cl.route).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(cl.method, cl.route, "0").Inc()
		return nil, c.fail(ctx, cl, &Error{Message: NetworkMessage, Err: err})
	}
	metrics.BackendRequestsTotal.WithLabelValues(cl.method, cl.route, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.fail(ctx, cl, &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, body),
		})
	}
	return resp, nil
}

// fail logs e and returns it.
func (c *Client) fail(ctx context.Context, cl call, e *Error) error {
	fields := []any{
		"method", cl.method,
		"path", cl.path,
		"status", e.StatusCode,
		"message", e.Message,
	}
	if id := requestinfo.RequestID(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	if e.Err != nil && !errors.Is(e.Err, context.Canceled) {
		fields = append(fields, "err", e.Err)
	}
	zap.S().Warnw("backend request failed", fields...)
	return e
}

// expand substitutes each {param} in route with the next value.  url.URL
// escapes the result when the request is built.
func expand(route string, params ...any) string {
	if len(params) == 0 {
		return route
	}
	var b strings.Builder
	rest := route
	for _, p := range params {
		open := strings.IndexByte(rest, '{')
		end := strings.IndexByte(rest, '}')
		if open < 0 || end < open {
			break
		}
		b.WriteString(rest[:open])
		b.WriteString(fmt.Sprint(p))
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String()
}
