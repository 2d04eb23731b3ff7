// Package apiclient talks to the xiangqi HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/xiangqi-server/pkg/xqdto"
)

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	token   string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Guest registers a player and keeps the returned token for later calls.
// 이후 요청에는 Authorization 헤더로 토큰이 붙는다.
func (c *Client) Guest(ctx context.Context, username, displayName string) (*xqdto.GuestResponse, error) {
	var resp xqdto.GuestResponse
	req := xqdto.GuestRequest{Username: username, DisplayName: displayName}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/auth/guest", req, &resp, false); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Room(ctx context.Context, idOrCode string) (*xqdto.RoomView, error) {
	var out xqdto.RoomView
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/rooms/"+url.PathEscape(idOrCode), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Snapshot(ctx context.Context, idOrCode string) (*xqdto.GameView, error) {
	var out xqdto.SnapshotResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/rooms/"+url.PathEscape(idOrCode)+"/game", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Game, nil
}

// Move submits a move in coordinate notation such as "e3e4".
func (c *Client) Move(ctx context.Context, idOrCode, move string) (*xqdto.GameView, error) {
	var out xqdto.GameView
	req := xqdto.MoveRequest{Move: move}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(idOrCode)+"/move", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError is a non-2xx answer. Domain carries the decoded body when the
// server sent one.
type APIError struct {
	Status int
	Domain xqdto.DomainError
	Game   *xqdto.GameView
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xiangqi api error: status=%d code=%s message=%s", e.Status, e.Domain.Code, e.Domain.Message)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			var body xqdto.ErrorResponse
			if json.Unmarshal(resp.Body(), &body) == nil {
				apiErr.Domain = body.Error
				apiErr.Game = body.Game
			}
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}

		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
