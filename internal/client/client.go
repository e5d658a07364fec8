// Package client is a typed client for the trgovina REST API.
//
// Every request carries the session's access token. A 401 triggers one
// token refresh and one replay of the request; when the refresh fails the
// session is cleared and calls fail with ErrSessionExpired.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/session"
)

// DefaultTimeout bounds a whole call, including a token refresh and replay.
const DefaultTimeout = 15 * time.Second

// Config holds the connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Option customises a Client.
type Option func(*options)

type options struct {
	tokens     session.TokenStore
	log        *zap.Logger
	notify     func(Notice)
	expired    func()
	httpClient *http.Client
}

// WithTokenStore sets where tokens are read from and rotated into.
// Defaults to an in-memory store.
func WithTokenStore(s session.TokenStore) Option {
	return func(o *options) { o.tokens = s }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithNotifier receives the fixed user notices raised for 400, 403, 404
// and 500 responses.
func WithNotifier(fn func(Notice)) Option {
	return func(o *options) { o.notify = fn }
}

// WithSessionExpired is called after a failed refresh has cleared the session.
func WithSessionExpired(fn func()) Option {
	return func(o *options) { o.expired = fn }
}

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped,
// not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Client talks to the API.
type Client struct {
	http   *resty.Client
	rt     *refreshTransport
	tokens session.TokenStore
	log    *zap.Logger
	notify func(Notice)
}

// New builds a client for the API rooted at cfg.BaseURL (e.g.
// "http://localhost:8080/api").
func New(cfg Config, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		o.tokens = session.NewMemoryStore()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	hc := &http.Client{}
	if o.httpClient != nil {
		copied := *o.httpClient
		hc = &copied
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	rt := &refreshTransport{
		base:       base,
		refreshURL: baseURL + refreshPath,
		tokens:     o.tokens,
		log:        o.log,
		expired:    o.expired,
		now:        time.Now,
	}
	hc.Transport = rt

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "trgovina"
	}

	c := &Client{
		rt:     rt,
		tokens: o.tokens,
		log:    o.log,
		notify: o.notify,
	}

	c.http = resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		SetLogger(o.log.Sugar())

	c.http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(headerRequestID) == "" {
			r.SetHeader(headerRequestID, uuid.NewString())
		}
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debug("api call",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()),
			zap.String("request_id", resp.Request.Header.Get(headerRequestID)),
		)
		return nil
	})

	return c
}

// Tokens exposes the client's token store.
func (c *Client) Tokens() session.TokenStore {
	return c.tokens
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

// execute runs req and converts transport failures and error statuses into
// Go errors.
func (c *Client) execute(req *resty.Request, method, path string) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := newAPIError(resp)
		if n, ok := noticeFor(apiErr.Status); ok && c.notify != nil {
			c.notify(n)
		}
		c.log.Debug("api error",
			zap.Int("status", apiErr.Status),
			zap.String("error", apiErr.Message),
			zap.String("request_id", apiErr.RequestID),
		)
		return resp, apiErr
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q query, out any) error {
	req := c.request(ctx).SetResult(out)
	if len(q) > 0 {
		req.SetQueryParams(q)
	}
	_, err := c.execute(req, http.MethodGet, path)
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	req := c.request(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	_, err := c.execute(req, method, path)
	return err
}

// query collects non-zero query parameters.
type query map[string]string

func (q query) id(key string, v int64) query {
	if v != 0 {
		q[key] = strconv.FormatInt(v, 10)
	}
	return q
}

func (q query) text(key, v string) query {
	if v != "" {
		q[key] = v
	}
	return q
}

func (q query) flag(key string, v bool) query {
	if v {
		q[key] = "true"
	}
	return q
}

func (q query) at(key string, t time.Time) query {
	if !t.IsZero() {
		q[key] = t.UTC().Format(time.RFC3339)
	}
	return q
}

func idPath(prefix string, id int64, suffix ...string) string {
	p := prefix + strconv.FormatInt(id, 10) + "/"
	for _, s := range suffix {
		p += s + "/"
	}
	return p
}
