package recordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagarc03/mediarelay"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of an upstream body is buffered.
const maxBodyBytes = 10 << 20

// Config holds the Record API connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client performs requests against the Record API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout. The timeout is applied to a copy,
// so a client passed through WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		cl := *c.httpClient
		cl.Timeout = timeout
		c.httpClient = &cl
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// List fetches all records.
func (c *Client) List(ctx context.Context) (mediarelay.UpstreamResponse, error) {
	return c.do(ctx, http.MethodGet, c.collectionURL(nil), nil)
}

// FindByEmail fetches records filtered by email.
func (c *Client) FindByEmail(ctx context.Context, email string) (mediarelay.UpstreamResponse, error) {
	query := url.Values{}
	query.Set("email", email)
	return c.do(ctx, http.MethodGet, c.collectionURL(query), nil)
}

// Create submits a new record as JSON.
func (c *Client) Create(ctx context.Context, rec mediarelay.UserRecord) (mediarelay.UpstreamResponse, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return mediarelay.UpstreamResponse{}, fmt.Errorf("encode record: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.collectionURL(nil), body)
}

// Get fetches a record by id.
func (c *Client) Get(ctx context.Context, id string) (mediarelay.UpstreamResponse, error) {
	u, err := c.recordURL(id)
	if err != nil {
		return mediarelay.UpstreamResponse{}, err
	}
	return c.do(ctx, http.MethodGet, u, nil)
}

// Update replaces a record by id with the given JSON document.
func (c *Client) Update(ctx context.Context, id string, body json.RawMessage) (mediarelay.UpstreamResponse, error) {
	u, err := c.recordURL(id)
	if err != nil {
		return mediarelay.UpstreamResponse{}, err
	}
	return c.do(ctx, http.MethodPut, u, body)
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, id string) (mediarelay.UpstreamResponse, error) {
	u, err := c.recordURL(id)
	if err != nil {
		return mediarelay.UpstreamResponse{}, err
	}
	return c.do(ctx, http.MethodDelete, u, nil)
}

func (c *Client) collectionURL(query url.Values) string {
	u := *c.base
	if query != nil {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) recordURL(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	return c.base.JoinPath(id).String(), nil
}

// do executes a single request and buffers the response body.
func (c *Client) do(ctx context.Context, method, target string, body []byte) (mediarelay.UpstreamResponse, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return mediarelay.UpstreamResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mediarelay.UpstreamResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return mediarelay.UpstreamResponse{}, fmt.Errorf("read response: %w", err)
	}

	return mediarelay.UpstreamResponse{StatusCode: resp.StatusCode, Body: data}, nil
}
