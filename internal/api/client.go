// Package api is the REST client for the schedule backend. Every response
// is an envelope {code, data, message}; a call succeeds only on HTTP 200
// with code 200 (or no code at all).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	apiPrefix   = "/api/v1"
	codeSuccess = 200

	// maxErrorBody bounds how much of a failed response is kept in errors.
	maxErrorBody = 512
)

// Client talks to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is copied
// and its transport wrapped with the auth transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for baseURL (scheme and host, optional path
// prefix). An empty token sends no Authorization header.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.httpClient
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	hc.Transport = &authTransport{token: token, base: base}
	c.httpClient = &hc
	return c
}

// authTransport attaches the bearer token and a request id. Token refresh
// belongs to whoever supplies the token.
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.token != "" {
		r.Header.Set("Authorization", "Bearer "+t.token)
	}
	if r.Header.Get("X-Request-ID") == "" {
		r.Header.Set("X-Request-ID", uuid.NewString())
	}
	return t.base.RoundTrip(r)
}

// do performs one request and decodes the envelope's data into out
// (when out is non-nil and data is not null).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + apiPrefix + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
	}

	// Some endpoints (DELETE) answer a bare 200.
	if resp.StatusCode == http.StatusOK && len(bytes.TrimSpace(respBody)) == 0 {
		if out != nil {
			return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Err: errNoData}
		}
		return nil
	}

	var env Envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{Kind: KindStatus, Op: op, Status: resp.StatusCode}
		if decodeErr == nil && env.Message != "" {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = excerpt(respBody)
		}
		return apiErr
	}

	if decodeErr != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Err: decodeErr}
	}
	if env.Code != 0 && env.Code != codeSuccess {
		return &Error{Kind: KindApplication, Op: op, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// errNoData is returned when a create or detail call succeeds without a record.
var errNoData = errors.New("response carried no data")
