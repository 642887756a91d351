package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/metrics"
)

const maxErrorBody = 256

// Error is a failed control API request: either the transport failed
// (Status is 0) or the controller answered with a non-2xx status.
type Error struct {
	Method   string
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// Client issues control API requests. Every call is a single request: no
// retry, no queuing and no deduplication.
type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Logger
	metrics *metrics.Metrics
}

// New creates a client for the API rooted at baseURL. A zero timeout leaves
// requests bounded only by their context.
func New(baseURL string, timeout time.Duration, logger *log.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
		metrics: m,
	}
}

// Send issues one request with body encoded as JSON when not nil.
func (c *Client) Send(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		c.metrics.GatewayRequest(route(endpoint), "error")
		c.log.Warn("Request %s %s failed: %v", method, endpoint, err)
		return nil, err
	}
	c.metrics.GatewayRequest(route(endpoint), "ok")
	c.log.Debug("Request %s %s: %d", method, endpoint, resp.Status)
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	fail := func(status int, err error) error {
		return &Error{Method: method, Endpoint: endpoint, Status: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fail(0, errors.Wrap(err, "encode request body"))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fail(0, errors.Wrap(err, "create request"))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(0, errors.Wrap(err, "execute request"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, errors.Wrap(err, "read response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fail(resp.StatusCode, errors.New(msg))
	}

	return &Response{Status: resp.StatusCode, Body: data}, nil
}
