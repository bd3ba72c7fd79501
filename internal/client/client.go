// Package client talks to the /admin/pretrip boundary of a pretrip server.
//
// Client is a thin JSON wrapper over the four boundary endpoints. Any
// non-2xx status or undecodable body surfaces as a *TransportError; nothing
// is retried. Controller layers the ingestion flow on top: validate the
// header remotely, group locally, then submit the edited session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// ErrNameExists is returned by Submit when the server reports a name
// conflict and the payload did not ask for an override.
var ErrNameExists = errors.New("blueprint name already exists")

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 4 << 20

// Config is passed explicitly to New; there is no package-level state.
type Config struct {
	BaseURL string        // Server root, e.g. http://localhost:8080
	Token   string        // API token sent as a bearer token; empty sends none
	Timeout time.Duration // Per-request timeout
}

// TransportError reports a failed exchange with the backend.
type TransportError struct {
	Op        string // Endpoint operation, e.g. "validate headers"
	Status    int    // HTTP status, 0 when no response was received
	Code      string // Server error code, when the body carried one
	Message   string // Server or transport message
	Malformed bool   // The response body could not be decoded
	Err       error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("backend request failed: ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Malformed {
		b.WriteString(": malformed response")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// SubmitResult is the server's answer to a payload submission.
type SubmitResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Exists   bool   `json:"exists"`
	Items    int    `json:"items,omitempty"`
	Replaced bool   `json:"replaced,omitempty"`
}

// Client calls the pretrip admin endpoints.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		base:  u,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// RequiredColumns fetches the server's required column set.
func (c *Client) RequiredColumns(ctx context.Context) ([]string, error) {
	var resp struct {
		Columns []string `json:"columns"`
	}
	if _, err := c.do(ctx, "required columns", http.MethodGet, "/admin/pretrip/required-columns", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Columns, nil
}

// ValidateHeaders asks the server whether columns satisfy its required set.
// An invalid header is a normal result, not an error.
func (c *Client) ValidateHeaders(ctx context.Context, columns []string) (blueprint.ColumnCheck, error) {
	var check blueprint.ColumnCheck
	body := map[string][]string{"columns": columns}
	if _, err := c.do(ctx, "validate headers", http.MethodPost, "/admin/pretrip/validate-headers", nil, body, &check); err != nil {
		return blueprint.ColumnCheck{}, err
	}
	return check, nil
}

// CheckName reports whether a blueprint with this name is already stored.
func (c *Client) CheckName(ctx context.Context, name string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	q := url.Values{"name": {name}}
	if _, err := c.do(ctx, "check blueprint name", http.MethodGet, "/admin/pretrip/check-blueprint-name", q, nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Submit sends a payload. A name conflict returns the server's result
// together with ErrNameExists.
func (c *Client) Submit(ctx context.Context, p *blueprint.Payload) (SubmitResult, error) {
	var res SubmitResult
	status, err := c.do(ctx, "submit blueprint", http.MethodPost, "/admin/pretrip/blueprint-payload-upload", nil, p, &res, http.StatusConflict)
	if err != nil {
		return SubmitResult{}, err
	}
	if status == http.StatusConflict {
		return res, ErrNameExists
	}
	return res, nil
}

// do performs one JSON exchange. Statuses listed in accept are decoded into
// out like a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any, accept ...int) (int, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, &TransportError{Op: op, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, s := range accept {
		if resp.StatusCode == s {
			ok = true
		}
	}
	if !ok {
		return resp.StatusCode, statusError(op, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, &TransportError{Op: op, Status: resp.StatusCode, Malformed: true, Err: err}
	}
	return resp.StatusCode, nil
}

// statusError builds a TransportError from an error body, tolerating bodies
// that are not JSON.
func statusError(op string, status int, data []byte) *TransportError {
	e := &TransportError{Op: op, Status: status}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		e.Code = body.Code
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
		return e
	}

	e.Message = strings.TrimSpace(string(data))
	if len(e.Message) > 200 {
		e.Message = e.Message[:200]
	}
	return e
}
