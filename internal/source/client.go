// Package source is the Record Source Client: a thin HTTP accessor for the
// record backend. It has no retry or caching logic of its own.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/universal/internal/record"
)

const userAgent = "Universal/1.0"

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// Notification is the payload pushed to one target application.
type Notification struct {
	Title       string
	Description string
	AppName     string
	URL         string
}

// Target is a registered application that can receive notifications.
type Target struct {
	Name    string `json:"name"`
	AppName string `json:"appName"`
}

// Client talks to the record backend at BaseURL.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout. d <= 0 keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.client
			hc.Timeout = d
			c.client = &hc
		}
	}
}

// WithRateLimit caps outgoing requests to rps per second. rps <= 0 disables
// the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches page n (1-based) of dataSource.
// GET {base}/{dataSource}/api/byPage/{n}; the body must be a bare array.
func (c *Client) List(ctx context.Context, dataSource string, page uint) ([]record.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/api/byPage/%d", c.baseURL, url.PathEscape(dataSource), page)
	body, err := c.do(ctx, "list "+dataSource, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var recs []record.Record
	if err := json.Unmarshal(body, &recs); err != nil || recs == nil {
		return nil, fmt.Errorf("list %s page %d: %w", dataSource, page, ErrShape)
	}
	return recs, nil
}

// ListAll fetches the whole collection for dataSource.
// GET {base}/{dataSource}/api; accepts a bare array or {"data": [...]}.
func (c *Client) ListAll(ctx context.Context, dataSource string) ([]record.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/api", c.baseURL, url.PathEscape(dataSource))
	body, err := c.do(ctx, "list all "+dataSource, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	recs, err := decodeCollection[record.Record](body)
	if err != nil {
		return nil, fmt.Errorf("list all %s: %w", dataSource, err)
	}
	return recs, nil
}

// Update writes patch to the record identified by id.
// PATCH {base}/{dataSource}/api with a multipart body holding id and each
// changed field. Returns the updated record.
func (c *Client) Update(ctx context.Context, dataSource string, id any, patch map[string]any) (record.Record, error) {
	fields := make(map[string]string, len(patch)+1)
	for k, v := range patch {
		fields[k] = formValue(v)
	}
	fields["id"] = record.Format(id)

	payload, contentType, err := multipartBody(fields)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", dataSource, err)
	}

	endpoint := fmt.Sprintf("%s/%s/api", c.baseURL, url.PathEscape(dataSource))
	body, err := c.do(ctx, "update "+dataSource, http.MethodPatch, endpoint, payload, contentType)
	if err != nil {
		return nil, err
	}

	var rec record.Record
	if err := json.Unmarshal(body, &rec); err != nil || rec == nil {
		return nil, fmt.Errorf("update %s: %w", dataSource, ErrShape)
	}
	return rec, nil
}

// Notify pushes n to one target application.
// POST {base}/notification/api with multipart title, description, appName, url.
// Success is any 2xx with a JSON body.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	payload, contentType, err := multipartBody(map[string]string{
		"title":       n.Title,
		"description": n.Description,
		"appName":     n.AppName,
		"url":         n.URL,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", n.AppName, err)
	}

	body, err := c.do(ctx, "notify "+n.AppName, http.MethodPost, c.baseURL+"/notification/api", payload, contentType)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("notify %s: %w", n.AppName, ErrShape)
	}
	return nil
}

// Targets lists the applications registered for notifications.
// GET {base}/notification/api/targets; bare array or {"data": [...]}.
func (c *Client) Targets(ctx context.Context) ([]Target, error) {
	body, err := c.do(ctx, "list targets", http.MethodGet, c.baseURL+"/notification/api/targets", nil, "")
	if err != nil {
		return nil, err
	}
	targets, err := decodeCollection[Target](body)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return targets, nil
}

// do performs one request and returns the body of a 2xx response.
// Everything else becomes a *TransportError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("rate limiter wait failed: %w", err)}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Message: bodyMessage(body)}
	}
	return body, nil
}

// decodeCollection accepts a bare JSON array or an object with a "data" array.
func decodeCollection[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrShape
	}

	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShape, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	case '{':
		var wrapped struct {
			Data *[]T `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil || wrapped.Data == nil {
			return nil, ErrShape
		}
		if *wrapped.Data == nil {
			return []T{}, nil
		}
		return *wrapped.Data, nil
	}
	return nil, ErrShape
}

// multipartBody encodes fields in a stable order.
func multipartBody(fields map[string]string) ([]byte, string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// formValue renders a patch value as a form field. Non-scalar values are
// sent as JSON.
func formValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64, float32, int, int64, int32, uint, uint64:
		return record.Format(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}
