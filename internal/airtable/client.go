// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/staranto/vcardctl/internal/resource"
)

// DefaultBaseURL is the Airtable REST endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 30 * time.Second
	defaultTimeout      = 30 * time.Second
)

// Client issues requests against one Airtable base. It does no caching.
type Client struct {
	token   string
	baseID  string
	baseURL string
	tables  map[resource.Key]string
	http    *retryablehttp.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, typically a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = hc }
}

// WithRetryMax sets how many times a retryable failure is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithRetryWait bounds the exponential backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithTableNames overrides the default table name of individual resources.
// Empty names are ignored.
func WithTableNames(m map[resource.Key]string) Option {
	return func(c *Client) {
		for k, v := range m {
			if v = strings.TrimSpace(v); v != "" {
				c.tables[k] = v
			}
		}
	}
}

// NewClient returns a Client for baseID authorized with token. A missing
// token or base id is not an error here; calls fail with ErrMissingToken or
// ErrMissingBase instead so callers can degrade.
func NewClient(token, baseID string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = defaultTimeout
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{}

	c := &Client{
		token:   strings.TrimSpace(token),
		baseID:  strings.TrimSpace(baseID),
		baseURL: DefaultBaseURL,
		tables:  map[resource.Key]string{},
		http:    rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseID returns the configured base.
func (c *Client) BaseID() string { return c.baseID }

// Configured returns an error when the token or base id is missing.
func (c *Client) Configured() error {
	if c.token == "" {
		return ErrMissingToken
	}
	if c.baseID == "" {
		return ErrMissingBase
	}
	return nil
}

// TableName resolves the table backing res, honoring overrides.
func (c *Client) TableName(res resource.Key) (string, error) {
	if t, ok := c.tables[res]; ok {
		return t, nil
	}
	if d, ok := resource.Lookup(res); ok {
		return d.Table, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownResource, res)
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type fieldsBody struct {
	Fields any `json:"fields"`
}

// List returns every record of the resource's table, following pagination.
func (c *Client) List(ctx context.Context, res resource.Key, opts ListOptions) ([]Record, error) {
	table, err := c.TableName(res)
	if err != nil {
		return nil, err
	}

	var (
		all    []Record
		offset string
	)
	for {
		q, err := opts.values(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to encode list options: %w", err)
		}

		data, err := c.do(ctx, http.MethodGet, c.tablePath(table), q, nil, "list", res)
		if err != nil {
			log.WithError(err).Debugf("list %s failed", table)
			return nil, err
		}

		var page listResponse
		if err := decode(data, &page, "list", res); err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		log.Debugf("list %s: page of %d, total %d", table, len(page.Records), len(all))

		if page.Offset == "" || (opts.MaxRecords > 0 && len(all) >= opts.MaxRecords) {
			break
		}
		offset = page.Offset
	}

	return all, nil
}

// Find returns the records matching an Airtable formula, for example
// `{Activo} = TRUE()`. The formula is passed through untouched.
func (c *Client) Find(ctx context.Context, res resource.Key, formula string) ([]Record, error) {
	return c.List(ctx, res, ListOptions{FilterFormula: formula})
}

// Get returns one record, or nil when it does not exist or cannot be read.
// The failure is logged, not returned.
func (c *Client) Get(ctx context.Context, res resource.Key, id string) *Record {
	table, err := c.TableName(res)
	if err != nil {
		log.WithError(err).Warnf("get %s/%s", res, id)
		return nil
	}

	data, err := c.do(ctx, http.MethodGet, c.recordPath(table, id), nil, nil, "get", res)
	if err != nil {
		log.WithError(err).Warnf("failed to get record %s from %s", id, table)
		return nil
	}

	var rec Record
	if err := decode(data, &rec, "get", res); err != nil {
		log.WithError(err).Warnf("failed to decode record %s from %s", id, table)
		return nil
	}
	return &rec
}

// Create adds a record. fields is marshaled as the record's fields object.
func (c *Client) Create(ctx context.Context, res resource.Key, fields any) (*Record, error) {
	table, err := c.TableName(res)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPost, c.tablePath(table), nil, fieldsBody{Fields: fields}, "create", res)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := decode(data, &rec, "create", res); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the given fields of a record. Fields not sent are kept.
func (c *Client) Update(ctx context.Context, res resource.Key, id string, fields any) (*Record, error) {
	table, err := c.TableName(res)
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPatch, c.recordPath(table, id), nil, fieldsBody{Fields: fields}, "update", res)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := decode(data, &rec, "update", res); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a record and reports whether Airtable confirmed it. Failures
// are logged and reported as false.
func (c *Client) Delete(ctx context.Context, res resource.Key, id string) bool {
	table, err := c.TableName(res)
	if err != nil {
		log.WithError(err).Warnf("delete %s/%s", res, id)
		return false
	}

	data, err := c.do(ctx, http.MethodDelete, c.recordPath(table, id), nil, nil, "delete", res)
	if err != nil {
		log.WithError(err).Warnf("failed to delete record %s from %s", id, table)
		return false
	}

	var out struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		log.WithError(err).Warnf("failed to decode delete response for %s", id)
		return false
	}
	return out.Deleted
}

func (c *Client) tablePath(table string) string {
	return "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) recordPath(table, id string) string {
	return c.tablePath(table) + "/" + url.PathEscape(id)
}

// do sends one request and returns the body of a 2xx response. Anything else
// becomes a *TransportError.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	q url.Values,
	body any,
	op string,
	res resource.Key,
) ([]byte, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var raw any
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		raw = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("%s %s", method, u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Resource: res, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Resource: res, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		typ, msg := parseEnvelope(data)
		return nil, &TransportError{
			Op:         op,
			Resource:   res,
			StatusCode: resp.StatusCode,
			Type:       typ,
			Message:    msg,
		}
	}

	return data, nil
}

func decode(data []byte, out any, op string, res resource.Key) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{
			Op:         op,
			Resource:   res,
			StatusCode: http.StatusBadGateway,
			Message:    "malformed response",
			Err:        err,
		}
	}
	return nil
}

// checkRetry never retries a 4xx and otherwise defers to the library policy,
// which retries connection errors and 5xx other than 501.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger routes retryablehttp's logging to apex at debug level, with
// retries surfaced as warnings.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...any) { log.WithFields(fields(kv)).Error(msg) }
func (leveledLogger) Info(msg string, kv ...any)  { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...any) { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Warn(msg string, kv ...any)  { log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []any) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
