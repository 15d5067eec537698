// Package solr is a client for the administrative, schema and query APIs of
// an Apache Solr cluster, in either SolrCloud or standalone mode.
package solr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexer/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "kailas-indexer/1.0"
	maxErrorBody   = 2048
)

// Config holds connection parameters for a Solr cluster.
type Config struct {
	URL               string // base URL including the context path, e.g. http://localhost:8983/solr/
	Username          string
	Password          string
	Timeout           time.Duration
	MaxRetries        uint // retries of idempotent reads
	NumShards         int
	ReplicationFactor int
	HTTPClient        *http.Client
}

// Client talks to one Solr cluster over HTTP.
type Client struct {
	base       *url.URL
	http       *http.Client
	cfg        Config
	newBackOff func() backoff.BackOff
}

// NewClient creates a Solr client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("solr url is required")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse solr url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("solr url must be http or https, got %q", cfg.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base: base,
		http: hc,
		cfg:  cfg,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}, nil
}

// get performs an idempotent read, retrying transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, status, err := c.roundTrip(ctx, http.MethodGet, path, params, "", nil)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		if err := checkResponse(op, status, body); err != nil {
			if status >= 400 && status < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.cfg.MaxRetries+1),
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // already *Error
	}
	return body, nil
}

// post performs a single non-idempotent call.
func (c *Client) post(
	ctx context.Context, op, path string, params url.Values, contentType string, payload []byte,
) ([]byte, error) {
	body, status, err := c.roundTrip(ctx, http.MethodPost, path, params, contentType, payload)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if err := checkResponse(op, status, body); err != nil {
		return nil, err
	}
	return body, nil
}

// call performs a single request and returns the raw body and status without
// interpreting engine-level failures.
func (c *Client) call(ctx context.Context, op, path string, params url.Values) ([]byte, int, error) {
	body, status, err := c.roundTrip(ctx, http.MethodGet, path, params, "", nil)
	if err != nil {
		return nil, 0, &Error{Op: op, Err: err}
	}
	return body, status, nil
}

func (c *Client) roundTrip(
	ctx context.Context, method, path string, params url.Values, contentType string, payload []byte,
) ([]byte, int, error) {
	u := c.base.JoinPath(path)
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("wt", "json")
	u.RawQuery = q.Encode()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	logger.FromContext(ctx).Debug("solr request",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return body, resp.StatusCode, nil
}

// checkResponse turns HTTP and engine-level failures into *Error.
func checkResponse(op string, status int, body []byte) error {
	if status < 200 || status >= 300 {
		return &Error{Op: op, Status: status, Body: errorMessage(body)}
	}
	if !gjson.ValidBytes(body) {
		return &Error{Op: op, Status: status, Err: ErrUnexpectedResponse}
	}
	if s := gjson.GetBytes(body, "responseHeader.status").Int(); s != 0 {
		return &Error{Op: op, Status: int(s), Body: errorMessage(body)}
	}
	return nil
}

// errorMessage extracts a readable failure message from a response body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		detail := commandError(body)
		for _, p := range []string{"error.msg", "exception.msg"} {
			if r := gjson.GetBytes(body, p); r.Exists() && r.String() != "" {
				if detail != "" {
					return r.String() + ": " + detail
				}
				return r.String()
			}
		}
		if detail != "" {
			return detail
		}
		var failure string
		gjson.GetBytes(body, "failure").ForEach(func(_, v gjson.Result) bool {
			failure = v.String()
			return false
		})
		if failure != "" {
			return failure
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

// commandError returns the first per-command message of a Schema API failure.
func commandError(body []byte) string {
	var msg string
	for _, p := range []string{"error.details", "errors"} {
		gjson.GetBytes(body, p).ForEach(func(_, cmd gjson.Result) bool {
			msg = strings.TrimSpace(cmd.Get("errorMessages.0").String())
			return msg == ""
		})
		if msg != "" {
			return msg
		}
	}
	return msg
}
