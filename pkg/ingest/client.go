// Package ingest implements a client for the Snowpipe Streaming REST API.
// A Client authenticates with key-pair JWTs and manages per-pipe channels;
// each append carries an offset token the service persists, which lets the
// streamer resume exactly where the last committed row left off.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/pkg/errors"
	"github.com/alpinedata/chairlift/pkg/logger"
	"github.com/alpinedata/chairlift/pkg/metrics"
)

const (
	defaultMaxRetries    = 5
	defaultRetryBaseWait = 500 * time.Millisecond
	defaultRetryMaxWait  = 30 * time.Second
	userAgent            = "chairlift/1.0"
)

// Config configures an ingest Client.
type Config struct {
	// Account is the Snowflake account identifier
	Account string
	// User is the service user holding the registered public key
	User string
	// PrivateKey is the RSA key, PEM or bare base64 body
	PrivateKey string
	// BaseURL overrides the derived account URL (used by tests)
	BaseURL string
	// Database and Schema qualify every pipe the client touches
	Database string
	Schema   string
	// GzipThreshold compresses request bodies larger than this many bytes;
	// zero disables compression
	GzipThreshold int
	// MaxRetries bounds retry attempts on 429 and 5xx responses
	MaxRetries int
}

// Client talks to the Snowpipe Streaming REST API for one database.schema.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens *tokenSource
	log    *zap.Logger

	// retryBaseWait seeds the backoff; shortened in tests
	retryBaseWait time.Duration
}

// NewClient validates the credentials and returns a ready Client. The
// private key is parsed eagerly so a malformed key fails at startup rather
// than on the first append.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Account == "" || cfg.User == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "account and user are required")
	}
	if cfg.Database == "" || cfg.Schema == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "database and schema are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.snowflakecomputing.com", strings.ToLower(cfg.Account))
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	tokens, err := newTokenSource(cfg.Account, cfg.User, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:           cfg,
		tokens:        tokens,
		retryBaseWait: defaultRetryBaseWait,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logger.Get().With(zap.String("component", "ingest_client")),
	}, nil
}

// Close releases idle connections. Open channels become unusable.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// pipeURL builds /v2/streaming/databases/{db}/schemas/{schema}/pipes/{pipe}
// plus the given suffix, percent-escaping each path segment.
func (c *Client) pipeURL(pipe, suffix string) string {
	return fmt.Sprintf("%s/v2/streaming/databases/%s/schemas/%s/pipes/%s%s",
		c.cfg.BaseURL,
		url.PathEscape(c.cfg.Database),
		url.PathEscape(c.cfg.Schema),
		url.PathEscape(pipe),
		suffix,
	)
}

// dataURL builds the rows endpoint, which lives under /v2/streaming/data.
func (c *Client) dataURL(pipe, channel string, query url.Values) string {
	return fmt.Sprintf("%s/v2/streaming/data/databases/%s/schemas/%s/pipes/%s/channels/%s/rows?%s",
		c.cfg.BaseURL,
		url.PathEscape(c.cfg.Database),
		url.PathEscape(c.cfg.Schema),
		url.PathEscape(pipe),
		url.PathEscape(channel),
		query.Encode(),
	)
}

// do issues the request with auth headers and retries 429 and 5xx responses
// with exponential backoff and jitter. body may be nil; when it exceeds the
// gzip threshold it is compressed and Content-Encoding set.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	compressed := false
	if c.cfg.GzipThreshold > 0 && len(body) > c.cfg.GzipThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "gzip write failed")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "gzip close failed")
		}
		body = buf.Bytes()
		compressed = true
	}

	wait := c.retryBaseWait
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(wait) / 2))
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "request cancelled during backoff")
			case <-time.After(wait + jitter):
			}
			wait *= 2
			if wait > defaultRetryMaxWait {
				wait = defaultRetryMaxWait
			}
		}

		respBody, retryable, err := c.attempt(ctx, method, rawURL, body, compressed)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("ingest request failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

// attempt performs a single request. retryable reports whether the failure
// class is worth another attempt.
func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, compressed bool) (respBody []byte, retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build request")
	}

	bearer, err := c.tokens.Bearer(time.Now())
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-Snowflake-Authorization-Token-Type", "KEYPAIR_JWT")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if compressed {
			req.Header.Set("Content-Encoding", "gzip")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrorTypeConnection, "ingest request failed")
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.Errors.WithLabelValues("ingest", string(errors.ErrorTypeRateLimit)).Inc()
		return nil, true, errors.New(errors.ErrorTypeRateLimit, "ingest service throttled the request").
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.Errors.WithLabelValues("ingest", string(errors.ErrorTypeAuthentication)).Inc()
		return nil, false, errors.New(errors.ErrorTypeAuthentication, "ingest service rejected the credentials").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(respBody))
	case resp.StatusCode >= 500:
		metrics.Errors.WithLabelValues("ingest", string(errors.ErrorTypeConnection)).Inc()
		return nil, true, errors.New(errors.ErrorTypeConnection, "ingest service error").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(respBody))
	default:
		metrics.Errors.WithLabelValues("ingest", string(errors.ErrorTypeData)).Inc()
		return nil, false, errors.New(errors.ErrorTypeData, "ingest request rejected").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(respBody))
	}
}
