/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-utilkit/internal/ratelimit"
	"github.com/acronis/go-utilkit/log"
	"github.com/acronis/go-utilkit/retry"
)

// Headers set by Client.
const (
	RequestIDHeader          = "X-Request-ID"
	RetryAttemptNumberHeader = "X-Retry-Attempt"
	UserAgentHeader          = "User-Agent"
)

// maxErrorBodySize limits how much of a non-2xx response body is kept in StatusError.
const maxErrorBodySize = 4 << 10

// Opts represents options for NewWithOpts.
type Opts struct {
	// Transport is used for sending requests. By default, a clone of http.DefaultTransport is used.
	Transport http.RoundTripper

	// Logger is used for logging. By default, log.NewDisabledLogger() is used.
	Logger log.FieldLogger

	// MetricsCollector collects request metrics. Metrics are not collected by default.
	MetricsCollector MetricsCollector

	// RequestType is a type of requests done by the client (e.g., "auth-service"), used in logs and metrics.
	RequestType string

	// UserAgent is set to requests without the User-Agent header.
	UserAgent string

	// RequestIDProvider returns the ID for requests without the X-Request-ID header.
	// By default, a new xid is generated for every request.
	RequestIDProvider func(ctx context.Context) string

	// RetryPolicy overrides the policy built from Config.Retries.
	RetryPolicy retry.Policy

	// Masker hides secrets in the logged URLs. By default, log.DefaultMaskingRules are used.
	Masker log.StringMasker
}

// Client sends HTTP requests with timeout, retries and client-side rate limiting.
type Client struct {
	httpClient           *http.Client
	timeout              time.Duration
	retryPolicy          retry.Policy
	limiter              ratelimit.Limiter
	limitPerHost         bool
	logger               log.FieldLogger
	logEnabled           bool
	slowRequestThreshold time.Duration
	masker               log.StringMasker
	metrics              MetricsCollector
	requestType          string
	userAgent            string
	requestIDProvider    func(ctx context.Context) string
}

// New creates a new Client with the given configuration.
func New(cfg *Config) (*Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new Client with the given configuration and options.
func NewWithOpts(cfg *Config, opts Opts) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative")
	}
	limiter, err := cfg.RateLimits.NewLimiter()
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	c := &Client{
		httpClient:           &http.Client{Transport: transport},
		timeout:              time.Duration(cfg.Timeout),
		retryPolicy:          opts.RetryPolicy,
		limiter:              limiter,
		limitPerHost:         cfg.RateLimits.PerHost,
		logger:               opts.Logger,
		logEnabled:           cfg.Log.Enabled,
		slowRequestThreshold: time.Duration(cfg.Log.SlowRequestThreshold),
		masker:               opts.Masker,
		metrics:              opts.MetricsCollector,
		requestType:          opts.RequestType,
		userAgent:            opts.UserAgent,
		requestIDProvider:    opts.RequestIDProvider,
	}
	if c.retryPolicy == nil {
		c.retryPolicy = cfg.Retries.Policy()
	}
	if c.logger == nil {
		c.logger = log.NewDisabledLogger()
	}
	if c.masker == nil {
		c.masker = log.NewMasker(log.DefaultMaskingRules)
	}
	if c.metrics == nil {
		c.metrics = disabledMetrics{}
	}
	if c.requestIDProvider == nil {
		c.requestIDProvider = func(context.Context) string { return xid.New().String() }
	}
	return c, nil
}

// Do sends the request and returns the response.
//
// Transport errors and responses with 429 or 5xx status codes are retried according to the retry policy.
// When retries are exhausted, the last response is returned without an error, as http.Client does for non-2xx codes.
// The request is aborted with an error wrapping ErrTimeout when Config.Timeout expires.
// The caller must close the response body, the timeout keeps applying until then.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	parentCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	req = req.Clone(ctx)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, c.requestIDProvider(ctx))
	}
	if c.userAgent != "" && req.Header.Get(UserAgentHeader) == "" {
		req.Header.Set(UserAgentHeader, c.userAgent)
	}
	if err := makeBodyRewindable(req); err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s: %w", req.Method, c.maskedURL(req), err)
	}

	var resp *http.Response
	attempts := 0
	doAttempt := func(ctx context.Context) error {
		attemptReq, err := newAttemptRequest(ctx, req, attempts)
		if err != nil {
			return err
		}
		attempts++
		if c.limiter != nil {
			var key string
			if c.limitPerHost {
				key = attemptReq.URL.Host
			}
			if err = ratelimit.Wait(ctx, c.limiter, key); err != nil {
				return fmt.Errorf("wait for rate limiter: %w", err)
			}
		}
		resp, err = c.httpClient.Do(attemptReq)
		if err != nil {
			resp = nil
			return &transportError{err}
		}
		if isRetryableStatus(resp.StatusCode) {
			return errRetryableStatus
		}
		return nil
	}
	isRetryable := func(err error) bool {
		var terr *transportError
		return errors.Is(err, errRetryableStatus) || (errors.As(err, &terr) && ctx.Err() == nil)
	}
	notify := func(err error, attempt int, delay time.Duration) {
		c.metrics.IncRetries(c.requestType)
		if resp != nil {
			drainAndClose(resp.Body)
			resp = nil
		}
		c.logger.Warn(fmt.Sprintf("fetch %s %s failed, retrying in %s (retry attempt %d)",
			req.Method, c.maskedURL(req), delay, attempt), log.Error(err), log.String("request_id", req.Header.Get(RequestIDHeader)))
	}

	err := retry.DoWithRetry(ctx, c.retryPolicy, isRetryable, notify, doAttempt)
	if err != nil && !errors.Is(err, errRetryableStatus) {
		cancel()
		if resp != nil {
			drainAndClose(resp.Body)
		}
		var terr *transportError
		if errors.As(err, &terr) {
			err = terr.err
		}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err // url.Error contains the unmasked URL
		}
		status := StatusLabelError
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parentCtx.Err() == nil {
			status = StatusLabelTimeout
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
		}
		err = fmt.Errorf("%s %s: %w", req.Method, c.maskedURL(req), err)
		c.observe(req, status, startTime, attempts, err)
		return nil, err
	}

	resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	c.observe(req, strconv.Itoa(resp.StatusCode), startTime, attempts, nil)
	return resp, nil
}

// GetJSON sends a GET request and decodes the JSON response body into out.
// Non-2xx responses are reported as *StatusError.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Error("failed to close response body", log.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &StatusError{Method: req.Method, URL: c.maskedURL(req), StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func (c *Client) maskedURL(req *http.Request) string {
	return c.masker.Mask(req.URL.String())
}

func (c *Client) observe(req *http.Request, status string, startTime time.Time, attempts int, err error) {
	elapsed := time.Since(startTime)
	c.metrics.ObserveRequest(c.requestType, req.Method, status, elapsed)
	if !c.logEnabled {
		return
	}

	fields := []log.Field{
		log.String("method", req.Method),
		log.String("url", c.maskedURL(req)),
		log.String("status", status),
		log.Int("attempts", attempts),
		log.String("request_id", req.Header.Get(RequestIDHeader)),
		log.DurationIn(elapsed, time.Millisecond),
	}
	if c.requestType != "" {
		fields = append(fields, log.String("type", c.requestType))
	}
	switch {
	case err != nil:
		c.logger.Error(fmt.Sprintf("fetch %s %s failed", req.Method, c.maskedURL(req)), append(fields, log.Error(err))...)
	case c.slowRequestThreshold > 0 && elapsed >= c.slowRequestThreshold:
		c.logger.Warn(fmt.Sprintf("fetch %s %s is slow", req.Method, c.maskedURL(req)), fields...)
	default:
		c.logger.Info(fmt.Sprintf("fetch %s %s done", req.Method, c.maskedURL(req)), fields...)
	}
}

// makeBodyRewindable makes sure req.GetBody is set, so the body can be sent again on retries.
func makeBodyRewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	closeErr := req.Body.Close()
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close request body: %w", closeErr)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func newAttemptRequest(ctx context.Context, req *http.Request, attemptNum int) (*http.Request, error) {
	attemptReq := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("get request body: %w", err)
		}
		attemptReq.Body = body
	}
	if attemptNum > 0 {
		attemptReq.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attemptNum))
	}
	return attemptReq, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// cancelOnCloseBody releases the request context once the body is closed.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
