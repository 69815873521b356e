package api

import (
	"bytes"
	"context"
	"errors"
	"folio/internal/expr"
	"folio/internal/ports"
	"folio/internal/session"
	"folio/internal/types"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHttpTimeout        = 30 * time.Second
	defaultHttpConnectTimeout = 5 * time.Second
	defaultHttpTlsTimeout     = 5 * time.Second

	maxResponseBytes = 8 << 20
	uploadPath       = "/upload"
)

func defaultHttpClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Client talks to the admin REST API. It attaches the bearer token, retries transport
// failures with exponential backoff and refreshes the token once on 401.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  ports.TokenSource
	signal  *session.Signal
	retry   types.RetryConfig

	codeExpr    string
	messageExpr string

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTokenSource(ts ports.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithSignal sets the signal that receives logout notifications.
func WithSignal(s *session.Signal) Option {
	return func(c *Client) { c.signal = s }
}

func WithRetry(r types.RetryConfig) Option {
	return func(c *Client) { c.retry = r }
}

// WithErrorExprs sets the JMESPath expressions used to read code and message from
// error bodies.
func WithErrorExprs(codeExpr, messageExpr string) Option {
	return func(c *Client) {
		c.codeExpr = codeExpr
		c.messageExpr = messageExpr
	}
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    defaultHttpClient(defaultHttpTimeout),
		signal:  &session.Signal{},
		retry: types.RetryConfig{
			MaxRetries:  types.DefaultMaxRetries,
			BaseDelayMS: types.DefaultBaseDelayMS,
			MaxDelayMS:  types.DefaultMaxDelayMS,
		},
		codeExpr:    types.DefaultErrorCodeExpr,
		messageExpr: types.DefaultErrorMessageExpr,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the api, retry and errors sections of cfg.
func NewClientFromConfig(cfg types.Config, tokens ports.TokenSource, signal *session.Signal) *Client {
	opts := []Option{
		WithTokenSource(tokens),
		WithRetry(cfg.Retry),
		WithHTTPClient(defaultHttpClient(time.Duration(cfg.API.TimeoutSeconds) * time.Second)),
	}
	if signal != nil {
		opts = append(opts, WithSignal(signal))
	}
	if cfg.Errors.CodeExpr != "" && cfg.Errors.MessageExpr != "" {
		opts = append(opts, WithErrorExprs(cfg.Errors.CodeExpr, cfg.Errors.MessageExpr))
	}
	return NewClient(cfg.API.BaseURL, opts...)
}

// Signal returns the logout signal of the client.
func (c *Client) Signal() *session.Signal { return c.signal }

type requestOptions struct {
	skipAuth bool
}

type RequestOption func(*requestOptions)

// SkipAuth sends the request without an Authorization header.
func SkipAuth() RequestOption {
	return func(o *requestOptions) { o.skipAuth = true }
}

// Do sends a JSON request to the server-relative path and decodes the reply into out.
// body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any, opts ...RequestOption) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	build := func(ctx context.Context) (*http.Request, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
	return c.send(ctx, build, out, opts...)
}

// Upload posts the content of r as multipart field "file" to /upload.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, opts ...RequestOption) (types.UploadResult, error) {
	var out types.UploadResult
	payload, contentType, err := multipartBody(filename, r)
	if err != nil {
		return out, err
	}
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(uploadPath), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
	err = c.send(ctx, build, &out, opts...)
	return out, err
}

type requestBuilder func(ctx context.Context) (*http.Request, error)

// send runs the auth protocol around roundTrip: attach the token, and on 401 refresh
// exactly once and retry once before logging out.
func (c *Client) send(ctx context.Context, build requestBuilder, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	token := ""
	if !ro.skipAuth {
		if c.tokens != nil {
			var err error
			token, err = c.tokens.Token(ctx)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				// a credential existed but could not be renewed
				log.WithError(err).Info("failed to obtain access token")
				return c.logout(types.ReasonSessionExpired)
			}
		}
		if token == "" {
			return c.logout(types.ReasonNoToken)
		}
	}

	resp, err := c.roundTrip(ctx, build, token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return c.decode(resp, out)
	}
	discard(resp)
	if ro.skipAuth {
		return &types.UnauthorizedError{Reason: types.ReasonUnauthorized}
	}

	token, err = c.tokens.Refresh(ctx)
	if err != nil || token == "" {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Info("token refresh failed")
		return c.logout(types.ReasonSessionExpired)
	}
	resp, err = c.roundTrip(ctx, build, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return c.logout(types.ReasonSessionExpired)
	}
	return c.decode(resp, out)
}

// roundTrip sends the request, retrying transport errors up to retry.MaxRetries times.
// HTTP error statuses are returned as responses and never retried here.
func (c *Client) roundTrip(ctx context.Context, build requestBuilder, token string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.http.Do(req)
		if err == nil {
			if attempt > 0 {
				log.WithFields(log.Fields{
					"method":  req.Method,
					"path":    req.URL.Path,
					"attempt": attempt + 1,
				}).Info("request succeeded after retry")
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.retry.MaxRetries {
			return nil, &types.NetworkError{Attempts: attempt + 1, Err: err}
		}
		delay := Backoff(c.retry, attempt)
		log.WithError(err).WithFields(log.Fields{
			"method":  req.Method,
			"path":    req.URL.Path,
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("request failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// Backoff returns the delay before retry number attempt (0 based): base * 2^attempt,
// capped at the configured maximum.
func Backoff(r types.RetryConfig, attempt int) time.Duration {
	d := r.BaseDelay()
	maxDelay := r.MaxDelay()
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp.StatusCode, b)
	}
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// apiError reads code and message from a JSON error body. Anything undecodable falls
// back to the status text.
func (c *Client) apiError(status int, body []byte) error {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return types.NewAPIError(status, "", "")
	}
	var code, message string
	if v, err := expr.EvalString(c.codeExpr, payload); err == nil && v != nil {
		code = *v
	}
	if v, err := expr.EvalString(c.messageExpr, payload); err == nil && v != nil {
		message = *v
	}
	return types.NewAPIError(status, code, message)
}

func (c *Client) logout(reason types.Reason) error {
	if c.signal != nil {
		c.signal.Emit(reason)
	}
	return &types.UnauthorizedError{Reason: reason}
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryable reports whether err is worth offering a retry affordance for.
func IsRetryable(err error) bool {
	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return errors.Is(err, types.ErrNetwork)
}
