package api

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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/colthorp/likes-cli-go/internal/core"
)

const maxErrorBody = 300

// DefaultClientOptions returns the cooldowns and retry policy the Likes API
// expects: one /activity call per 121s, 0.6s between calls elsewhere.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:         core.APIBaseURL,
		Timeout:         60 * time.Second,
		DefaultCooldown: core.DefaultCooldown,
		Cooldowns:       map[string]time.Duration{"/activity": core.ActivityCooldown},
		RateLimitWait:   core.DefaultRateLimitWait,
		MaxAttempts:     core.MaxAttempts,
	}
}

// Client is the HTTP wrapper around the Likes REST API. Every path has its
// own cooldown limiter; 429 responses are retried after a fixed wait.
type Client struct {
	opts       ClientOptions
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a new API client. Zero cooldowns disable waiting.
func NewClient(opts ClientOptions, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = core.APIBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = core.MaxAttempts
	}
	if logger == nil {
		logger = core.DiscardLogger()
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger.With("component", "api"),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Do performs a request and decodes the JSON payload into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	target := c.opts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	c.logger.Debug("request", "method", method, "url", target)

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		if err := c.waitCooldown(ctx, path); err != nil {
			return nil, backoff.Permanent(err)
		}
		data, err := c.send(ctx, method, target, path, payload)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return data, nil
	}

	var policy backoff.BackOff = backoff.NewConstantBackOff(c.retryWait(path))
	policy = backoff.WithMaxRetries(policy, uint64(c.opts.MaxAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	data, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("rate limited, retrying",
			"path", path, "wait", wait, "attempt", attempt, "max_attempts", c.opts.MaxAttempts)
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %w", ErrUnavailable, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, target, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %w", ErrUnavailable, path, err)
	}
	c.logger.Debug("response", "path", path, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Message: msg}
	}
	return data, nil
}

// waitCooldown blocks until the path's limiter admits another call.
func (c *Client) waitCooldown(ctx context.Context, path string) error {
	r := c.limiter(path).Reserve()
	if !r.OK() {
		return nil
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	if delay > core.CooldownNoticeAfter {
		c.logger.Warn("rate limit: waiting", "path", path, "wait", delay.Round(time.Second))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) limiter(path string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.limiters[path]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(c.cooldown(path)), 1)
	c.limiters[path] = l
	return l
}

func (c *Client) cooldown(path string) time.Duration {
	if d, ok := c.opts.Cooldowns[path]; ok {
		return d
	}
	return c.opts.DefaultCooldown
}

// retryWait is the pause after a 429: the path's own cooldown when it has
// one, the general rate-limit wait otherwise.
func (c *Client) retryWait(path string) time.Duration {
	if d, ok := c.opts.Cooldowns[path]; ok {
		return d
	}
	return c.opts.RateLimitWait
}
