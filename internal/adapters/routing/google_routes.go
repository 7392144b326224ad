package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://routes.googleapis.com"
	computeRoutesAt = "/directions/v2:computeRoutes"
)

type GoogleRoutesConfig struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration // per attempt
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RetryMaxJitter  time.Duration
	RatePerSecond   float64 // zero disables pacing
	Burst           int
	BreakerFailures uint32 // consecutive failed calls before the circuit opens
	BreakerTimeout  time.Duration
}

func DefaultGoogleRoutesConfig() GoogleRoutesConfig {
	return GoogleRoutesConfig{
		BaseURL:         DefaultBaseURL,
		Timeout:         30 * time.Second,
		MaxAttempts:     4,
		RetryBaseDelay:  time.Second,
		RetryMaxJitter:  200 * time.Millisecond,
		RatePerSecond:   10,
		Burst:           5,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// GoogleRoutesClient implements ports.RoutingOracle against the Google Routes API.
//
// Each logical call runs through a circuit breaker, then up to MaxAttempts HTTP attempts
// with a per-attempt timeout and jittered exponential backoff between retryable failures.
// The client is safe for concurrent use.
type GoogleRoutesClient struct {
	session *http.Client
	cfg     GoogleRoutesConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	jitter  func(max time.Duration) time.Duration
}

func NewGoogleRoutesClient(cfg GoogleRoutesConfig, logger *zap.Logger) *GoogleRoutesClient {
	def := DefaultGoogleRoutesConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBaseDelay < 0 {
		cfg.RetryBaseDelay = 0
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &GoogleRoutesClient{
		session: &http.Client{},
		cfg:     cfg,
		logger:  logger,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int64N(int64(max)))
		},
	}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-routes",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// A failure the breaker should not count: the request itself was bad, the service was fine.
type passthrough struct {
	err error
}

// Return the best route for req.
func (c *GoogleRoutesClient) ComputeRoute(
	ctx context.Context,
	req ports.ComputeRouteRequest,
) (_ *ports.ComputedRoute, err error) {
	defer obs.Time(ctx, "oracle.google.ComputeRoute")(&err)

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
		}
		metrics.OracleRequests.WithLabelValues(outcome).Inc()
		metrics.OracleDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, apperr.New(apperr.KindOracleMissingAPIKey, "routing service API key is not configured")
	}

	body, err := toWireRequest(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOracleInvalidRequest, "invalid routing request", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOracleInvalidRequest, "encode routing request", err)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		route, err := c.computeWithRetry(ctx, payload)
		if err != nil && !apperr.Retryable(err) {
			return passthrough{err: err}, nil
		}
		return route, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperr.Wrap(apperr.KindOracleUnavailable, "routing service circuit is open", err)
	}
	if err != nil {
		return nil, err
	}
	if p, ok := out.(passthrough); ok {
		return nil, p.err
	}
	return out.(*ports.ComputedRoute), nil
}

func (c *GoogleRoutesClient) computeWithRetry(ctx context.Context, payload []byte) (*ports.ComputedRoute, error) {
	endpoint := c.cfg.BaseURL + computeRoutesAt

	raw, err := c.doWithRetry(ctx, func(attemptCtx context.Context) (*http.Request, error) {
		return c.newRequest(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, err
	}

	var resp computeRoutesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindOracleInvalidRequest, "decode routing response", err)
	}
	if len(resp.Routes) == 0 {
		return nil, apperr.New(apperr.KindOracleZeroResults, "routing service returned no routes")
	}

	route, err := fromWireRoute(resp.Routes[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOracleInvalidRequest, "decode routing response", err)
	}
	return route, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (c *GoogleRoutesClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do sends one attempt and reads the whole body so the attempt deadline covers it.
func (c *GoogleRoutesClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: errorMessage(b),
		}
	}
	return b, nil
}

func errorMessage(body []byte) string {
	var ge googleErrorBody
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return ge.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// Map an HTTP status to an error kind.
func statusKind(code int) apperr.Kind {
	switch code {
	case http.StatusBadRequest:
		return apperr.KindOracleInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.KindOracleRequestDenied
	case http.StatusNotFound:
		return apperr.KindOracleZeroResults
	case http.StatusTooManyRequests:
		return apperr.KindOracleQuotaExceeded
	case http.StatusGatewayTimeout:
		return apperr.KindOracleTimeout
	}
	return apperr.KindOracleUnavailable
}

// classify turns one attempt's failure into a typed error.
// parent is the caller's context; its cancellation is never retried.
func classify(parent context.Context, err error) *apperr.Error {
	if parent.Err() != nil {
		return apperr.Wrap(apperr.KindOracleTimeout, "routing request cancelled", parent.Err())
	}

	var he *httpStatusError
	if errors.As(err, &he) {
		return apperr.Wrap(statusKind(he.Code), fmt.Sprintf("routing service responded %d", he.Code), err).
			WithDetail("status", he.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindOracleTimeout, "routing request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(apperr.KindOracleTimeout, "routing request timed out", err)
	}

	return apperr.Wrap(apperr.KindOracleNetwork, "routing request failed", err)
}

// doWithRetry retries transient failures (network errors, timeouts, 429 and 5xx responses)
// using jittered exponential backoff while respecting context cancellation.
func (c *GoogleRoutesClient) doWithRetry(
	ctx context.Context,
	makeReq func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	var lastErr *apperr.Error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Wrap(apperr.KindOracleTimeout, "routing request cancelled", err)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, apperr.Wrap(apperr.KindOracleTimeout, "routing request cancelled", err)
			}
		}

		body, err := c.attempt(ctx, makeReq)
		if err == nil {
			return body, nil
		}

		lastErr = classify(ctx, err)
		if !apperr.Retryable(lastErr) || ctx.Err() != nil || attempt == c.cfg.MaxAttempts {
			return nil, lastErr
		}

		delay := c.backoff(attempt)
		c.logger.Warn("routing request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.String("code", lastErr.Code()),
			zap.Error(err),
		)
		metrics.OracleRetries.Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperr.Wrap(apperr.KindOracleTimeout, "routing request cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (c *GoogleRoutesClient) attempt(
	ctx context.Context,
	makeReq func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := makeReq(attemptCtx)
	if err != nil {
		return nil, fmt.Errorf("make request: %w", err)
	}
	return c.do(req)
}

// Delay before the retry following attempt n: base * 2^(n-1) plus jitter.
func (c *GoogleRoutesClient) backoff(n int) time.Duration {
	return c.cfg.RetryBaseDelay*time.Duration(1<<(n-1)) + c.jitter(c.cfg.RetryMaxJitter)
}
