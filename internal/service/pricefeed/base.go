package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GSRSwap/internal/service/ratelimit"
	xhttp "GSRSwap/pkg/http"
	applogger "GSRSwap/pkg/logger"

	"github.com/sony/gobreaker"
)

// BaseConfig is shared by every upstream client.
type BaseConfig struct {
	Name            string
	BaseURL         string
	Timeout         time.Duration
	Attempts        int
	Backoff         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// HTTPServiceBase centralizes GET-and-decode for upstream data APIs: a
// per-upstream token bucket, bounded retries for transient failures and a
// circuit breaker that stops hammering an upstream that keeps failing.
type HTTPServiceBase struct {
	name     string
	baseURL  string
	client   *xhttp.Client
	limiter  *ratelimit.Limiter
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	l        *applogger.Logger
}

// NewHTTPServiceBase builds a client for one upstream. limiter may be nil.
func NewHTTPServiceBase(cfg BaseConfig, limiter *ratelimit.Limiter, l *applogger.Logger, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	failures := cfg.BreakerFailures
	log := l.With(applogger.String("upstream", cfg.Name))

	return &HTTPServiceBase{
		name:     cfg.Name,
		baseURL:  cfg.BaseURL,
		client:   xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)...),
		limiter:  limiter,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		l:        log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    cfg.Name,
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state change",
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			},
		}),
	}
}

// Name identifies the upstream.
func (b *HTTPServiceBase) Name() string { return b.name }

// BreakerState exposes the breaker state for health reporting.
func (b *HTTPServiceBase) BreakerState() string { return b.breaker.State().String() }

// GetJSON issues GET baseURL+path with query and decodes the body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		err = b.getOnce(ctx, path, query, dest)
		if err == nil || !retryable(err) || attempt == b.attempts {
			break
		}
		b.l.Debug("upstream retry", applogger.String("path", path), applogger.Int("attempt", attempt), applogger.Error(err))
		select {
		case <-time.After(time.Duration(attempt) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return fmt.Errorf("%s get %s: %w", b.name, path, err)
	}
	return nil
}

func (b *HTTPServiceBase) getOnce(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if err := b.limiter.Wait(ctx, b.name); err != nil {
		return err
	}

	// Client errors are the caller's fault and must not trip the breaker,
	// so they are carried out of Execute instead of returned through it.
	var clientErr error
	_, err := b.breaker.Execute(func() (interface{}, error) {
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			QueryParams: query,
		}, dest)
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			clientErr = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}
	return clientErr
}

func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Throttled
	}
	return true
}

// UpstreamError is an application-level error reported inside a 200 body.
type UpstreamError struct {
	Upstream  string
	Message   string
	Throttled bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Upstream, e.Message)
}
