package reliable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/slok/ordersaga/internal/log"
	"github.com/slok/ordersaga/internal/provider"
)

// CallerConfig is the configuration of a provider caller.
type CallerConfig struct {
	// Name identifies the provider on logs and breaker state changes.
	Name string
	// Timeout is the per call timeout.
	Timeout time.Duration
	// RequestsPerSecond limits the calls to the provider, zero disables it.
	RequestsPerSecond float64
	Burst             int
	// BreakerMaxFailures is the number of consecutive failures that open the breaker.
	BreakerMaxFailures int
	// BreakerOpenTimeout is the time the breaker stays open before probing.
	BreakerOpenTimeout time.Duration
	// BreakerHalfOpenRequests is the number of probe calls allowed while half open.
	BreakerHalfOpenRequests uint32
	Logger                  log.Logger
}

func (c *CallerConfig) defaults() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second can't be negative")
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		c.Burst = 1
	}

	if c.BreakerMaxFailures <= 0 {
		c.BreakerMaxFailures = 5
	}

	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}

	if c.BreakerHalfOpenRequests == 0 {
		c.BreakerHalfOpenRequests = 1
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "provider.Reliable", "provider": c.Name})

	return nil
}

// Caller runs provider calls through a circuit breaker, a rate limiter and a
// per call timeout. Failures are returned as classifiable provider errors.
type Caller struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	logger  log.Logger
}

// NewCaller returns a new provider caller.
func NewCaller(cfg CallerConfig) (*Caller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.BreakerHalfOpenRequests,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warningf("Provider %s circuit breaker changed from %s to %s", name, from, to)
		},
		IsSuccessful: isSuccessful,
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Caller{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		breaker: breaker,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// State returns the circuit breaker state.
func (c *Caller) State() gobreaker.State { return c.breaker.State() }

// Do runs fn on the caller.
func Do[T any](ctx context.Context, c *Caller, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	res, err := c.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &provider.Error{Kind: provider.KindRateLimited, Code: "CLIENT_RATE_LIMIT", Message: err.Error()}
			}
		}

		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &provider.Error{Kind: provider.KindUnavailable, Code: "CIRCUIT_OPEN", Message: c.name + ": " + err.Error()}
		}
		return zero, err
	}

	v, _ := res.(T)
	return v, nil
}

// run is Do for calls without a result.
func run(ctx context.Context, c *Caller, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// isSuccessful doesn't count client side rejections as provider failures.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.KindConflict, provider.KindValidation, provider.KindRateLimited:
			return true
		}
	}

	return false
}
