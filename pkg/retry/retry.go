// Package retry implements exponential backoff with jitter for the two
// flaky edges of the engine: model provider round-trips and graph
// endpoint connectivity.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines a backoff schedule.
type Config struct {
	MaxRetries       int           // retries after the first attempt
	InitialDelay     time.Duration // delay before the first retry
	MaxDelay         time.Duration // backoff ceiling
	Multiplier       float64       // delay growth per retry
	JitterFactor     float64       // 0..1, fraction of delay randomized both ways
	MaxSameErrorType int           // consecutive same-type failures before giving up early
}

// DefaultConfig is the cadence for query and model calls: 3 retries from
// 100ms, doubling, capped at 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// ConnectConfig is the slower cadence used while a graph endpoint comes
// up: 3 retries from 5s, doubling, capped at 30s.
func ConnectConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     5 * time.Second,
		MaxDelay:         30 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// stepper walks one backoff schedule. Zero value is not usable; build it
// from a Config.
type stepper struct {
	cfg   *Config
	delay time.Duration
}

func newStepper(cfg *Config) *stepper {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &stepper{cfg: cfg, delay: cfg.InitialDelay}
}

// wait sleeps for the current delay (jittered) and advances the schedule.
// Returns the context error if the caller gave up first.
func (s *stepper) wait(ctx context.Context) error {
	d := s.delay
	if f := s.cfg.JitterFactor; f > 0 {
		d += time.Duration(float64(d) * f * (rand.Float64()*2 - 1))
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.delay = time.Duration(float64(s.delay) * s.cfg.Multiplier)
	if s.delay > s.cfg.MaxDelay {
		s.delay = s.cfg.MaxDelay
	}
	return nil
}

// DoWithResult calls fn until it succeeds or the schedule is exhausted,
// returning the last result and error. Context cancellation is honored
// during waits, never mid-call.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	s := newStepper(cfg)

	var result T
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if attempt >= s.cfg.MaxRetries {
			return result, lastErr
		}
		if err := s.wait(ctx); err != nil {
			return result, err
		}
	}
}

// Do is DoWithResult for functions with no return value.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoIfRetryable retries only transient failures. Permanent errors (auth,
// malformed queries) return immediately, and a run of MaxSameErrorType
// identical failure kinds is escalated to a permanent failure so a dead
// endpoint does not eat the whole schedule.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	s := newStepper(cfg)

	var lastErr error
	sameKind := 0
	lastKind := ""

	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		kind := errorKind(lastErr)
		if kind == lastKind {
			sameKind++
			if s.cfg.MaxSameErrorType > 0 && sameKind >= s.cfg.MaxSameErrorType {
				return fmt.Errorf("repeated error (%d times, type=%s): %w", sameKind, kind, lastErr)
			}
		} else {
			sameKind = 1
			lastKind = kind
		}

		if attempt >= s.cfg.MaxRetries {
			return lastErr
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
	}
}

// RetryableError lets errors declare their own retryability. Model API
// errors implement this so retry does not have to import llm.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientPatterns are error substrings worth retrying: connection
// faults, HTTP backpressure, and graph-database transient conditions.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"i/o timeout",
	"network is unreachable",
	"connection timed out",
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"service busy",
	"service unavailable",
	"too many requests",
	"transienterror",
	"session expired",
	"throttling",
	"concurrentmodificationexception",
}

// IsRetryable reports whether an error is transient. An error
// implementing RetryableError decides for itself; anything else is
// pattern-matched against known transient failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// errorKind buckets an error for the repeated-failure escalation in
// DoIfRetryable.
func errorKind(err error) string {
	if err == nil {
		return "nil"
	}
	msg := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429", "404", "403", "401", "400"} {
		if strings.Contains(msg, code) {
			return code
		}
	}
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "broken pipe"):
		return "broken_pipe"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "throttling"):
		return "rate_limit"
	case strings.Contains(msg, "transienterror"), strings.Contains(msg, "session expired"):
		return "graph_transient"
	}
	return "unknown"
}
