package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fastConfig keeps test runs quick: negligible delays, no jitter.
func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:       maxRetries,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2.0,
		MaxSameErrorType: 5,
	}
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ScheduleExhausted(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := Do(context.Background(), fastConfig(2), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	// initial attempt + 2 retries
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NilConfigUsesDefaults(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: time.Hour, // never elapses
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_BackoffGrowsAndCaps(t *testing.T) {
	cfg := &Config{
		MaxRetries:   4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}

	var stamps []time.Time
	_ = Do(context.Background(), cfg, func() error {
		stamps = append(stamps, time.Now())
		return errors.New("down")
	})

	if len(stamps) != 5 {
		t.Fatalf("attempts = %d, want 5", len(stamps))
	}
	// Schedule: 10ms, 20ms, then capped at 20ms.
	gap1 := stamps[1].Sub(stamps[0])
	gap3 := stamps[3].Sub(stamps[2])
	if gap1 < 8*time.Millisecond {
		t.Errorf("first gap %v, want >= ~10ms", gap1)
	}
	if gap3 > 60*time.Millisecond {
		t.Errorf("capped gap %v, want <= ~20ms plus scheduling slop", gap3)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("flaky")
		}
		return "rows", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "rows" {
		t.Errorf("result = %q, want %q", got, "rows")
	}
}

func TestDoWithResult_ReturnsLastResultOnFailure(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(1), func() (int, error) {
		calls++
		return calls, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != 2 {
		t.Errorf("result = %d, want last attempt's value 2", got)
	}
}

type declaredRetryable struct{ retryable bool }

func (e *declaredRetryable) Error() string     { return "declared" }
func (e *declaredRetryable) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	transient := []string{
		"connection refused",
		"connection reset by peer",
		"i/o timeout",
		"no such host",
		"HTTP 503 Service Unavailable",
		"rate limit exceeded",
		"Neo.TransientError.General.DatabaseUnavailable",
		"ConcurrentModificationException on vertex write",
		"request throttling active",
	}
	for _, msg := range transient {
		if !IsRetryable(errors.New(msg)) {
			t.Errorf("IsRetryable(%q) = false, want true", msg)
		}
	}

	permanent := []string{
		"syntax error in query",
		"unauthorized",
		"malformed request",
	}
	for _, msg := range permanent {
		if IsRetryable(errors.New(msg)) {
			t.Errorf("IsRetryable(%q) = true, want false", msg)
		}
	}

	if IsRetryable(nil) {
		t.Error("IsRetryable(nil) = true")
	}
	// Declared retryability wins over pattern matching.
	if !IsRetryable(&declaredRetryable{retryable: true}) {
		t.Error("declared-retryable error not honored")
	}
	if IsRetryable(&declaredRetryable{retryable: false}) {
		t.Error("declared-permanent error retried")
	}
}

func TestDoIfRetryable_RetriesTransient(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoIfRetryable_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("syntax error at line 1")
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls)
	}
}

func TestDoIfRetryable_EscalatesRepeatedKind(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 3

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected escalated failure")
	}
	if !strings.Contains(err.Error(), "repeated error") {
		t.Errorf("err = %v, want repeated-error escalation", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (escalation before schedule end)", calls)
	}
}

func TestDoIfRetryable_AlternatingKindsUseFullSchedule(t *testing.T) {
	cfg := fastConfig(4)
	cfg.MaxSameErrorType = 2

	kinds := []string{"connection refused", "i/o timeout"}
	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New(kinds[calls%2])
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if strings.Contains(err.Error(), "repeated error") {
		t.Errorf("alternating kinds escalated: %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"HTTP 503 Service Unavailable", "503"},
		{"connection refused", "connection"},
		{"i/o timeout", "timeout"},
		{"broken pipe", "broken_pipe"},
		{"rate limit exceeded", "rate_limit"},
		{"TransientError: retry transaction", "graph_transient"},
		{"something else", "unknown"},
	}
	for _, tt := range tests {
		if got := errorKind(fmt.Errorf("%s", tt.msg)); got != tt.want {
			t.Errorf("errorKind(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
