package llm

import (
	"fmt"
	"sync"
	"time"
)

// Breaker gates model round-trips so a dead provider fails fast instead of
// burning a full retry cycle on every conversation turn. After TripAfter
// consecutive failures it rejects calls until Cooldown has passed, then
// lets a single probe through; the probe's outcome decides whether the
// gate reopens or stays shut for another cooldown.
type Breaker struct {
	mu          sync.Mutex
	tripAfter   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	probing     bool
}

// BreakerConfig tunes the gate.
type BreakerConfig struct {
	TripAfter int
	Cooldown  time.Duration
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes
// again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{TripAfter: 5, Cooldown: 30 * time.Second}
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{tripAfter: cfg.TripAfter, cooldown: cfg.Cooldown}
}

// Allow reports whether a model call may proceed. When the gate is shut it
// returns an error describing how long the provider has been failing.
func (b *Breaker) Allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.tripAfter {
		return true, nil
	}
	if b.probing {
		return false, fmt.Errorf("model gate shut: recovery probe already in flight")
	}
	if time.Since(b.lastFailure) > b.cooldown {
		b.probing = true
		return true, nil
	}
	return false, fmt.Errorf("model gate shut: provider failed %d times in a row, last failure %v ago",
		b.failures, time.Since(b.lastFailure).Round(time.Second))
}

// RecordSuccess reopens the gate.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failed round-trip. A failed probe restarts the
// cooldown clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
	b.probing = false
}

// Tripped reports whether the gate is currently rejecting calls.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.tripAfter
}

// Failures returns the consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
