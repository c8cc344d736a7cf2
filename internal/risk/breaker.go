// Package risk gates new entries: caps, cooldowns, the circuit breaker and
// the kill switch.
package risk

import (
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
)

// CircuitBreaker suspends new entries after consecutive execution failures.
// Any success closes it immediately and resets the counter; otherwise it
// self-closes once the cooldown elapses. State is process-lifetime only.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	consecutiveFailures int
	openedAt            *time.Time

	now func() time.Time
	log zerolog.Logger
}

// NewCircuitBreaker creates a breaker opening after threshold consecutive
// failures and holding open for cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration, log zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		log:       log,
	}
}

// RecordFailure counts one execution failure; reaching the threshold opens
// the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.consecutiveFailures++
	if cb.openedAt == nil && cb.consecutiveFailures >= cb.threshold {
		t := cb.now()
		cb.openedAt = &t
		cb.log.Warn().
			Int("consecutive_failures", cb.consecutiveFailures).
			Dur("cooldown", cb.cooldown).
			Msg("circuit breaker opened")
	}
}

// RecordSuccess resets the failure counter and closes the breaker
// immediately, not just on cooldown expiry.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb.openedAt != nil {
		cb.log.Info().Msg("circuit breaker closed on success")
	}
	cb.consecutiveFailures = 0
	cb.openedAt = nil
}

// IsOpen reports whether the breaker currently blocks new entries.
// An elapsed cooldown closes the breaker and resets the counter.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb.openedAt == nil {
		return false
	}
	if cb.now().Sub(*cb.openedAt) >= cb.cooldown {
		cb.consecutiveFailures = 0
		cb.openedAt = nil
		cb.log.Info().Msg("circuit breaker closed after cooldown")
		return false
	}
	return true
}

// State returns the observable breaker snapshot.
func (cb *CircuitBreaker) State() domain.CircuitBreakerState {
	open := cb.IsOpen()
	state := domain.CircuitBreakerState{
		ConsecutiveFailures: cb.consecutiveFailures,
		Open:                open,
	}
	if open {
		reopens := cb.openedAt.Add(cb.cooldown)
		state.ReopensAt = &reopens
	}
	return state
}
