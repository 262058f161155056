package common

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Shortest sleep of a vital request waiting for a slot
const minimumWait = 10 * time.Millisecond

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

type RateLimiter struct {
	mu                   sync.Mutex
	restrictions         []Restriction          // Restrictions to consider
	history              []time.Time            // History of requests
	duration             time.Duration          // Min duration to wait for all restrictions to be lifted
	pendingVitalRequests map[uuid.UUID]struct{} // Set of pending vital requests
	stopwatch            Stopwatch              // Backoff after the provider answered 429
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{
		restrictions:         make([]Restriction, len(restrictions)),
		pendingVitalRequests: make(map[uuid.UUID]struct{}),
	}
	// Restrictions are just a copy of the provided ones
	copy(rl.restrictions, restrictions)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.stopwatch = NewStopwatch(time.Second)

	return rl
}

// Decide if request is allowed.
// If the request is not allowed but vital, execution
// blocks here until it is allowed or the context is done.
// Non vital requests are rejected while vital ones are waiting
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) bool {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	defer rl.forget(thisuuid)

	for {
		rl.mu.Lock()
		now := time.Now()
		rl.trim(now)
		analysis := rl.analyse(now)
		if analysis.allowed && (vital || len(rl.pendingVitalRequests) == 0) {
			rl.history = append(rl.history, now)
			rl.mu.Unlock()
			return true
		}
		if !vital {
			rl.mu.Unlock()
			log.Warn().Bool("throttled", !analysis.allowed).Msg("Rejecting non vital request")
			return false
		}
		rl.pendingVitalRequests[thisuuid] = struct{}{}
		rl.mu.Unlock()

		wait := max(analysis.wait, minimumWait)
		log.Debug().Str("request", thisuuid.String()).Dur("wait", wait).Msg("Vital request delayed")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// ReceivedRateLimit makes the limiter hold every request back for the
// provided duration. A zero duration keeps the previous backoff.
func (rl *RateLimiter) ReceivedRateLimit(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if retryAfter > 0 {
		rl.stopwatch.Timeout = retryAfter
	}
	rl.stopwatch.Start()
	log.Warn().Dur("backoff", rl.stopwatch.Timeout).Msg("Rate limit received from provider")
}

func (rl *RateLimiter) forget(id uuid.UUID) {
	rl.mu.Lock()
	delete(rl.pendingVitalRequests, id)
	rl.mu.Unlock()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim(now time.Time) {
	// Times are stored in chronological order, so the first young
	// enough request marks the start of what needs to be kept
	index := len(rl.history)
	for i, t := range rl.history {
		if now.Sub(t) < rl.duration {
			index = i
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse(now time.Time) Analysis {

	// The provider asked us to back off
	if stopped, elapsed := rl.stopwatch.Stopped(); !stopped {
		return Analysis{allowed: false, wait: -elapsed}
	}
	rl.stopwatch.Stop()

	// Merge the analyses of every restriction
	merged := Analysis{allowed: true}
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, now)
		merged.allowed = merged.allowed && analysis.allowed
		if analysis.wait > merged.wait {
			merged.wait = analysis.wait
		}
	}
	return merged
}
