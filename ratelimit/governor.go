package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Governor gates outbound requests against the provider's rate ceiling.
// BeforeSend blocks the calling stream until the next request is allowed;
// AfterReceive lets a policy inspect response headers. Neither ever returns
// an error; at worst the extraction slows down.
//
// The ceiling is per API key, not per stream, so a single Governor instance
// must be shared by every stream in the process.
type Governor interface {
	BeforeSend(ctx context.Context)
	AfterReceive(headers http.Header)
}

// sleep waits for d, waking up early when ctx is cancelled. Long cooldowns
// are sliced so a shutdown does not hang for the full reset window.
func sleep(ctx context.Context, d time.Duration) {
	const slice = time.Second
	for d > 0 {
		step := d
		if step > slice {
			step = slice
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
		}
		d -= step
	}
}

// IntervalGovernor enforces a fixed minimum interval between requests,
// derived from a provider-wide requests-per-minute ceiling.
type IntervalGovernor struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewIntervalGovernor(interval time.Duration) *IntervalGovernor {
	return &IntervalGovernor{interval: interval}
}

func (g *IntervalGovernor) BeforeSend(ctx context.Context) {
	g.mu.Lock()
	now := time.Now()
	wait := g.interval - now.Sub(g.last)
	if wait < 0 {
		wait = 0
	}
	g.last = now.Add(wait)
	g.mu.Unlock()

	if wait > 0 {
		log.Trace().Dur("wait", wait).Msg("throttling before next request")
		sleep(ctx, wait)
	}
}

func (g *IntervalGovernor) AfterReceive(headers http.Header) {}

// HeaderGovernor reacts to the remaining-quota headers the provider attaches
// to every response. When the remaining quota drops to the configured floor
// it sleeps out the advertised reset window before the next request.
type HeaderGovernor struct {
	minRemaining int

	mu       sync.Mutex
	cooldown time.Duration

	// test seam; sleeps for real by default
	sleepFn func(ctx context.Context, d time.Duration)
}

// defaultReset is used when the provider signals exhaustion without a
// reset-countdown header.
const defaultReset = 60 * time.Second

func NewHeaderGovernor(minRemaining int) *HeaderGovernor {
	return &HeaderGovernor{minRemaining: minRemaining, sleepFn: sleep}
}

func (g *HeaderGovernor) BeforeSend(ctx context.Context) {
	g.mu.Lock()
	wait := g.cooldown
	g.cooldown = 0
	g.mu.Unlock()

	if wait > 0 {
		g.sleepFn(ctx, wait)
	}
}

func (g *HeaderGovernor) AfterReceive(headers http.Header) {
	remaining := headerInt(headers, "x-rate-limit-remaining", "ratelimit-remaining")
	limit := headerInt(headers, "x-rate-limit", "ratelimit-limit")
	reset, hasReset := headerValue(headers, "rate-limit-reset", "ratelimit-reset")

	log.Debug().
		Int("remaining", remaining).
		Int("limit", limit).
		Str("reset", reset).
		Msg("rate limit headers")

	if remaining > g.minRemaining {
		return
	}

	wait := defaultReset
	if hasReset {
		if secs, err := strconv.Atoi(reset); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}

	log.Warn().
		Int("limit", limit).
		Int("remaining", remaining).
		Int("min_remaining", g.minRemaining).
		Dur("wait", wait).
		Msg("rate limit nearly exhausted, pausing before next request")

	g.mu.Lock()
	if wait > g.cooldown {
		g.cooldown = wait
	}
	g.mu.Unlock()
}

// headerValue checks the provider-specific name first, then the generic one.
func headerValue(h http.Header, names ...string) (string, bool) {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v, true
		}
	}
	return "", false
}

func headerInt(h http.Header, names ...string) int {
	v, ok := headerValue(h, names...)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// NopGovernor applies no gating at all. Useful in tests and when the
// deployment handles throttling elsewhere.
type NopGovernor struct{}

func (NopGovernor) BeforeSend(ctx context.Context)   {}
func (NopGovernor) AfterReceive(headers http.Header) {}
