// Package retry implements the Retry Controller (spec §4.5): it classifies
// provider errors, computes the backoff schedule, and re-drives a caller's
// request function until it succeeds, exhausts attempts, or is cancelled.
//
// It is promoted out of the teacher's pkg/llm/retry.go so both the
// provider transport (per-HTTP-call retry) and the orchestrator (per-turn
// retry around an entire streamed response) share one controller and one
// classification policy.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Classifiable is implemented by errors that already know whether they are
// transient (e.g. an HTTP-status-derived provider error). Errors that don't
// implement it fall back to string-matching in Classify.
type Classifiable interface {
	Retryable() bool
}

// FreeTierExhausted should be the sentinel wrapped by providers when a
// free-tier quota is hit. It is always non-retryable even though it may
// otherwise resemble a rate-limit error.
var ErrFreeTierExhausted = errors.New("retry: free-tier quota exhausted")

// transientSubstrings mirrors spec §4.5's textual classification for
// providers that don't expose a structured error type.
var transientSubstrings = []string{
	"overloaded",
	"too_many_requests",
	"rate_limit",
	"exhausted",
	"unavailable",
}

// Classify reports whether err should be retried. HTTP 429/5xx status
// (when the error carries one via StatusError) are always retryable;
// otherwise the error message is matched against known transient phrases.
// ErrFreeTierExhausted is explicitly excluded even if the message also
// contains a transient phrase.
func Classify(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrFreeTierExhausted) {
		return false
	}
	var c Classifiable
	if errors.As(err, &c) {
		return c.Retryable()
	}
	var se StatusError
	if errors.As(err, &se) {
		if se.StatusCode == 429 || se.StatusCode >= 500 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// StatusError is implemented by provider errors that carry an HTTP status
// code, used by Classify and by the delay schedule's header inspection.
type StatusError struct {
	StatusCode int
	Headers    http.Header // nil if the error carries no header hints
}

func (e StatusError) Error() string {
	return "retry: provider error (status " + strconv.Itoa(e.StatusCode) + ")"
}

func (e StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Config controls the Controller's attempt budget and backoff schedule.
type Config struct {
	MaxAttempts    int           // default 4 (1 initial + 3 retries)
	Initial        time.Duration // default 2s
	Factor         float64       // default 2.0
	LowCap         time.Duration // cap for headerless exponential backoff, default 30s
	AbsoluteCeil   time.Duration // absolute ceiling even for header-driven delays, default 5m
	JitterFraction float64       // default 0 (no jitter unless requested)
}

// DefaultConfig returns the constants named in spec §4.5.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		Initial:      2 * time.Second,
		Factor:       2.0,
		LowCap:       30 * time.Second,
		AbsoluteCeil: 5 * time.Minute,
	}
}

// Controller re-drives a request function on transient failure.
type Controller struct {
	cfg Config
}

// NewController creates a Controller; zero-valued Config fields are
// replaced with DefaultConfig's values.
func NewController(cfg Config) *Controller {
	d := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.Initial <= 0 {
		cfg.Initial = d.Initial
	}
	if cfg.Factor <= 0 {
		cfg.Factor = d.Factor
	}
	if cfg.LowCap <= 0 {
		cfg.LowCap = d.LowCap
	}
	if cfg.AbsoluteCeil <= 0 {
		cfg.AbsoluteCeil = d.AbsoluteCeil
	}
	return &Controller{cfg: cfg}
}

// RetryHint carries the delay information a provider error exposed, if any.
type RetryHint struct {
	RetryAfterMS int           // explicit ms hint, takes precedence
	RetryAfter   string        // raw Retry-After header value (seconds or HTTP-date)
	HadHeaders   bool          // true if the error carried any headers at all
}

// HintFrom extracts a RetryHint from an error that carries headers, or a
// zero RetryHint if it doesn't.
func HintFrom(err error) RetryHint {
	var se StatusError
	if !errors.As(err, &se) || se.Headers == nil {
		return RetryHint{}
	}
	hint := RetryHint{HadHeaders: true}
	if v := se.Headers.Get("Retry-After-Ms"); v != "" {
		if ms, convErr := strconv.Atoi(v); convErr == nil {
			hint.RetryAfterMS = ms
		}
	}
	hint.RetryAfter = se.Headers.Get("Retry-After")
	return hint
}

// Delay computes the sleep duration before attempt N (1-based: the delay
// preceding the Nth retry, i.e. after N failures already occurred).
func (c *Controller) Delay(attempt int, hint RetryHint) time.Duration {
	if hint.RetryAfterMS > 0 {
		return capAt(time.Duration(hint.RetryAfterMS)*time.Millisecond, c.cfg.AbsoluteCeil)
	}
	if hint.RetryAfter != "" {
		if d, ok := parseRetryAfter(hint.RetryAfter); ok {
			return capAt(d, c.cfg.AbsoluteCeil)
		}
	}

	backoff := float64(c.cfg.Initial) * math.Pow(c.cfg.Factor, float64(attempt-1))
	d := time.Duration(backoff)
	if hint.HadHeaders {
		// Headers were present but carried no usable delay hint: exponential,
		// uncapped apart from the absolute ceiling (spec §4.5, B3).
		return capAt(d, c.cfg.AbsoluteCeil)
	}
	// No headers at all: exponential with the low cap (spec §4.5, B3).
	return capAt(d, c.cfg.LowCap)
}

func capAt(d, ceil time.Duration) time.Duration {
	if d > ceil {
		return ceil
	}
	return d
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// OnRetry is invoked before each sleep with the attempt number (1-based),
// the error that triggered the retry, and the wall-clock deadline the
// sleep will end at. Callers use this to publish SessionStatusRetrying and
// append a Retry part, per spec §4.5.
type OnRetry func(attempt int, err error, nextDeadline time.Time)

// ErrExhausted wraps the final error once all attempts are spent.
type ErrExhausted struct {
	Attempts int
	Last     error
}

func (e *ErrExhausted) Error() string {
	return "retry: exhausted after " + strconv.Itoa(e.Attempts) + " attempts: " + e.Last.Error()
}

func (e *ErrExhausted) Unwrap() error { return e.Last }

// Do re-drives fn until it succeeds, a non-retryable error is returned, the
// attempt budget is spent, or ctx is cancelled. Cancellation during the
// sleep returns ctx.Err() directly (Cancelled, not retry-exhausted, per
// §4.5).
func (c *Controller) Do(ctx context.Context, onRetry OnRetry, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !Classify(err) {
			return err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.Delay(attempt, HintFrom(err))
		deadline := time.Now().Add(delay)
		if onRetry != nil {
			onRetry(attempt, err, deadline)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &ErrExhausted{Attempts: c.cfg.MaxAttempts, Last: lastErr}
}

// jitter is kept for parity with the teacher's transport-level retry
// (pkg/llm/retry.go), which jitters HTTP-level backoff; the orchestrator's
// turn-level Controller defaults JitterFraction to 0 because spec §4.5's
// worked example (scenario 4) expects an exact ~500ms delay.
func (c *Controller) jitter(d time.Duration) time.Duration {
	if c.cfg.JitterFraction <= 0 {
		return d
	}
	j := float64(d) * c.cfg.JitterFraction * rand.Float64()
	return d + time.Duration(j)
}
