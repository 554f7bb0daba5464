package hooks

import (
	"context"
	"os"
	"sync"
	"time"
)

// FeatureFlags gates the subprocess-plugin resilience behaviors described
// in spec §4.7. Each flag, when false, disables the corresponding
// behavior and restores a safe (always-call-through) default; flags are
// read once from environment overrides at startup.
type FeatureFlags struct {
	CircuitBreaker  bool
	TimeoutSelfHeal bool
	SeqHooks        bool
}

// DefaultFeatureFlags returns every gate enabled, the production default.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{CircuitBreaker: true, TimeoutSelfHeal: true, SeqHooks: true}
}

// FeatureFlagsFromEnv reads plugin_circuit_breaker, plugin_timeout_self_heal,
// and plugin_seq_hooks overrides, defaulting each to enabled when its
// environment variable is unset or unparsable.
func FeatureFlagsFromEnv() FeatureFlags {
	f := DefaultFeatureFlags()
	if v, ok := os.LookupEnv("plugin_circuit_breaker"); ok {
		f.CircuitBreaker = v != "false" && v != "0"
	}
	if v, ok := os.LookupEnv("plugin_timeout_self_heal"); ok {
		f.TimeoutSelfHeal = v != "false" && v != "0"
	}
	if v, ok := os.LookupEnv("plugin_seq_hooks"); ok {
		f.SeqHooks = v != "false" && v != "0"
	}
	return f
}

// circuitState is the CircuitBreaker's current posture.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreaker guards one subprocess plugin with a sliding failure
// window (spec §4.7): once Threshold failures land inside Window, the
// breaker trips and short-circuits calls for Cooldown, then allows one
// half-open probe.
type CircuitBreaker struct {
	mu        sync.Mutex
	Window    time.Duration
	Threshold int
	Cooldown  time.Duration

	failures  []time.Time
	state     circuitState
	openUntil time.Time
}

// NewCircuitBreaker creates a breaker with the spec's defaults: a 60s
// sliding window and a cooldown equal to the window.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		Window:    60 * time.Second,
		Threshold: 3,
		Cooldown:  60 * time.Second,
	}
}

// Allow reports whether a call may proceed. A tripped breaker refuses
// until Cooldown elapses, at which point exactly one caller is let
// through as a half-open probe; further callers are refused until that
// probe reports its outcome via RecordSuccess/RecordFailure.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Now().Before(c.openUntil) {
			return false
		}
		c.state = circuitHalfOpen
		return true
	case circuitHalfOpen:
		return false
	}
	return true
}

// RecordSuccess resets the failure window and closes the breaker.
func (c *CircuitBreaker) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
	c.state = circuitClosed
}

// RecordFailure appends a failure timestamp, prunes failures outside
// Window, and trips the breaker once Threshold is reached (or
// immediately, if the failing call was the half-open probe).
func (c *CircuitBreaker) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.state == circuitHalfOpen {
		c.state = circuitOpen
		c.openUntil = now.Add(c.Cooldown)
		return
	}

	c.failures = append(c.failures, now)
	cutoff := now.Add(-c.Window)
	kept := c.failures[:0]
	for _, t := range c.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.failures = kept

	if len(c.failures) >= c.Threshold {
		c.state = circuitOpen
		c.openUntil = now.Add(c.Cooldown)
	}
}

// pluginConn tracks per-plugin reconnect state for timeout self-heal.
type pluginConn struct {
	needsReconnect bool
}

// Supervisor owns one CircuitBreaker and one reconnect flag per named
// subprocess plugin, and applies the feature-flag gates from spec §4.7.
type Supervisor struct {
	mu      sync.Mutex
	flags   FeatureFlags
	timeout time.Duration
	conns   map[string]*pluginConn
	breaker map[string]*CircuitBreaker
	// Reconnect, if set, is invoked to re-spawn a plugin's child process
	// before the next call after a timeout. Optional.
	Reconnect func(pluginName string) error
}

// NewSupervisor creates a Supervisor with the given flags and per-call
// RPC timeout (spec §4.7 "Timeout self-heal").
func NewSupervisor(flags FeatureFlags, timeout time.Duration) *Supervisor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Supervisor{
		flags:   flags,
		timeout: timeout,
		conns:   make(map[string]*pluginConn),
		breaker: make(map[string]*CircuitBreaker),
	}
}

func (s *Supervisor) breakerFor(name string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breaker[name]
	if !ok {
		b = NewCircuitBreaker()
		s.breaker[name] = b
	}
	return b
}

func (s *Supervisor) connFor(name string) *pluginConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[name]
	if !ok {
		c = &pluginConn{}
		s.conns[name] = c
	}
	return c
}

// ErrCircuitOpen is the error for a plugin whose breaker has tripped. Call
// does not return it: a refused call yields an empty output and a nil error.
var ErrCircuitOpen = &supervisorError{"hooks: plugin circuit breaker is open"}

type supervisorError struct{ msg string }

func (e *supervisorError) Error() string { return e.msg }

// Call invokes fn with a per-call timeout and circuit-breaker protection.
// On timeout, the plugin is marked for reconnect and the call returns
// "no output" (an empty HookJSONOutput and a nil error), matching spec §4.7's
// "current call returns no output" rule; the caller re-spawns on its next
// Call via Reconnect.
func (s *Supervisor) Call(ctx context.Context, pluginName string, fn func(ctx context.Context) (HookJSONOutput, error)) (HookJSONOutput, error) {
	if s.flags.CircuitBreaker {
		cb := s.breakerFor(pluginName)
		if !cb.Allow() {
			return HookJSONOutput{}, nil
		}
	}

	if s.flags.TimeoutSelfHeal {
		conn := s.connFor(pluginName)
		if conn.needsReconnect && s.Reconnect != nil {
			if err := s.Reconnect(pluginName); err == nil {
				conn.needsReconnect = false
			}
		}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if s.flags.TimeoutSelfHeal {
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	output, err := fn(callCtx)

	if s.flags.CircuitBreaker {
		cb := s.breakerFor(pluginName)
		if err != nil {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}

	if err != nil && s.flags.TimeoutSelfHeal && callCtx.Err() == context.DeadlineExceeded {
		s.connFor(pluginName).needsReconnect = true
		return HookJSONOutput{}, nil
	}
	if err != nil {
		return HookJSONOutput{}, err
	}
	return output, nil
}
