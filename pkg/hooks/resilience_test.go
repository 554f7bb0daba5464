package hooks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker()
	cb.Threshold = 3
	cb.Cooldown = time.Hour

	for i := 0; i < 2; i++ {
		if !cb.Allow() {
			t.Fatalf("expected Allow before threshold, iteration %d", i)
		}
		cb.RecordFailure()
	}
	if !cb.Allow() {
		t.Fatal("expected Allow on third attempt before this failure trips it")
	}
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("expected breaker tripped after threshold failures")
	}
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker()
	cb.Threshold = 1
	cb.Cooldown = 10 * time.Millisecond
	cb.RecordFailure() // trips immediately at threshold 1

	if cb.Allow() {
		t.Fatal("expected tripped immediately after cooldown window")
	}
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected half-open probe allowed after cooldown")
	}
	// a second caller during the half-open probe must be refused
	if cb.Allow() {
		t.Fatal("expected only one half-open probe allowed at a time")
	}
}

func TestCircuitBreakerSuccessResetsWindow(t *testing.T) {
	cb := NewCircuitBreaker()
	cb.Threshold = 3
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	if !cb.Allow() {
		t.Fatal("expected still closed: success reset the failure count")
	}
}

func TestFeatureFlagsFromEnvDefaultsEnabled(t *testing.T) {
	f := FeatureFlagsFromEnv()
	if !f.CircuitBreaker || !f.TimeoutSelfHeal || !f.SeqHooks {
		t.Fatalf("expected all flags enabled by default, got %+v", f)
	}
}

func TestSupervisorCallTimeoutMarksReconnect(t *testing.T) {
	reconnected := false
	s := NewSupervisor(DefaultFeatureFlags(), 5*time.Millisecond)
	s.Reconnect = func(name string) error {
		reconnected = true
		return nil
	}

	_, err := s.Call(context.Background(), "myplugin", func(ctx context.Context) (HookJSONOutput, error) {
		<-ctx.Done()
		return HookJSONOutput{}, ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected nil error (no-output on timeout), got %v", err)
	}

	_, _ = s.Call(context.Background(), "myplugin", func(ctx context.Context) (HookJSONOutput, error) {
		return HookJSONOutput{}, nil
	})
	if !reconnected {
		t.Fatal("expected Reconnect to be called before the next call")
	}
}

func TestSupervisorCircuitOpenShortCircuits(t *testing.T) {
	s := NewSupervisor(FeatureFlags{CircuitBreaker: true}, time.Second)
	calls := 0
	failing := func(ctx context.Context) (HookJSONOutput, error) {
		calls++
		return HookJSONOutput{}, errors.New("boom")
	}
	for i := 0; i < 3; i++ {
		_, _ = s.Call(context.Background(), "p", failing)
	}
	before := calls
	_, err := s.Call(context.Background(), "p", failing)
	if err != nil {
		t.Fatalf("short-circuited call must not surface an error, got %v", err)
	}
	if calls != before {
		t.Fatal("expected fn not invoked once the breaker is open")
	}
}

func TestSupervisorDisabledFlagsCallThrough(t *testing.T) {
	s := NewSupervisor(FeatureFlags{}, time.Second)
	calls := 0
	for i := 0; i < 10; i++ {
		_, _ = s.Call(context.Background(), "p", func(ctx context.Context) (HookJSONOutput, error) {
			calls++
			return HookJSONOutput{}, errors.New("boom")
		})
	}
	if calls != 10 {
		t.Fatalf("got %d calls, want 10 (breaker disabled must never short-circuit)", calls)
	}
}
