package agent

import (
	"context"
	"errors"
	"testing"
)

func TestDoomLoopFingerprint_StableAcrossKeyOrder(t *testing.T) {
	a := doomLoopFingerprint("Bash", map[string]any{"command": "ls", "timeout": 1000})
	b := doomLoopFingerprint("Bash", map[string]any{"timeout": 1000, "command": "ls"})
	if a != b {
		t.Fatalf("expected stable fingerprint regardless of map iteration order, got %q vs %q", a, b)
	}
}

func TestDoomLoopFingerprint_DiffersByNameOrInput(t *testing.T) {
	base := doomLoopFingerprint("Bash", map[string]any{"command": "ls"})
	diffName := doomLoopFingerprint("Read", map[string]any{"command": "ls"})
	diffInput := doomLoopFingerprint("Bash", map[string]any{"command": "pwd"})
	if base == diffName || base == diffInput {
		t.Fatal("expected fingerprint to differ when name or input differs")
	}
}

func TestRecordToolCallForDoomLoop_TripsAtThreshold(t *testing.T) {
	state := &LoopState{}
	input := map[string]any{"command": "ls"}

	for i := 0; i < doomLoopThreshold-1; i++ {
		if recordToolCallForDoomLoop(state, "Bash", input) {
			t.Fatalf("guard tripped early at call %d", i+1)
		}
	}
	if !recordToolCallForDoomLoop(state, "Bash", input) {
		t.Fatalf("expected guard to trip on call %d", doomLoopThreshold)
	}
}

func TestRecordToolCallForDoomLoop_ResetsOnDifferentCall(t *testing.T) {
	state := &LoopState{}
	recordToolCallForDoomLoop(state, "Bash", map[string]any{"command": "ls"})
	recordToolCallForDoomLoop(state, "Bash", map[string]any{"command": "ls"})
	if recordToolCallForDoomLoop(state, "Bash", map[string]any{"command": "pwd"}) {
		t.Fatal("guard should not trip after an interleaved different call")
	}
	if state.consecutiveToolCalls != 1 {
		t.Fatalf("expected streak reset to 1, got %d", state.consecutiveToolCalls)
	}
}

type fakeApprover struct {
	err   error
	calls int
}

func (a *fakeApprover) Ask(ctx context.Context, permissionType, toolName string, input map[string]any) error {
	a.calls++
	return a.err
}

func TestCheckDoomLoop_NoApproverDeniesOnTrip(t *testing.T) {
	state := &LoopState{}
	config := &AgentConfig{}
	input := map[string]any{"command": "ls"}

	var err error
	for i := 0; i < doomLoopThreshold; i++ {
		err = checkDoomLoop(context.Background(), config, state, "Bash", input)
	}
	if err == nil {
		t.Fatal("expected error once guard trips with no LiveApprover configured")
	}
}

func TestCheckDoomLoop_ApproverGrantsAndResetsStreak(t *testing.T) {
	approver := &fakeApprover{}
	state := &LoopState{}
	config := &AgentConfig{LiveApprover: approver}
	input := map[string]any{"command": "ls"}

	var err error
	for i := 0; i < doomLoopThreshold; i++ {
		err = checkDoomLoop(context.Background(), config, state, "Bash", input)
	}
	if err != nil {
		t.Fatalf("expected approval to clear the guard, got %v", err)
	}
	if approver.calls != 1 {
		t.Fatalf("expected exactly one live-approval ask, got %d", approver.calls)
	}
	if state.consecutiveToolCalls != 0 {
		t.Fatalf("expected streak reset after approval, got %d", state.consecutiveToolCalls)
	}
}

func TestCheckDoomLoop_ApproverDenialPropagates(t *testing.T) {
	approver := &fakeApprover{err: errors.New("rejected")}
	state := &LoopState{}
	config := &AgentConfig{LiveApprover: approver}
	input := map[string]any{"command": "ls"}

	var err error
	for i := 0; i < doomLoopThreshold; i++ {
		err = checkDoomLoop(context.Background(), config, state, "Bash", input)
	}
	if err == nil {
		t.Fatal("expected error when LiveApprover rejects")
	}
}

func TestCheckDoomLoop_BelowThresholdNeverAsks(t *testing.T) {
	approver := &fakeApprover{}
	state := &LoopState{}
	config := &AgentConfig{LiveApprover: approver}
	input := map[string]any{"command": "ls"}

	for i := 0; i < doomLoopThreshold-1; i++ {
		if err := checkDoomLoop(context.Background(), config, state, "Bash", input); err != nil {
			t.Fatalf("unexpected error before threshold: %v", err)
		}
	}
	if approver.calls != 0 {
		t.Fatalf("expected no asks before threshold, got %d", approver.calls)
	}
}
