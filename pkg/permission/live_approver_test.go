package permission

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEngineApprover_AlreadyApprovedReturnsImmediately(t *testing.T) {
	e := NewEngine(nil)
	e.approved["ses_1"] = map[string]bool{"doom_loop": true}
	approver := NewEngineApprover(e, "ses_1")

	if err := approver.Ask(context.Background(), "doom_loop", "Bash", map[string]any{"command": "ls"}); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestEngineApprover_BlocksUntilRespond(t *testing.T) {
	e := NewEngine(nil)
	approver := NewEngineApprover(e, "ses_2")

	var wg sync.WaitGroup
	var askErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		askErr = approver.Ask(context.Background(), "doom_loop", "Bash", map[string]any{"command": "ls"})
	}()

	deadline := time.Now().Add(time.Second)
	for len(e.Pending("ses_2")) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pending := e.Pending("ses_2")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending record, got %d", len(pending))
	}
	if pending[0].PermissionType != "doom_loop" {
		t.Fatalf("expected permission type doom_loop, got %s", pending[0].PermissionType)
	}

	if err := e.Respond("ses_2", pending[0].ID, DecisionOnce); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	wg.Wait()
	if askErr != nil {
		t.Fatalf("got %v, want nil", askErr)
	}
}

func TestEngineApprover_RejectPropagates(t *testing.T) {
	e := NewEngine(nil)
	approver := NewEngineApprover(e, "ses_3")

	var wg sync.WaitGroup
	var askErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		askErr = approver.Ask(context.Background(), "doom_loop", "Bash", map[string]any{"command": "ls"})
	}()

	deadline := time.Now().Add(time.Second)
	for len(e.Pending("ses_3")) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pending := e.Pending("ses_3")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending record, got %d", len(pending))
	}

	if err := e.Respond("ses_3", pending[0].ID, DecisionReject); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	wg.Wait()
	if askErr != ErrRejected {
		t.Fatalf("got %v, want ErrRejected", askErr)
	}
}
