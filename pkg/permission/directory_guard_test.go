package permission

import (
	"context"
	"testing"

	"github.com/flowdeck/agentcore/pkg/agent"
	"github.com/flowdeck/agentcore/pkg/types"
)

func TestDirectoryGuardContainsWithinRoot(t *testing.T) {
	g := NewDirectoryGuard("/home/user/project", nil)
	if !g.Contains("/home/user/project") {
		t.Error("root itself should be contained")
	}
	if !g.Contains("/home/user/project/src/main.go") {
		t.Error("nested path should be contained")
	}
	if g.Contains("/home/user/other-project/main.go") {
		t.Error("sibling directory should not be contained")
	}
	if g.Contains("/etc/passwd") {
		t.Error("unrelated absolute path should not be contained")
	}
}

func TestDirectoryGuardAdditionalDirs(t *testing.T) {
	g := NewDirectoryGuard("/home/user/project", []string{"/home/user/shared"})
	if !g.Contains("/home/user/shared/notes.md") {
		t.Error("additional dir should be contained")
	}
}

func TestDirectoryGuardEscapesExtractsFirstOffendingPath(t *testing.T) {
	g := NewDirectoryGuard("/home/user/project", nil)
	path, escapes := g.Escapes(map[string]any{"file_path": "/etc/passwd"})
	if !escapes || path != "/etc/passwd" {
		t.Fatalf("Escapes = (%q, %v), want (/etc/passwd, true)", path, escapes)
	}
}

func TestDirectoryGuardEscapesIgnoresRelativePaths(t *testing.T) {
	g := NewDirectoryGuard("/home/user/project", nil)
	_, escapes := g.Escapes(map[string]any{"file_path": "relative/path.go"})
	if escapes {
		t.Error("relative paths should not trigger the guard")
	}
}

func TestDirectoryGuardNilIsPermissive(t *testing.T) {
	var g *DirectoryGuard
	if !g.Contains("/anything") {
		t.Error("nil guard should be permissive")
	}
	if _, escapes := g.Escapes(map[string]any{"file_path": "/etc/passwd"}); escapes {
		t.Error("nil guard should never report an escape")
	}
}

func TestChecker_DirectoryGuard_ForcesAskOverAllowedTools(t *testing.T) {
	c := NewChecker(CheckerConfig{
		AllowedTools:   []string{"Read"},
		DirectoryGuard: NewDirectoryGuard("/home/user/project", nil),
	})

	result, err := c.Check(context.Background(), "Read", map[string]any{"file_path": "/etc/passwd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Behavior != "deny" {
		t.Errorf("behavior = %q, want deny (no prompter configured)", result.Behavior)
	}
}

func TestChecker_DirectoryGuard_AllowsInternalPaths(t *testing.T) {
	c := NewChecker(CheckerConfig{
		AllowedTools:   []string{"Read"},
		DirectoryGuard: NewDirectoryGuard("/home/user/project", nil),
	})

	result, err := c.Check(context.Background(), "Read", map[string]any{"file_path": "/home/user/project/main.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Behavior != "allow" {
		t.Errorf("behavior = %q, want allow", result.Behavior)
	}
}

func TestChecker_DirectoryGuard_HookDecisionWins(t *testing.T) {
	c := NewChecker(CheckerConfig{
		AllowedTools:   []string{"Read"},
		DirectoryGuard: NewDirectoryGuard("/home/user/project", nil),
		HookRunner:     allowHookRunner{},
	})

	result, err := c.Check(context.Background(), "Read", map[string]any{"file_path": "/etc/passwd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Behavior != "allow" {
		t.Errorf("behavior = %q, want allow (hook approved)", result.Behavior)
	}
}

type allowHookRunner struct{}

func (allowHookRunner) Fire(ctx context.Context, event types.HookEvent, input any) ([]agent.HookResult, error) {
	return []agent.HookResult{{Decision: "allow"}}, nil
}
