package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTruncateOutput_UnderBudgetReturnsUnchanged(t *testing.T) {
	content := "a short result\nwith two lines"
	result, truncated, sideFile, err := TruncateOutput(content, TruncateConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if truncated || result != content || sideFile != "" {
		t.Fatalf("got (%q, %v, %q), want unchanged", result, truncated, sideFile)
	}
}

func TestTruncateOutput_OverLineBudgetKeepsTail(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = strings.Repeat("x", 3)
	}
	lines[9] = "LAST_LINE"
	content := strings.Join(lines, "\n")

	result, truncated, _, err := TruncateOutput(content, TruncateConfig{MaxLines: 2, MaxBytes: 1_000_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !strings.Contains(result, "LAST_LINE") {
		t.Fatalf("expected tail to be kept, got %q", result)
	}
}

func TestTruncateOutput_SpillsFullContentToSideFile(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("line\n", 2000)

	result, truncated, sideFile, err := TruncateOutput(content, TruncateConfig{MaxLines: 5, SideDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if sideFile == "" {
		t.Fatal("expected a side file path")
	}
	if filepath.Dir(sideFile) != dir {
		t.Fatalf("side file %q not under %q", sideFile, dir)
	}

	saved, err := os.ReadFile(sideFile)
	if err != nil {
		t.Fatalf("reading side file: %v", err)
	}
	if string(saved) != content {
		t.Fatal("side file does not contain the full original content")
	}
	if !strings.Contains(result, sideFile) {
		t.Fatalf("marker should reference side file, got %q", result)
	}
}

func TestTruncateOutput_NoSideDirSkipsSpill(t *testing.T) {
	content := strings.Repeat("line\n", 2000)
	_, truncated, sideFile, err := TruncateOutput(content, TruncateConfig{MaxLines: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if sideFile != "" {
		t.Fatalf("expected no side file, got %q", sideFile)
	}
}
