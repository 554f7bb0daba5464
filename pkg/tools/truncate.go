package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowdeck/agentcore/internal/idgen"
)

// TruncateConfig bounds a tool result's output before it is folded into a
// ToolResult part.
type TruncateConfig struct {
	MaxBytes int    // 0 = use DefaultMaxBytes
	MaxLines int    // 0 = use DefaultMaxLines
	SideDir  string // directory side files are spilled to; "" disables spill
}

const (
	DefaultMaxBytes = 30000
	DefaultMaxLines = 1000
)

// TruncateOutput enforces cfg's byte/line budgets on content. When the
// budget is exceeded the tail is kept (the part a model most needs to see
// a command's final state), the head is replaced by a marker, and the
// full content is spilled to a side file under cfg.SideDir so nothing is
// actually lost.
func TruncateOutput(content string, cfg TruncateConfig) (result string, truncated bool, sideFile string, err error) {
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = DefaultMaxBytes
	}
	maxLines := cfg.MaxLines
	if maxLines == 0 {
		maxLines = DefaultMaxLines
	}

	lines := strings.Split(content, "\n")
	if len(content) <= maxBytes && len(lines) <= maxLines {
		return content, false, "", nil
	}

	if cfg.SideDir != "" {
		sideFile, err = spillToSideFile(cfg.SideDir, content)
		if err != nil {
			return content, false, "", fmt.Errorf("truncate: spill output: %w", err)
		}
	}

	tailLines := lines
	if len(tailLines) > maxLines {
		tailLines = tailLines[len(tailLines)-maxLines:]
	}
	tail := strings.Join(tailLines, "\n")
	if len(tail) > maxBytes {
		tail = tail[len(tail)-maxBytes:]
	}

	marker := fmt.Sprintf("... (truncated, %d total bytes, %d total lines", len(content), len(lines))
	if sideFile != "" {
		marker += fmt.Sprintf("; full output saved to %s", sideFile)
	}
	marker += ") ...\n"

	return marker + tail, true, sideFile, nil
}

func spillToSideFile(dir, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := idgen.New("out_") + ".txt"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
