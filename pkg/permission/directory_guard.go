package permission

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pathInputKeys lists the tool input fields that may carry a filesystem
// path, mirroring pkg/agent/tools.go's recordToolFileAccess.
var pathInputKeys = []string{"file_path", "notebook_path", "path", "directory"}

// DirectoryGuard enforces the external_directory permission type (spec
// §4.4): a tool call that touches a path outside the configured project
// roots must go through a live permission ask even if the tool itself is
// on the auto-allow list or matched by an "allow" rule.
type DirectoryGuard struct {
	// roots are cleaned, slash-form absolute directories; a path is
	// internal if it equals one or is nested under one. globs are
	// doublestar patterns from AdditionalDirs entries that were
	// themselves already glob-shaped.
	roots []string
	globs []string
}

// NewDirectoryGuard builds a guard rooted at cwd plus any additional
// configured directories. An entry containing a glob meta-character is
// kept as a doublestar pattern; otherwise it is treated as a plain
// directory prefix.
func NewDirectoryGuard(cwd string, additionalDirs []string) *DirectoryGuard {
	g := &DirectoryGuard{}
	g.addRoot(cwd)
	for _, d := range additionalDirs {
		g.addRoot(d)
	}
	return g
}

func (g *DirectoryGuard) addRoot(dir string) {
	if dir == "" {
		return
	}
	if strings.ContainsAny(dir, "*?[") {
		g.globs = append(g.globs, filepath.ToSlash(dir))
		return
	}
	g.roots = append(g.roots, filepath.ToSlash(filepath.Clean(dir)))
}

// Contains reports whether path is one of the guard's roots, nested under
// one, or matched by one of its glob patterns.
func (g *DirectoryGuard) Contains(path string) bool {
	if g == nil || path == "" {
		return true
	}
	slashPath := filepath.ToSlash(filepath.Clean(path))
	for _, root := range g.roots {
		if slashPath == root || strings.HasPrefix(slashPath, root+"/") {
			return true
		}
	}
	for _, pattern := range g.globs {
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return true
		}
	}
	return false
}

// Escapes extracts every path-shaped field from input and returns true if
// any of them falls outside the guard's roots.
func (g *DirectoryGuard) Escapes(input map[string]any) (string, bool) {
	if g == nil {
		return "", false
	}
	for _, key := range pathInputKeys {
		v, ok := input[key].(string)
		if !ok || v == "" {
			continue
		}
		if !filepath.IsAbs(v) {
			continue // relative paths are resolved against cwd by the tool itself
		}
		if !g.Contains(v) {
			return v, true
		}
	}
	return "", false
}
