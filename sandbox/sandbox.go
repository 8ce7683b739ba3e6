// Package sandbox confines filesystem and process side effects to a single
// working root. Every path supplied by the model is relative and untrusted;
// Resolve canonicalizes it (symlinks included) and rejects any result that
// lands outside the root.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ContainmentError reports a path that resolves outside the working root.
// It carries only the untrusted relative path; the resolved absolute path is
// never exposed to the caller.
type ContainmentError struct {
	Path string
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("cannot access %q: outside the permitted working directory", e.Path)
}

// Root is the canonical working directory all side effects are confined to.
// It is fixed at construction and never mutated.
type Root struct {
	path string
}

// NewRoot canonicalizes dir (absolute, symlinks resolved) and returns the
// sandbox root. dir must exist and be a directory.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root: %s is not a directory", dir)
	}
	return &Root{path: resolved}, nil
}

// Path returns the canonical root directory.
func (r *Root) Path() string { return r.path }

// Resolve joins rel onto the root, canonicalizes the result, and verifies
// containment. The returned path is absolute with all symlinks resolved.
// A path that escapes the root, or that resolves onto an unrelated volume,
// yields a *ContainmentError.
func (r *Root) Resolve(rel string) (string, error) {
	joined := filepath.Join(r.path, rel)
	resolved, err := resolveExisting(joined)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !contains(r.path, resolved) {
		return "", &ContainmentError{Path: rel}
	}
	return resolved, nil
}

// resolveExisting canonicalizes path, resolving symlinks through the deepest
// existing ancestor. The non-existing suffix is re-joined untouched so that
// write targets that do not exist yet still resolve.
func resolveExisting(path string) (string, error) {
	var suffix []string
	current := filepath.Clean(path)
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			if len(suffix) == 0 {
				return resolved, nil
			}
			// Rebuild the path from the resolved ancestor; reverse the
			// collected components back into order.
			for i, j := 0, len(suffix)-1; i < j; i, j = i+1, j-1 {
				suffix[i], suffix[j] = suffix[j], suffix[i]
			}
			return filepath.Clean(filepath.Join(append([]string{resolved}, suffix...)...)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		suffix = append(suffix, filepath.Base(current))
		current = parent
	}
}

// contains reports whether target equals root or is a descendant of it,
// compared segment-wise so /work never matches /workXYZ.
func contains(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		// Unrelated roots or volumes cannot be made relative.
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
