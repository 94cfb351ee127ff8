// Package sources expands source patterns into the relpaths of a batch.
package sources

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver expands patterns relative to Root into root-relative file paths.
//
// Two pattern forms are accepted:
//   - filepath.Glob patterns, e.g. "*.py" or "pkg/*/mod.py"
//   - recursive patterns, "dir/..." for every file under dir, or
//     "dir/.../*.py" to filter by base name
//
// Results are slash-separated, strictly sorted and de-duplicated, so the
// same tree always yields the same batch regardless of filesystem order.
type Resolver struct {
	// Root is the absolute directory patterns are resolved against.
	Root string
}

// NewResolver creates a Resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// Resolve expands patterns and returns the matching files.
//
// Returns an error if a pattern is malformed, escapes Root, or names a
// literal path that does not exist.
func (r *Resolver) Resolve(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{}, nil
	}
	if !filepath.IsAbs(r.Root) {
		return nil, fmt.Errorf("source root must be an absolute path (got %q)", r.Root)
	}

	pathSet := make(map[string]struct{})
	for _, pattern := range patterns {
		expanded, err := r.expandPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, p := range expanded {
			pathSet[p] = struct{}{}
		}
	}

	// Do not rely on directory read order.
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return paths, nil
}

func (r *Resolver) expandPattern(pattern string) ([]string, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("pattern must not be empty")
	}
	if filepath.IsAbs(pattern) {
		return nil, fmt.Errorf("pattern must be relative to the source root")
	}
	if clean := path.Clean(filepath.ToSlash(pattern)); clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, fmt.Errorf("pattern escapes the source root")
	}

	if dir, name, ok := splitRecursive(pattern); ok {
		return r.walk(dir, name)
	}

	full := filepath.Join(r.Root, filepath.FromSlash(pattern))
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 && !containsGlobChar(pattern) {
		return nil, fmt.Errorf("source does not exist")
	}

	rels := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		rel, err := r.relativize(match)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// walk collects every regular file under dir whose base name matches name.
// Hidden directories below dir are skipped.
func (r *Resolver) walk(dir, name string) ([]string, error) {
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("name pattern %q must not contain a separator", name)
	}
	base := filepath.Join(r.Root, filepath.FromSlash(dir))
	if _, err := r.relativize(base); err != nil {
		return nil, err
	}

	var rels []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ok, err := path.Match(name, d.Name())
		if err != nil {
			return fmt.Errorf("invalid name pattern: %w", err)
		}
		if !ok {
			return nil
		}
		rel, err := r.relativize(p)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// relativize turns an absolute path under Root into a slash-separated
// relpath, rejecting anything outside Root.
func (r *Resolver) relativize(p string) (string, error) {
	rel, err := filepath.Rel(r.Root, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q is outside the source root", p)
	}
	return filepath.ToSlash(rel), nil
}

// splitRecursive splits "dir/.../name" into dir and name. name defaults to
// "*" and must not contain a separator.
func splitRecursive(pattern string) (dir, name string, ok bool) {
	p := filepath.ToSlash(pattern)
	i := strings.Index(p, "...")
	if i < 0 {
		return "", "", false
	}
	dir = strings.TrimSuffix(p[:i], "/")
	if dir == "" {
		dir = "."
	}
	name = strings.TrimPrefix(p[i+len("..."):], "/")
	if name == "" {
		name = "*"
	}
	return dir, name, true
}

// containsGlobChar returns true if the pattern contains glob special characters.
func containsGlobChar(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', ']':
			return true
		}
	}
	return false
}
