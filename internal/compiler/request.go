package compiler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRequest marks requests rejected before any process is started.
var ErrInvalidRequest = errors.New("invalid compilation request")

// Request describes a single batch: a root directory and the source files
// under it, in the order their artifacts should be reported.
//
// Sources are not checked for readability here; a missing or unreadable file
// surfaces as a per-file failure from the driver.
type Request struct {
	// Root is the absolute directory all RelPaths are relative to.
	Root string

	// RelPaths lists the sources to compile. Duplicates are allowed and
	// produce duplicate artifacts.
	RelPaths []string
}

// Validate checks the structural requirements of the request.
func (r Request) Validate() error {
	if r.Root == "" {
		return fmt.Errorf("%w: root is required", ErrInvalidRequest)
	}
	if !filepath.IsAbs(r.Root) {
		return fmt.Errorf("%w: root must be an absolute path (got %q)", ErrInvalidRequest, r.Root)
	}
	// Paths travel to the driver as UTF-8 text; anything else would name a
	// different file.
	if !utf8.ValidString(r.Root) {
		return fmt.Errorf("%w: root %q is not valid UTF-8", ErrInvalidRequest, r.Root)
	}
	for i, p := range r.RelPaths {
		switch {
		case p == "":
			return fmt.Errorf("%w: relpath at index %d is empty", ErrInvalidRequest, i)
		case !utf8.ValidString(p):
			return fmt.Errorf("%w: relpath %q is not valid UTF-8", ErrInvalidRequest, p)
		case filepath.IsAbs(p) || strings.HasPrefix(p, "/"):
			return fmt.Errorf("%w: relpath %q must be relative to the root", ErrInvalidRequest, p)
		case escapesRoot(p):
			return fmt.Errorf("%w: relpath %q escapes the root", ErrInvalidRequest, p)
		}
	}
	return nil
}

func escapesRoot(relpath string) bool {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(relpath)))
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// Result is the outcome of a batch.
//
// When the driver runs to completion, Compiled and the keys of Errored
// partition the requested relpaths.
type Result struct {
	// Compiled holds artifact paths relative to Root, in request order.
	Compiled []string

	// Errored maps a source relpath to its diagnostic.
	Errored map[string]string
}

// ArtifactPath returns the artifact path for a source: the relpath with
// suffix appended. The original extension is preserved.
func ArtifactPath(relpath, suffix string) string {
	return relpath + suffix
}
