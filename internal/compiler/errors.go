package compiler

import (
	"fmt"
	"strings"
)

// CompilationError reports that the interpreter exited non-zero.
//
// Error returns the interpreter's standard error verbatim. Result holds
// whatever per-file diagnostics could be recovered from the driver's report;
// it is empty when the interpreter failed before reporting (for example,
// when the driver itself could not run).
type CompilationError struct {
	// Stderr is the captured standard error text.
	Stderr string

	// ExitCode is the interpreter's exit status.
	ExitCode int

	// Failed and Total are taken from the report header, or 0 if absent.
	Failed int
	Total  int

	// Result.Errored maps each failing relpath to its diagnostic.
	Result *Result
}

func (e *CompilationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stderr == "" {
		return fmt.Sprintf("interpreter exited with status %d", e.ExitCode)
	}
	return e.Stderr
}

// reportHeader is the first line a driver writes to stderr on failure.
const reportHeader = "Encountered %d errors compiling %d files:"

type report struct {
	Failed  int
	Total   int
	Errored map[string]string
}

// parseReport recovers the per-file mapping from a driver failure report.
//
// Entry lines are "  <relpath>: <message>". Since diagnostics may span lines
// and relpaths may contain ": ", an entry only starts on a line naming one of
// the requested relpaths; any other line continues the previous message.
func parseReport(stderr string, relpaths []string) report {
	rep := report{Errored: map[string]string{}}

	lines := strings.Split(strings.ReplaceAll(stderr, "\r\n", "\n"), "\n")
	start := -1
	for i, line := range lines {
		var failed, total int
		if _, err := fmt.Sscanf(line, reportHeader, &failed, &total); err == nil {
			rep.Failed, rep.Total = failed, total
			start = i + 1
			break
		}
	}
	if start < 0 {
		return rep
	}

	current := ""
	var msg strings.Builder
	flush := func() {
		if current != "" {
			rep.Errored[current] = strings.TrimRight(msg.String(), "\n")
		}
		msg.Reset()
	}

	for _, line := range lines[start:] {
		if name, rest, ok := matchEntry(line, relpaths); ok {
			flush()
			current = name
			msg.WriteString(rest)
			continue
		}
		if current != "" {
			msg.WriteString("\n")
			msg.WriteString(line)
		}
	}
	flush()

	return rep
}

// matchEntry reports whether line starts an entry for one of relpaths,
// preferring the longest relpath that matches.
func matchEntry(line string, relpaths []string) (name, msg string, ok bool) {
	body, found := strings.CutPrefix(line, "  ")
	if !found {
		return "", "", false
	}
	for _, p := range relpaths {
		if len(p) <= len(name) {
			continue
		}
		if rest, found := strings.CutPrefix(body, p+":"); found {
			name, msg, ok = p, strings.TrimPrefix(rest, " "), true
		}
	}
	return name, msg, ok
}
