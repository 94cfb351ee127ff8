package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitCompileFailure    = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// CLIInvocation is the canonicalized description of a run.
//
// Flags left empty fall back to the configuration file. Root, when given,
// must be absolute so the batch never depends on the process CWD.
type CLIInvocation struct {
	Root           string
	ConfigPath     string
	Interpreter    string
	Suffix         string
	DriverTemplate string
	Verbose        bool

	// RelPaths are compiled in the given order. When empty, the configured
	// include patterns are resolved instead.
	RelPaths []string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("bytecomp", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var inv CLIInvocation
	fs.StringVar(&inv.Root, "root", "", "Absolute source root. Defaults to sources.root from the config file.")
	fs.StringVar(&inv.ConfigPath, "config", "", "Path to bytecomp.toml. Defaults to the nearest one above -root.")
	fs.StringVar(&inv.Interpreter, "interpreter", "", "Interpreter binary that runs the driver.")
	fs.StringVar(&inv.Suffix, "suffix", "", "Suffix appended to each source path to name its artifact.")
	fs.StringVar(&inv.DriverTemplate, "driver-template", "", "Custom driver template file.")
	fs.BoolVar(&inv.Verbose, "verbose", false, "Log batch progress to stderr.")

	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}

	if inv.Root != "" {
		inv.Root = filepath.Clean(inv.Root)
		if !filepath.IsAbs(inv.Root) {
			return CLIInvocation{}, invalidInvocationf("-root must be an absolute path (got %q)", inv.Root)
		}
	}
	// File flags are user paths; anchor them now so config-relative
	// resolution never reinterprets them.
	for _, p := range []*string{&inv.ConfigPath, &inv.DriverTemplate} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return CLIInvocation{}, invalidInvocationf("cannot resolve %q: %v", *p, err)
		}
		*p = abs
	}
	if strings.ContainsAny(inv.Suffix, `/\`) {
		return CLIInvocation{}, invalidInvocationf("-suffix must not contain a path separator (got %q)", inv.Suffix)
	}

	inv.RelPaths = make([]string, 0, fs.NArg())
	for _, rel := range fs.Args() {
		if strings.TrimSpace(rel) == "" {
			return CLIInvocation{}, invalidInvocationf("source paths must not be empty")
		}
		if filepath.IsAbs(rel) {
			return CLIInvocation{}, invalidInvocationf("source paths must be relative to the root (got %q)", rel)
		}
		inv.RelPaths = append(inv.RelPaths, rel)
	}

	return inv, nil
}

// ExitCode extracts a semantic exit code from an error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
