package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseInvocation_DeterministicStruct(t *testing.T) {
	root := t.TempDir()
	args := []string{
		"-root", root + "/./",
		"-interpreter", "/usr/bin/python3",
		"-suffix", "c",
		"-verbose",
		"pkg/b.py", "a.py", "a.py",
	}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected identical invocations, got\n%#v\n%#v", inv1, inv2)
	}

	if inv1.Root != filepath.Clean(root) {
		t.Fatalf("root not canonicalized: %q", inv1.Root)
	}
	if !inv1.Verbose {
		t.Fatal("verbose not set")
	}
	// Order and duplicates are the caller's.
	if want := []string{"pkg/b.py", "a.py", "a.py"}; !reflect.DeepEqual(inv1.RelPaths, want) {
		t.Fatalf("expected relpaths %v, got %v", want, inv1.RelPaths)
	}
}

func TestParseInvocation_AnchorsFileFlags(t *testing.T) {
	cwd := t.TempDir()
	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })
	if err := os.Chdir(cwd); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	inv, err := ParseInvocation([]string{"-config", "conf/bytecomp.toml", "-driver-template", "d.tmpl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Compare against the resolved CWD; TempDir may sit behind a symlink.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if inv.ConfigPath != filepath.Join(wd, "conf", "bytecomp.toml") {
		t.Errorf("config path not anchored: %q", inv.ConfigPath)
	}
	if inv.DriverTemplate != filepath.Join(wd, "d.tmpl") {
		t.Errorf("driver template not anchored: %q", inv.DriverTemplate)
	}
}

func TestParseInvocation_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"relative root", []string{"-root", "relative", "a.py"}},
		{"unknown flag", []string{"-nope"}},
		{"absolute relpath", []string{"-root", "/src", "/src/a.py"}},
		{"empty relpath", []string{"-root", "/src", ""}},
		{"suffix with separator", []string{"-suffix", "x/y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInvocation(tt.args)
			if err == nil {
				t.Fatalf("expected error")
			}
			if ExitCode(err) != ExitInvalidInvocation {
				t.Fatalf("expected exit code %d, got %d", ExitInvalidInvocation, ExitCode(err))
			}
		})
	}
}

func TestParseInvocation_IgnoresEnvironmentVariables(t *testing.T) {
	args := []string{"-root", t.TempDir(), "a.py"}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("PYTHONPATH", "/elsewhere")
	t.Setenv("SOME_OTHER_VAR", "some value")

	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected env vars to not affect parsing, got\n%#v\n%#v", inv1, inv2)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != ExitSuccess {
		t.Errorf("nil: got %d", got)
	}
	if got := ExitCode(configErrorf("bad")); got != ExitConfigError {
		t.Errorf("config error: got %d", got)
	}
	if got := ExitCode(&InvocationError{Message: "x"}); got != ExitInvalidInvocation {
		t.Errorf("zero exit code: got %d", got)
	}
	if got := ExitCode(os.ErrNotExist); got != ExitInternalError {
		t.Errorf("other error: got %d", got)
	}
}
