package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
)

// processResult is what the interpreter left behind once it exited.
type processResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// runInterpreter starts `binary script` and waits for it to exit.
//
// Errors returned here are launch or wait failures, never a non-zero exit:
// callers inspect ExitCode for that. If ctx is cancelled the interpreter's
// whole process group is killed before returning.
func runInterpreter(ctx context.Context, binary, script string, env []string) (*processResult, error) {
	cmd := exec.Command(binary, script)
	cmd.Env = env

	// Own process group so cancellation reaches anything the driver spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Launch failures are returned as os/exec reports them.
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("compilation cancelled: %w", ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("waiting for interpreter %q: %w", binary, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &processResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// interpreterEnv returns the host environment with overrides appended in
// key order. os/exec keeps the last value for a duplicated key.
func interpreterEnv(overrides map[string]string) []string {
	env := os.Environ()
	if len(overrides) == 0 {
		return env
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, overrides[k]))
	}
	return env
}

// writeDriverFile stores program in a fresh temporary file and returns its
// path with a function that removes it. The file is closed before return so
// the interpreter can open it on any platform.
func writeDriverFile(dir, extension string, program []byte) (path string, remove func() error, err error) {
	f, err := os.CreateTemp(dir, "bytecomp-driver-*"+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating driver file: %w", err)
	}
	path = f.Name()
	remove = func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	if _, err := f.Write(program); err != nil {
		f.Close()
		remove()
		return "", nil, fmt.Errorf("writing driver file: %w", err)
	}
	if err := f.Close(); err != nil {
		remove()
		return "", nil, fmt.Errorf("closing driver file: %w", err)
	}
	return path, remove, nil
}
