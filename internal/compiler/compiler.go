package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compiler bytecode-compiles sources with an external interpreter.
//
// A Compiler holds no per-call state; concurrent calls each get their own
// driver file and process.
type Compiler struct {
	// Interpreter is the binary to run, either a path or a name looked up
	// on PATH.
	Interpreter string

	// Driver generates the program the interpreter runs. Defaults to the
	// built-in Python driver.
	Driver *Driver

	// Env is added on top of the host environment.
	Env map[string]string

	// TempDir holds driver files. Empty means os.TempDir.
	TempDir string

	// Logger receives batch lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewCompiler creates a Compiler for the given interpreter binary using the
// built-in Python driver.
func NewCompiler(interpreter string) *Compiler {
	return &Compiler{
		Interpreter: interpreter,
		Driver:      PythonDriver(),
		Logger:      zap.NewNop(),
	}
}

// Compile compiles relpaths under root and returns the artifact paths, in
// the order of relpaths.
//
// If any file fails, the returned error is a *CompilationError whose message
// is the interpreter's standard error, and no paths are returned. Failure to
// start the interpreter is reported as the underlying os/exec error.
func (c *Compiler) Compile(ctx context.Context, root string, relpaths []string) ([]string, error) {
	res, err := c.CompileRequest(ctx, Request{Root: root, RelPaths: relpaths})
	if err != nil {
		return nil, err
	}
	return res.Compiled, nil
}

// CompileRequest is Compile with a structured result. On failure the
// *CompilationError carries the per-file mapping in its Result field.
func (c *Compiler) CompileRequest(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.Interpreter == "" {
		return nil, fmt.Errorf("%w: interpreter binary is required", ErrInvalidRequest)
	}
	if len(req.RelPaths) == 0 {
		return &Result{Compiled: []string{}, Errored: map[string]string{}}, nil
	}

	driver := c.Driver
	if driver == nil {
		driver = PythonDriver()
	}
	logger := c.logger().With(
		zap.String("batch_id", uuid.NewString()),
		zap.String("interpreter", c.Interpreter),
		zap.String("driver", driver.Name),
		zap.String("root", req.Root),
		zap.Int("files", len(req.RelPaths)),
	)

	program, err := driver.Render(req)
	if err != nil {
		return nil, err
	}

	path, remove, err := writeDriverFile(c.TempDir, driver.Extension, program)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := remove(); err != nil {
			logger.Warn("removing driver file", zap.String("path", path), zap.Error(err))
		}
	}()

	logger.Debug("compiling batch", zap.String("driver_path", path))
	start := time.Now()

	proc, err := runInterpreter(ctx, c.Interpreter, path, interpreterEnv(c.Env))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("batch cancelled", zap.Error(err))
		} else {
			logger.Error("interpreter did not run", zap.Error(err))
		}
		return nil, err
	}

	if proc.ExitCode != 0 {
		rep := parseReport(string(proc.Stderr), req.RelPaths)
		logger.Info("batch failed",
			zap.Int("exit_code", proc.ExitCode),
			zap.Int("errors", len(rep.Errored)),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, &CompilationError{
			Stderr:   string(proc.Stderr),
			ExitCode: proc.ExitCode,
			Failed:   rep.Failed,
			Total:    rep.Total,
			Result:   &Result{Compiled: []string{}, Errored: rep.Errored},
		}
	}

	compiled := splitLines(proc.Stdout)
	logger.Debug("batch compiled",
		zap.Int("artifacts", len(compiled)),
		zap.Duration("duration", time.Since(start)),
	)
	return &Result{Compiled: compiled, Errored: map[string]string{}}, nil
}

func (c *Compiler) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// splitLines returns one entry per output line. A final newline does not
// produce an empty entry.
func splitLines(out []byte) []string {
	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}
