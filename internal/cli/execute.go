package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bytecomp/internal/compiler"
	"bytecomp/internal/config"
	"bytecomp/internal/sources"
)

type CLIResult struct {
	ExitCode int
	Compiled []string
}

// Execute maps a canonical CLIInvocation to a single compilation batch.
//
// Responsibilities:
//   - Load configuration and apply flag overrides.
//   - Pick the batch: explicit relpaths, else the configured include patterns.
//   - Print artifact paths to stdout, one per line, on success.
//   - Translate outcomes to semantic exit codes.
//
// On a compilation failure the returned error is the *compiler.CompilationError
// whose message is the driver's report.
func Execute(ctx context.Context, inv CLIInvocation, stdout, stderr io.Writer) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}

	cfg, err := loadConfig(inv)
	if err != nil {
		res.ExitCode = ExitCode(err)
		return res, err
	}
	applyOverrides(cfg, inv)

	root := inv.Root
	if root == "" {
		root = cfg.SourceRoot()
	}
	if root == "" {
		err := invalidInvocationf("-root is required when no %s sets sources.root", config.FileName)
		res.ExitCode = ExitCode(err)
		return res, err
	}

	driver, err := cfg.NewDriver()
	if err != nil {
		err = configErrorf("driver: %v", err)
		res.ExitCode = ExitCode(err)
		return res, err
	}

	relpaths := inv.RelPaths
	if len(relpaths) == 0 {
		relpaths, err = sources.NewResolver(root).Resolve(cfg.Sources.Include)
		if err != nil {
			err = configErrorf("resolving sources: %v", err)
			res.ExitCode = ExitCode(err)
			return res, err
		}
	}
	if len(relpaths) == 0 {
		err := invalidInvocationf("no source files to compile")
		res.ExitCode = ExitCode(err)
		return res, err
	}

	logger := newLogger(stderr, inv.Verbose)
	defer logger.Sync()

	comp := compiler.NewCompiler(cfg.Interpreter.Binary)
	comp.Driver = driver
	comp.Env = cfg.Interpreter.Env
	comp.TempDir = cfg.TempDir()
	comp.Logger = logger

	compiled, err := comp.Compile(ctx, root, relpaths)
	if err != nil {
		var compErr *compiler.CompilationError
		switch {
		case errors.As(err, &compErr):
			res.ExitCode = ExitCompileFailure
		case errors.Is(err, compiler.ErrInvalidRequest):
			res.ExitCode = ExitInvalidInvocation
		default:
			res.ExitCode = ExitInternalError
		}
		return res, err
	}

	for _, p := range compiled {
		if _, err := fmt.Fprintln(stdout, p); err != nil {
			return res, fmt.Errorf("writing output: %w", err)
		}
	}

	res.ExitCode = ExitSuccess
	res.Compiled = compiled
	return res, nil
}

func loadConfig(inv CLIInvocation) (*config.Config, error) {
	if inv.ConfigPath != "" {
		cfg, err := config.Load(inv.ConfigPath)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		return cfg, nil
	}
	if inv.Root != "" {
		cfg, err := config.FindAndLoad(inv.Root)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return config.Default(), nil
}

// applyOverrides lets flags win over the configuration file.
func applyOverrides(cfg *config.Config, inv CLIInvocation) {
	if inv.Interpreter != "" {
		cfg.Interpreter.Binary = inv.Interpreter
	}
	if inv.Suffix != "" {
		cfg.Driver.Suffix = inv.Suffix
	}
	if inv.DriverTemplate != "" {
		cfg.Driver.Template = inv.DriverTemplate
	}
}

// newLogger writes JSON logs to w: warnings and above by default, everything
// when verbose.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core)
}
