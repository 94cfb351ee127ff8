// Package compiler bytecode-compiles batches of source files by handing a
// generated driver program to an external interpreter.
//
// The interpreter is treated as an opaque executable. The only channels
// between this package and the child process are:
//
//   - argv: exactly one argument, the path of the generated driver file
//   - stdout: one artifact path per line when every file compiled
//   - stderr: a failure report when one or more files did not compile
//   - exit code: 0 for success, non-zero for failure
//
// A batch is all-or-nothing for callers of Compile: either every artifact
// path is returned, or a single *CompilationError carries the driver's
// report. CompileRequest additionally exposes the per-file mapping parsed
// from that report.
package compiler
