package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"bytecomp/internal/cli"
)

// main canonicalizes all CLI inputs into a CLIInvocation before any
// compilation starts.
func main() {
	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	result, execErr := cli.Execute(context.Background(), inv, os.Stdout, os.Stderr)
	if execErr != nil {
		// A compilation report already ends in a newline.
		fmt.Fprintln(os.Stderr, strings.TrimRight(execErr.Error(), "\n"))
	}
	os.Exit(result.ExitCode)
}
