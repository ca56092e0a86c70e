package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/zero-day-ai/redcell/internal/types"
)

// Exit codes: 1 for execution failures, 2 for usage and configuration
// problems the caller can fix.
const (
	exitSuccess = 0
	exitError   = 1
	exitUsage   = 2
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			if globalFlags.IsVerbose() {
				fmt.Fprintf(os.Stderr, "stack trace:\n%s\n", debug.Stack())
			} else {
				fmt.Fprintln(os.Stderr, "run with --verbose for a stack trace")
			}
			os.Exit(exitError)
		}
	}()

	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	os.Exit(exitSuccess)
}

// exitCodeFor maps an error to a process exit code. Flag misuse and
// configuration errors are the caller's to fix and exit 2; everything else
// exits 1.
func exitCodeFor(err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		return exitUsage
	}

	var rcErr *types.Error
	if errors.As(err, &rcErr) {
		switch rcErr.Code {
		case types.CONFIG_LOAD_FAILED, types.CONFIG_PARSE_FAILED,
			types.CONFIG_VALIDATION_FAILED, types.CONFIG_NOT_FOUND:
			return exitUsage
		}
	}

	return exitError
}
