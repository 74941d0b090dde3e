package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/config"
	"github.com/matsen/chromacli/internal/filter"
	"github.com/matsen/chromacli/internal/vectordb"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (client or runtime failure)
	ExitUsage       = 2 // Invalid arguments or flags
	ExitConfigError = 3 // Configuration error (bad path, URL or provider)
	ExitNotFound    = 4 // Collection not found
	ExitConflict    = 5 // Collection or document id already exists
)

// usageError marks argument validation failures.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// configError marks failures to resolve settings or open the store.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	var usage usageError
	var cfg configError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, vectordb.ErrCollectionNotFound):
		return ExitNotFound
	case errors.Is(err, vectordb.ErrCollectionExists), errors.Is(err, vectordb.ErrDuplicateID):
		return ExitConflict
	case errors.As(err, &cfg), errors.Is(err, config.ErrInvalidSetting), errors.Is(err, vectordb.ErrEmbeddingMismatch):
		return ExitConfigError
	case errors.As(err, &usage),
		errors.Is(err, filter.ErrInvalid),
		errors.Is(err, vectordb.ErrInvalidRequest),
		strings.HasPrefix(err.Error(), "unknown command"):
		return ExitUsage
	default:
		return ExitError
	}
}

// usageArgs wraps a cobra positional-args validator so its failures exit
// with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func usageErrorf(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// runGroup prints help for a command group invoked without a subcommand.
// Unknown subcommands never reach it: cobra.NoArgs rejects them first.
func runGroup(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}
