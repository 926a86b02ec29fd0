package main

import (
	"errors"
	"os"

	"github.com/alnah/go-mdcompose"
	"github.com/alnah/go-mdcompose/internal/config"
)

// Exit codes for mdcompose CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // All outputs composed or up to date
	ExitGeneral     = 1 // General/unexpected error
	ExitUsage       = 2 // Invalid flags or project file
	ExitIO          = 3 // Source not found, read or write failure
	ExitComposition = 4 // Include resolution, include cycle, transform step
	ExitStale       = 5 // --check found out-of-date outputs
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, mdcompose.ErrStale) {
		return ExitStale
	}

	// Composition errors (exit 4), checked before I/O: a missing include
	// wraps fs.ErrNotExist but is a composition failure.
	if errors.Is(err, mdcompose.ErrIncludeResolution) ||
		errors.Is(err, mdcompose.ErrCircularInclude) ||
		errors.Is(err, mdcompose.ErrPipeline) {
		return ExitComposition
	}

	// I/O errors (exit 3)
	if errors.Is(err, mdcompose.ErrNotFound) ||
		errors.Is(err, mdcompose.ErrRead) ||
		errors.Is(err, mdcompose.ErrWrite) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigPath) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, mdcompose.ErrNoPairs) ||
		errors.Is(err, mdcompose.ErrInvalidPair) {
		return ExitUsage
	}

	return ExitGeneral
}
