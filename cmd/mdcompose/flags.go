package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdcompose/internal/config"
)

// Sentinel errors for command line usage.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrInvalidWorkerCount = fmt.Errorf("%w: invalid worker count", ErrUsage)
	ErrConflictingFlags   = fmt.Errorf("%w: conflicting flags", ErrUsage)
	ErrUnexpectedArgs     = fmt.Errorf("%w: unexpected arguments", ErrUsage)
)

// cliFlags holds every mdcompose flag.
type cliFlags struct {
	config      string
	workers     int
	check       bool
	watch       bool
	printConfig bool
	quiet       bool
	verbose     bool
	version     bool
	help        bool

	// workersSet records an explicit --workers, which beats the environment.
	workersSet bool
}

// parseFlags parses the command line, without the program name.
func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("mdcompose", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	f := &cliFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "project file path")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel documents (0 = auto)")
	fs.BoolVar(&f.check, "check", false, "verify outputs are up to date, write nothing")
	fs.BoolVar(&f.watch, "watch", false, "rebuild when a source or include changes")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective project file and exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show timing and debug logs")
	fs.BoolVar(&f.version, "version", false, "show version information")
	fs.BoolVarP(&f.help, "help", "h", false, "show this help")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	f.workersSet = fs.Changed("workers")

	if fs.NArg() > 0 {
		return f, fmt.Errorf("%w: %v", ErrUnexpectedArgs, fs.Args())
	}
	if err := f.validate(); err != nil {
		return f, err
	}
	return f, nil
}

// validate rejects flag combinations that cannot run together.
func (f *cliFlags) validate() error {
	if f.workers < 0 || f.workers > config.MaxWorkers {
		return fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidWorkerCount, f.workers, config.MaxWorkers)
	}
	if f.check && f.watch {
		return fmt.Errorf("%w: --check and --watch", ErrConflictingFlags)
	}
	if f.quiet && f.verbose {
		return fmt.Errorf("%w: --quiet and --verbose", ErrConflictingFlags)
	}
	return nil
}
