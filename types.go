package mdcompose

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/alnah/go-mdcompose/internal/fileutil"
	"github.com/alnah/go-mdcompose/internal/pipeline"
)

// Worker bounds for automatic sizing.
const (
	MinWorkers = 1
	MaxWorkers = 8
)

// Pair is one source file and the output it composes to.
type Pair struct {
	Source string // root markdown file (required)
	Output string // composed markdown file (required)
	TOC    bool   // insert a table of contents
	HTML   string // optional HTML preview path
}

// Validate checks that required fields are present.
func (p Pair) Validate() error {
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidPair)
	}
	if strings.TrimSpace(p.Output) == "" {
		return fmt.Errorf("%w: %s: empty output", ErrInvalidPair, p.Source)
	}
	return nil
}

// DefaultPairs returns the documentation and tools indexes, without a table
// of contents.
func DefaultPairs() []Pair {
	return []Pair{
		{Source: "docs/source/index.md", Output: "docs/index.md"},
		{Source: "tools/source/index.md", Output: "tools/index.md"},
	}
}

// Result describes one composed pair.
type Result struct {
	Source   string
	Output   string
	HTML     string        // preview path, empty if none
	Bytes    int           // size of the composed markdown
	Includes []string      // files spliced in, absolute, in resolution order
	Changed  bool          // output differed from what was on disk
	Duration time.Duration // compose time, excluding the write
}

// IncludeOptions configures include resolution and link rebasing.
type IncludeOptions struct {
	// ResolveFrom is the directory top-level directives resolve against.
	// Empty means the directory of the source file.
	ResolveFrom string

	// Allow restricts includes to files matching a doublestar pattern,
	// relative to AllowBase. Empty allows everything.
	Allow []string

	// AllowBase is the directory Allow patterns are relative to.
	// Empty means the working directory.
	AllowBase string

	// RebaseLinks rewrites relative links inside included files so they
	// resolve from the source file's directory.
	RebaseLinks bool
}

// DefaultIncludeOptions returns options with link rebasing on.
func DefaultIncludeOptions() IncludeOptions {
	return IncludeOptions{RebaseLinks: true}
}

// TOCOptions configures table of contents generation.
type TOCOptions = pipeline.TOCOptions

// DefaultTOCOptions returns options listing every heading level in a tight
// bullet list under the default marker heading.
func DefaultTOCOptions() TOCOptions {
	return pipeline.DefaultTOCOptions()
}

// ReadFileFunc reads a whole file.
type ReadFileFunc func(path string) ([]byte, error)

// WriteFileFunc replaces the content of a file.
type WriteFileFunc func(path string, data []byte) error

// Option configures a Composer.
type Option func(*Composer)

// composerConfig holds internal configuration for Composer.
type composerConfig struct {
	workers   int
	logger    *slog.Logger
	include   IncludeOptions
	toc       TOCOptions
	readFile  ReadFileFunc
	writeFile WriteFileFunc
}

func defaultComposerConfig() composerConfig {
	return composerConfig{
		workers:   DefaultWorkers(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		include:   DefaultIncludeOptions(),
		toc:       DefaultTOCOptions(),
		readFile:  readFile,
		writeFile: fileutil.WriteFileAtomic,
	}
}

// DefaultWorkers sizes the worker pool from GOMAXPROCS: half the available
// processors, between MinWorkers and MaxWorkers.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0) / 2
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// WithWorkers sets how many pairs compose at once. Zero selects
// DefaultWorkers.
// Panics if n < 0 (programmer error, similar to make with a negative size).
func WithWorkers(n int) Option {
	if n < 0 {
		panic("mdcompose: WithWorkers count must not be negative")
	}
	return func(c *Composer) {
		if n == 0 {
			n = DefaultWorkers()
		}
		c.cfg.workers = n
	}
}

// WithLogger sets the logger for per-step diagnostics. Nil restores the
// silent default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		c.cfg.logger = logger
	}
}

// WithIncludeOptions replaces the include resolution options.
func WithIncludeOptions(opts IncludeOptions) Option {
	return func(c *Composer) {
		c.cfg.include = opts
	}
}

// WithTOCOptions replaces the table of contents options used by pairs with
// TOC set.
func WithTOCOptions(opts TOCOptions) Option {
	return func(c *Composer) {
		c.cfg.toc = opts
	}
}

// WithReadFile replaces the function used to read sources, included files
// and current outputs.
func WithReadFile(fn ReadFileFunc) Option {
	return func(c *Composer) {
		if fn != nil {
			c.cfg.readFile = fn
		}
	}
}

// WithWriteFile replaces the function used to write outputs. The default
// writes atomically through a temporary file.
func WithWriteFile(fn WriteFileFunc) Option {
	return func(c *Composer) {
		if fn != nil {
			c.cfg.writeFile = fn
		}
	}
}
