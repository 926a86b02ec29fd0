package mdcompose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-mdcompose/internal/pipeline"
)

// Sentinel errors for composer operations.
var (
	ErrNotFound    = errors.New("source not found")
	ErrRead        = errors.New("failed to read source")
	ErrWrite       = errors.New("failed to write output")
	ErrStale       = errors.New("outputs are out of date")
	ErrNoPairs     = errors.New("no documents to compose")
	ErrInvalidPair = errors.New("invalid document pair")

	// Pipeline errors, matched by the error types below.
	ErrIncludeResolution = pipeline.ErrIncludeResolution
	ErrCircularInclude   = pipeline.ErrCircularInclude
	ErrIncludeNotAllowed = pipeline.ErrIncludeNotAllowed
	ErrPipeline          = pipeline.ErrPipeline
	ErrInvalidTOCDepth   = pipeline.ErrInvalidTOCDepth
	ErrHTMLConversion    = pipeline.ErrHTMLConversion
)

// Pipeline error types.
type (
	// IncludeResolutionError reports an include directive whose target is
	// missing, unreadable or not allowed.
	IncludeResolutionError = pipeline.IncludeResolutionError

	// CircularIncludeError reports an include chain that revisits a file.
	CircularIncludeError = pipeline.CircularIncludeError

	// PipelineError wraps a failure inside one transform step.
	PipelineError = pipeline.PipelineError
)

// NotFoundError reports a source file that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotFound, e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReadError reports a source file that exists but could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrRead, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}

// WriteError reports an output that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrWrite, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// StaleError lists outputs whose content differs from a fresh composition.
type StaleError struct {
	Outputs []string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrStale, strings.Join(e.Outputs, ", "))
}

func (e *StaleError) Is(target error) bool {
	return target == ErrStale
}
