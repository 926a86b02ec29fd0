package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for pipeline stages.
// The typed errors below match these through errors.Is.
var (
	ErrIncludeResolution = errors.New("include resolution failed")
	ErrCircularInclude   = errors.New("circular include")
	ErrIncludeNotAllowed = errors.New("include path not allowed")
	ErrPipeline          = errors.New("pipeline step failed")
	ErrUnsupportedNode   = errors.New("unsupported markdown node")
	ErrInvalidTOCDepth   = errors.New("invalid TOC depth")
	ErrNilDocument       = errors.New("nil document")
)

// Pipeline step names, used in PipelineError.
const (
	StepParse     = "parse"
	StepInclude   = "include"
	StepRebase    = "rebase"
	StepTOC       = "toc"
	StepSerialize = "serialize"
	StepRender    = "render"
)

// IncludeResolutionError reports an @include directive that could not be
// resolved: the target is missing, unreadable, unparsable or not allowed.
type IncludeResolutionError struct {
	Path   string // file containing the directive
	Target string // resolved path of the included file
	Err    error
}

func (e *IncludeResolutionError) Error() string {
	return fmt.Sprintf("%s: including %s: %v", e.Path, e.Target, e.Err)
}

func (e *IncludeResolutionError) Unwrap() error { return e.Err }

func (e *IncludeResolutionError) Is(target error) bool {
	return target == ErrIncludeResolution
}

// CircularIncludeError reports an include chain that revisits a file.
// Chain starts at the root document and ends with the repeated path.
type CircularIncludeError struct {
	Chain []string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCircularInclude, strings.Join(e.Chain, " -> "))
}

func (e *CircularIncludeError) Is(target error) bool {
	return target == ErrCircularInclude
}

// PipelineError wraps a failure inside one transform step for one document.
type PipelineError struct {
	Path string
	Step string
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func (e *PipelineError) Is(target error) bool {
	return target == ErrPipeline
}

// WrapStep returns err as a PipelineError unless it is nil or already one.
func WrapStep(path, step string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Path: path, Step: step, Err: err}
}
