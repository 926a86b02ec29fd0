package mdcompose

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mdcompose/internal/pipeline"
)

// Composer builds composed markdown documents from source/output pairs.
// It holds no per-run state and is safe for concurrent use.
type Composer struct {
	cfg      composerConfig
	parser   *pipeline.Parser
	renderer *pipeline.HTMLRenderer
}

// New creates a Composer with default configuration.
// Use options to customize behavior (e.g., WithWorkers).
func New(opts ...Option) *Composer {
	c := &Composer{
		cfg:      defaultComposerConfig(),
		parser:   pipeline.NewParser(),
		renderer: pipeline.NewHTMLRenderer(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// step is one transform applied to a parsed document.
type step struct {
	name string
	run  func(ctx context.Context, doc *pipeline.Document) error
}

// composed is a pair that went through every step but was not written yet.
type composed struct {
	markdown []byte
	html     []byte
	includes []string
	duration time.Duration
}

// Compose builds every pair, then writes every output.
// Nothing is written unless all pairs compose; the error returned is then
// the first one in pair order. Outputs whose content is unchanged are not
// rewritten.
func (c *Composer) Compose(ctx context.Context, pairs []Pair) ([]Result, error) {
	docs, err := c.composeAll(ctx, pairs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(pairs))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return results[:i], err
		}

		changed, err := c.write(pair.Output, docs[i].markdown)
		if err != nil {
			return results[:i], err
		}
		if pair.HTML != "" {
			if _, err := c.write(pair.HTML, docs[i].html); err != nil {
				return results[:i], err
			}
		}

		results[i] = newResult(pair, docs[i], changed)
		c.cfg.logger.Info("composed",
			"source", pair.Source,
			"output", pair.Output,
			"changed", changed,
			"bytes", len(docs[i].markdown),
			"duration", docs[i].duration)
	}

	return results, nil
}

// Check builds every pair and compares the result with the outputs on disk.
// Nothing is written. Out-of-date outputs are reported through *StaleError,
// alongside results whose Changed field marks them.
func (c *Composer) Check(ctx context.Context, pairs []Pair) ([]Result, error) {
	docs, err := c.composeAll(ctx, pairs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(pairs))
	var stale []string
	for i, pair := range pairs {
		changed := !c.sameContent(pair.Output, docs[i].markdown)
		if changed {
			stale = append(stale, pair.Output)
		}
		if pair.HTML != "" && !c.sameContent(pair.HTML, docs[i].html) {
			changed = true
			stale = append(stale, pair.HTML)
		}
		results[i] = newResult(pair, docs[i], changed)
	}

	if len(stale) > 0 {
		return results, &StaleError{Outputs: stale}
	}
	return results, nil
}

// ComposeDocument runs every step for one pair and returns the composed
// markdown without writing it.
func (c *Composer) ComposeDocument(ctx context.Context, pair Pair) ([]byte, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	doc, err := c.build(ctx, pair, c.steps(pair))
	if err != nil {
		return nil, err
	}
	return c.serialize(pair, doc)
}

// Dependencies returns the absolute paths of the files pair reads: its
// source followed by every file it includes, directly or not.
func (c *Composer) Dependencies(ctx context.Context, pair Pair) ([]string, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	source, err := filepath.Abs(pair.Source)
	if err != nil {
		return nil, err
	}

	doc, err := c.build(ctx, pair, c.steps(pair)[:1])
	if err != nil {
		return []string{source}, err
	}
	return append([]string{source}, doc.Includes...), nil
}

// composeAll builds every pair concurrently and returns the composed
// documents in pair order.
func (c *Composer) composeAll(ctx context.Context, pairs []Pair) ([]composed, error) {
	if len(pairs) == 0 {
		return nil, ErrNoPairs
	}
	for _, pair := range pairs {
		if err := pair.Validate(); err != nil {
			return nil, err
		}
	}

	docs := make([]composed, len(pairs))
	errs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.workers)

	for i, pair := range pairs {
		g.Go(func() error {
			doc, err := c.composeOne(gctx, pair)
			if err != nil {
				errs[i] = err
				return err
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, firstError(errs, err)
	}
	return docs, nil
}

// firstError returns the first error in pair order that is not a
// cancellation caused by another pair failing.
func firstError(errs []error, fallback error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return fallback
}

// composeOne runs every step for one pair, and the HTML preview if asked.
func (c *Composer) composeOne(ctx context.Context, pair Pair) (composed, error) {
	start := time.Now()

	doc, err := c.build(ctx, pair, c.steps(pair))
	if err != nil {
		return composed{}, err
	}

	markdown, err := c.serialize(pair, doc)
	if err != nil {
		return composed{}, err
	}

	var html []byte
	if pair.HTML != "" {
		html, err = c.renderer.Render(ctx, markdown, documentTitle(doc, pair))
		if err != nil {
			return composed{}, pipeline.WrapStep(pair.Source, pipeline.StepRender, err)
		}
	}

	return composed{
		markdown: markdown,
		html:     html,
		includes: doc.Includes,
		duration: time.Since(start),
	}, nil
}

// steps returns the transforms for pair, in the order they run.
// Include resolution always comes first.
func (c *Composer) steps(pair Pair) []step {
	opts := c.cfg.include
	steps := []step{{
		name: pipeline.StepInclude,
		run: func(ctx context.Context, doc *pipeline.Document) error {
			return pipeline.ResolveIncludes(ctx, doc, pipeline.IncludeOptions{
				ResolveFrom: opts.ResolveFrom,
				Allow:       opts.Allow,
				AllowBase:   opts.AllowBase,
				ReadFile:    pipeline.ReadFileFunc(c.cfg.readFile),
				Parser:      c.parser,
			})
		},
	}}

	if opts.RebaseLinks {
		steps = append(steps, step{
			name: pipeline.StepRebase,
			run: func(ctx context.Context, doc *pipeline.Document) error {
				return pipeline.RebaseLinks(ctx, doc, filepath.Dir(pair.Source))
			},
		})
	}

	if pair.TOC {
		tocOpts := c.cfg.toc
		steps = append(steps, step{
			name: pipeline.StepTOC,
			run: func(ctx context.Context, doc *pipeline.Document) error {
				return pipeline.GenerateTOC(ctx, doc, tocOpts)
			},
		})
	}

	return steps
}

// build reads and parses pair.Source, then applies steps in order.
func (c *Composer) build(ctx context.Context, pair Pair, steps []step) (*pipeline.Document, error) {
	content, err := c.read(ctx, pair.Source)
	if err != nil {
		return nil, err
	}

	doc, err := c.parser.Parse(ctx, pair.Source, content)
	if err != nil {
		return nil, pipeline.WrapStep(pair.Source, pipeline.StepParse, err)
	}

	for _, s := range steps {
		if err := s.run(ctx, doc); err != nil {
			return nil, pipeline.WrapStep(pair.Source, s.name, err)
		}
		c.cfg.logger.Debug("step done", "source", pair.Source, "step", s.name)
	}

	return doc, nil
}

func (c *Composer) serialize(pair Pair, doc *pipeline.Document) ([]byte, error) {
	out, err := pipeline.Serialize(doc)
	if err != nil {
		return nil, pipeline.WrapStep(pair.Source, pipeline.StepSerialize, err)
	}
	return out, nil
}

// read loads a source file, mapping failures to NotFoundError or ReadError.
func (c *Composer) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := c.cfg.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	return content, nil
}

// write replaces path with data unless it already holds exactly data.
// It reports whether the file changed.
func (c *Composer) write(path string, data []byte) (bool, error) {
	if c.sameContent(path, data) {
		c.cfg.logger.Debug("unchanged, skipping write", "path", path)
		return false, nil
	}
	if err := c.cfg.writeFile(path, data); err != nil {
		return false, &WriteError{Path: path, Err: err}
	}
	return true, nil
}

// sameContent reports whether path currently holds exactly data.
// Unreadable files never match.
func (c *Composer) sameContent(path string, data []byte) bool {
	current, err := c.cfg.readFile(path)
	if err != nil {
		return false
	}
	return bytes.Equal(current, data)
}

// documentTitle picks the preview title: the front matter title, else the
// output file name without its extension.
func documentTitle(doc *pipeline.Document, pair Pair) string {
	if title, ok := doc.Meta["title"].(string); ok && strings.TrimSpace(title) != "" {
		return title
	}
	base := filepath.Base(pair.Output)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newResult(pair Pair, doc composed, changed bool) Result {
	return Result{
		Source:   pair.Source,
		Output:   pair.Output,
		HTML:     pair.HTML,
		Bytes:    len(doc.markdown),
		Includes: doc.includes,
		Changed:  changed,
		Duration: doc.duration,
	}
}

// readFile is the default ReadFileFunc.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 -- configured source and include paths
}
