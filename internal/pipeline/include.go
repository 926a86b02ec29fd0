package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark/ast"
)

// includePattern matches a paragraph made only of an include directive:
//
//	@include "partials/setup.md"
//	@include 'snippets/example.go'
var includePattern = regexp.MustCompile(`^@include\s+(?:"([^"]+)"|'([^']+)')$`)

// markdownExtensions are included as markdown. Any other file is included as
// a fenced code block tagged with its extension.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
}

// ReadFileFunc reads a whole file.
type ReadFileFunc func(path string) ([]byte, error)

// IncludeOptions configures ResolveIncludes.
type IncludeOptions struct {
	// ResolveFrom is the directory top-level directives resolve against.
	// Empty means the directory of the document. Nested directives always
	// resolve against the directory of the file that contains them.
	ResolveFrom string

	// Allow restricts includes to files matching at least one doublestar
	// pattern, matched against the slash path relative to AllowBase.
	// Empty allows everything.
	Allow []string

	// AllowBase is the directory Allow patterns are relative to.
	// Empty means the working directory.
	AllowBase string

	// ReadFile reads included files. Nil means os.ReadFile.
	ReadFile ReadFileFunc

	// Parser parses included markdown. Nil means NewParser().
	Parser *Parser
}

// directive is an include paragraph found in the tree.
type directive struct {
	node   ast.Node
	target string
}

// includeResolver carries the state of one ResolveIncludes call.
type includeResolver struct {
	opts     IncludeOptions
	allowDir string
	seen     map[string]bool
	order    []string
}

// ResolveIncludes replaces every include directive in doc with the content of
// the referenced file, recursively. A file that appears twice on one include
// chain fails with *CircularIncludeError; a missing, unreadable or disallowed
// file fails with *IncludeResolutionError. Included files are recorded in
// doc.Includes.
func ResolveIncludes(ctx context.Context, doc *Document, opts IncludeOptions) error {
	if doc == nil {
		return ErrNilDocument
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if opts.Parser == nil {
		opts.Parser = NewParser()
	}
	for _, pattern := range opts.Allow {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: invalid allow pattern %q", ErrIncludeNotAllowed, pattern)
		}
	}

	r := &includeResolver{opts: opts, seen: map[string]bool{}}
	if len(opts.Allow) > 0 {
		base := opts.AllowBase
		if base == "" {
			base = "."
		}
		abs, err := filepath.Abs(base)
		if err != nil {
			return err
		}
		r.allowDir = abs
	}

	rootPath, err := filepath.Abs(doc.Path)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(doc.Path)
	if opts.ResolveFrom != "" {
		baseDir = opts.ResolveFrom
	}

	if err := r.resolve(ctx, doc.Root, doc.Source, doc.Path, baseDir, []string{rootPath}); err != nil {
		return err
	}
	doc.Includes = append(doc.Includes, r.order...)
	return nil
}

// resolve expands the directives under root. path names the file root came
// from and chain holds the absolute paths of the files being expanded.
func (r *includeResolver) resolve(ctx context.Context, root ast.Node, source []byte, path, baseDir string, chain []string) error {
	directives := findDirectives(root, source, baseDir)

	for _, d := range directives {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := filepath.Abs(d.target)
		if err != nil {
			return &IncludeResolutionError{Path: path, Target: d.target, Err: err}
		}

		if slices.Contains(chain, target) {
			cycle := append(append([]string{}, chain...), target)
			return &CircularIncludeError{Chain: cycle}
		}

		if err := r.checkAllowed(target); err != nil {
			return &IncludeResolutionError{Path: path, Target: d.target, Err: err}
		}

		frag, err := r.load(ctx, path, d.target)
		if err != nil {
			return err
		}

		if !r.seen[target] {
			r.seen[target] = true
			r.order = append(r.order, target)
		}

		next := append(append([]string{}, chain...), target)
		if err := r.resolve(ctx, frag, frag.Source, d.target, filepath.Dir(d.target), next); err != nil {
			return err
		}

		parent := d.node.Parent()
		parent.ReplaceChild(parent, d.node, frag)
	}

	return nil
}

// load reads and parses one included file into a Fragment.
func (r *includeResolver) load(ctx context.Context, from, target string) (*Fragment, error) {
	content, err := r.opts.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("file not found: %w", err)
		}
		return nil, &IncludeResolutionError{Path: from, Target: target, Err: err}
	}

	if !markdownExtensions[strings.ToLower(filepath.Ext(target))] {
		content = codeBlockSource(content, filepath.Ext(target))
	}

	included, err := r.opts.Parser.Parse(ctx, target, content)
	if err != nil {
		return nil, &IncludeResolutionError{Path: from, Target: target, Err: err}
	}

	frag := NewFragment(target, included.Source)
	frag.adopt(included.Root)
	return frag, nil
}

// checkAllowed matches target against the allow list.
func (r *includeResolver) checkAllowed(target string) error {
	if len(r.opts.Allow) == 0 {
		return nil
	}

	rel, err := filepath.Rel(r.allowDir, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncludeNotAllowed, err)
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range r.opts.Allow {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s matches no allow pattern", ErrIncludeNotAllowed, rel)
}

// findDirectives collects include paragraphs below root without descending
// into fragments, which are resolved by their own pass.
func findDirectives(root ast.Node, source []byte, baseDir string) []directive {
	var found []directive

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() == KindFragment && n != root {
			return ast.WalkSkipChildren, nil
		}
		if n.Kind() != ast.KindParagraph && n.Kind() != ast.KindTextBlock {
			return ast.WalkContinue, nil
		}

		if target, ok := parseDirective(n, source); ok {
			found = append(found, directive{node: n, target: joinTarget(baseDir, target)})
		}
		return ast.WalkSkipChildren, nil
	})

	return found
}

// parseDirective returns the path named by an include paragraph.
func parseDirective(para ast.Node, source []byte) (string, bool) {
	lines := para.Lines()
	if lines.Len() != 1 {
		return "", false
	}

	seg := lines.At(0)
	line := bytes.TrimSpace(seg.Value(source))
	m := includePattern.FindSubmatch(line)
	if m == nil {
		return "", false
	}
	if len(m[1]) > 0 {
		return string(m[1]), true
	}
	return string(m[2]), true
}

// joinTarget resolves a directive path against baseDir.
func joinTarget(baseDir, target string) string {
	target = filepath.FromSlash(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(baseDir, target)
}

// codeBlockSource wraps non-markdown content in a fence tagged with ext.
func codeBlockSource(content []byte, ext string) []byte {
	content = normalizeSource(content)
	fence := codeFence(string(content), '`')

	var buf bytes.Buffer
	buf.WriteString(fence)
	buf.WriteString(strings.TrimPrefix(ext, "."))
	buf.WriteByte('\n')
	buf.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(fence)
	buf.WriteByte('\n')
	return buf.Bytes()
}
