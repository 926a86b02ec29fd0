package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Document is a parsed markdown file.
// AST text segments index into Source, except under Fragment nodes,
// which carry the source of the file they were included from.
type Document struct {
	Path        string         // file the document was read from
	Source      []byte         // normalized body, front matter removed
	FrontMatter []byte         // raw front matter block with delimiters, nil if absent
	Meta        map[string]any // decoded front matter
	Root        ast.Node
	Includes    []string // files spliced in by ResolveIncludes, in resolution order
}

// Parser turns markdown source into Documents using goldmark.
// A Parser holds no per-document state and is safe for concurrent use.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a Parser with the GFM block and inline extensions the
// serializer knows how to write back.
func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,         // | a | b |
			extension.Strikethrough, // ~~text~~
			extension.TaskList,      // - [x] done
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // ids match the anchors GenerateTOC links to
		),
	)
	return &Parser{md: md}
}

// Parse normalizes content, splits off front matter and builds the AST.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content = normalizeSource(content)

	raw, body, meta, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	root := p.md.Parser().Parse(text.NewReader(body))

	return &Document{
		Path:        path,
		Source:      body,
		FrontMatter: raw,
		Meta:        meta,
		Root:        root,
	}, nil
}

// splitFrontMatter separates a leading front matter block from the body.
// Content without front matter comes back unchanged as body.
func splitFrontMatter(content []byte) (raw, body []byte, meta map[string]any, err error) {
	if !hasFrontMatterDelimiter(content) {
		return nil, content, nil, nil
	}

	meta = map[string]any{}
	rest, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err != nil {
		return nil, nil, nil, err
	}

	// The raw block is whatever the library consumed ahead of the body.
	if len(rest) < len(content) && bytes.HasSuffix(content, rest) {
		raw = content[:len(content)-len(rest)]
	}
	return raw, bytes.TrimLeft(rest, "\n"), meta, nil
}

// hasFrontMatterDelimiter reports whether content opens with a YAML or TOML
// front matter delimiter line.
func hasFrontMatterDelimiter(content []byte) bool {
	for _, delim := range []string{"---\n", "+++\n"} {
		if bytes.HasPrefix(content, []byte(delim)) {
			return true
		}
	}
	return false
}
