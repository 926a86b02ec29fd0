package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// highlightStyle is the chroma style embedded in preview pages.
const highlightStyle = "github"

// htmlTemplate wraps Goldmark's fragment output in a complete HTML5 document.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s</style>
</head>
<body>
%s
</body>
</html>
`

// HTMLRenderer converts composed markdown into standalone preview pages.
// It is safe for concurrent use.
type HTMLRenderer struct {
	md goldmark.Markdown
}

// NewHTMLRenderer creates an HTMLRenderer with GFM extensions and syntax
// highlighting.
func NewHTMLRenderer() *HTMLRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // page carries the stylesheet once
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // TOC links point at these ids
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			// Raw HTML is left out of previews; WithUnsafe is not set.
		),
	)
	return &HTMLRenderer{md: md}
}

var (
	highlightCSSOnce sync.Once
	highlightCSS     string
)

// stylesheet returns the chroma CSS for highlightStyle, built once.
func stylesheet() string {
	highlightCSSOnce.Do(func() {
		var buf bytes.Buffer
		formatter := chromahtml.New(chromahtml.WithClasses(true))
		if err := formatter.WriteCSS(&buf, styles.Get(highlightStyle)); err == nil {
			highlightCSS = buf.String()
		}
	})
	return highlightCSS
}

// Render converts markdown to a standalone HTML5 document titled title.
// Front matter is left out of the page.
// Goldmark does not take a context, so conversion runs in a goroutine and the
// call returns early on cancellation.
func (r *HTMLRenderer) Render(ctx context.Context, markdown []byte, title string) ([]byte, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		html []byte
		err  error
	}

	done := make(chan result, 1)

	go func() {
		body := markdown
		if _, rest, _, err := splitFrontMatter(markdown); err == nil {
			body = rest
		}

		var buf bytes.Buffer
		if err := r.md.Convert(body, &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		page := fmt.Sprintf(htmlTemplate, stdhtml.EscapeString(title), stylesheet(), buf.String())
		done <- result{html: []byte(page)}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}
