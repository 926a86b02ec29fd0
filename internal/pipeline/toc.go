package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// TOC depth bounds.
const (
	MinTOCDepth     = 1
	MaxTOCDepth     = 6
	DefaultTOCDepth = MaxTOCDepth
)

// DefaultTOCHeading matches the heading that marks where the TOC goes.
var DefaultTOCHeading = regexp.MustCompile(`(?i)^(table[ -]of[ -])?contents?$|^toc$`)

// markdownSpecials are escaped in generated link labels.
var markdownSpecials = strings.NewReplacer(
	`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`", `<`, `\<`,
)

// TOCOptions configures GenerateTOC.
type TOCOptions struct {
	Heading  *regexp.Regexp // marker heading; nil means DefaultTOCHeading
	MaxDepth int            // deepest heading level listed, 1-6; 0 means 6
	Skip     *regexp.Regexp // headings whose text matches are left out
	Ordered  bool           // numbered list instead of bullets
	Tight    bool           // no blank lines between entries
}

// DefaultTOCOptions returns options listing every heading level in a tight
// bullet list.
func DefaultTOCOptions() TOCOptions {
	return TOCOptions{
		Heading:  DefaultTOCHeading,
		MaxDepth: DefaultTOCDepth,
		Tight:    true,
	}
}

// Validate checks the depth bound.
func (o TOCOptions) Validate() error {
	if o.MaxDepth != 0 && (o.MaxDepth < MinTOCDepth || o.MaxDepth > MaxTOCDepth) {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidTOCDepth, o.MaxDepth, MinTOCDepth, MaxTOCDepth)
	}
	return nil
}

// headingInfo is an outline heading with its anchor.
type headingInfo struct {
	node   *ast.Heading
	level  int
	text   string
	anchor string
}

// GenerateTOC inserts a linked list of the document's headings.
//
// The list goes right after the first heading matching opts.Heading and
// replaces whatever sits between that heading and the next heading of the
// same or a higher rank. Only headings after the marker are listed. Without a
// marker the list goes after a leading level-1 heading, or at the top of the
// document. A document without headings is left unchanged.
func GenerateTOC(ctx context.Context, doc *Document, opts TOCOptions) error {
	if doc == nil {
		return ErrNilDocument
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Heading == nil {
		opts.Heading = DefaultTOCHeading
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultTOCDepth
	}

	headings := collectHeadings(doc)
	if len(headings) == 0 {
		return nil
	}

	marker := findMarker(headings, opts.Heading)
	if marker != nil {
		clearSection(marker)
		headings = collectHeadings(doc)
	}
	start, after := insertionPoint(doc, headings, marker)

	var entries []headingInfo
	for _, h := range headings[start:] {
		if h.text == "" || h.level > opts.MaxDepth {
			continue
		}
		if opts.Skip != nil && opts.Skip.MatchString(h.text) {
			continue
		}
		entries = append(entries, h)
	}
	if len(entries) == 0 {
		return nil
	}

	next := firstBlock(doc.Root)
	if after != nil {
		next = nextBlock(after)
	}
	list := buildTOCList(entries, opts, tocMarker(opts, next))
	if after == nil {
		doc.Root.InsertBefore(doc.Root, doc.Root.FirstChild(), list)
		return nil
	}
	parent := after.Parent()
	parent.InsertAfter(parent, after, list)
	return nil
}

// collectHeadings returns outline headings in document order. Anchors are
// generated for every heading, nested or not, so duplicates are numbered the
// same way the HTML renderer numbers them.
func collectHeadings(doc *Document) []headingInfo {
	ids := parser.NewContext().IDs()
	var headings []headingInfo

	_ = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		src := sourceFor(h, doc)
		text := plainText(h, src)
		anchor := string(ids.Generate(headingLine(h, src), ast.KindHeading))

		if isOutlineLevel(h) {
			headings = append(headings, headingInfo{node: h, level: h.Level, text: text, anchor: anchor})
		}
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// findMarker returns the first outline heading matching pattern.
func findMarker(headings []headingInfo, pattern *regexp.Regexp) *ast.Heading {
	for _, h := range headings {
		if pattern.MatchString(h.text) {
			return h.node
		}
	}
	return nil
}

// insertionPoint returns the index of the first heading to list and the node
// the list follows, nil meaning document start.
func insertionPoint(doc *Document, headings []headingInfo, marker *ast.Heading) (int, ast.Node) {
	if marker != nil {
		for i, h := range headings {
			if h.node == marker {
				return i + 1, marker
			}
		}
	}

	first := firstBlock(doc.Root)
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 {
		return 1, first
	}
	return 0, nil
}

// firstBlock returns the first block under n, looking inside fragments.
func firstBlock(n ast.Node) ast.Node {
	c := n.FirstChild()
	for c != nil {
		f, ok := c.(*Fragment)
		if !ok {
			return c
		}
		if inner := firstBlock(f); inner != nil {
			return inner
		}
		c = c.NextSibling()
	}
	return nil
}

// nextBlock returns the block that follows n in reading order, looking
// through fragment boundaries.
func nextBlock(n ast.Node) ast.Node {
	for n != nil {
		for sib := n.NextSibling(); sib != nil; sib = sib.NextSibling() {
			if _, ok := sib.(*Fragment); !ok {
				return sib
			}
			if inner := firstBlock(sib); inner != nil {
				return inner
			}
		}
		p := n.Parent()
		if p == nil || p.Kind() != KindFragment {
			return nil
		}
		n = p
	}
	return nil
}

// tocMarker returns the marker of the generated list. When next is a list of
// the same kind and marker the alternate is used, so the two are not read
// back as one list.
func tocMarker(opts TOCOptions, next ast.Node) byte {
	marker := byte('-')
	if opts.Ordered {
		marker = '.'
	}
	if l, ok := next.(*ast.List); ok && l.IsOrdered() == opts.Ordered && l.Marker == marker {
		return alternateMarker(marker)
	}
	return marker
}

// clearSection removes the nodes after heading up to the next heading of the
// same or a higher rank. A section may run across fragment boundaries.
func clearSection(heading *ast.Heading) {
	for n := ast.Node(heading); n != nil; n = n.Parent() {
		if clearFrom(n.NextSibling(), heading.Level) {
			return
		}
		if p := n.Parent(); p == nil || p.Kind() != KindFragment {
			return
		}
	}
}

// clearFrom removes n and its following siblings until a heading of level or
// above, clearing fragments from the inside. It reports whether such a
// heading was reached.
func clearFrom(n ast.Node, level int) bool {
	for n != nil {
		next := n.NextSibling()
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level <= level {
				return true
			}
		case *Fragment:
			if clearFrom(node.FirstChild(), level) {
				return true
			}
			n = next
			continue
		}
		parent := n.Parent()
		parent.RemoveChild(parent, n)
		n = next
	}
	return false
}

// buildTOCList nests entries by heading level. An entry shallower than the
// first one is attached at the top level.
func buildTOCList(entries []headingInfo, opts TOCOptions, marker byte) *ast.List {
	type level struct {
		list  *ast.List
		depth int
		last  *ast.ListItem
	}

	root := newTOCList(opts, marker)
	stack := []level{{list: root, depth: entries[0].level}}

	for _, e := range entries {
		for len(stack) > 1 && e.level < stack[len(stack)-1].depth {
			stack = stack[:len(stack)-1]
		}

		top := len(stack) - 1
		if e.level > stack[top].depth && stack[top].last != nil {
			child := newTOCList(opts, marker)
			stack[top].last.AppendChild(stack[top].last, child)
			stack = append(stack, level{list: child, depth: e.level})
			top++
		}

		item := newTOCItem(e, opts)
		stack[top].list.AppendChild(stack[top].list, item)
		stack[top].last = item
	}

	return root
}

func newTOCList(opts TOCOptions, marker byte) *ast.List {
	list := ast.NewList(marker)
	list.IsTight = opts.Tight
	if opts.Ordered {
		list.Start = 1
	}
	return list
}

func newTOCItem(e headingInfo, opts TOCOptions) *ast.ListItem {
	link := ast.NewLink()
	link.Destination = []byte("#" + e.anchor)
	link.AppendChild(link, ast.NewString([]byte(markdownSpecials.Replace(e.text))))

	var block ast.Node = ast.NewTextBlock()
	if !opts.Tight {
		block = ast.NewParagraph()
	}
	block.AppendChild(block, link)

	item := ast.NewListItem(0)
	item.AppendChild(item, block)
	return item
}

// headingLine returns the raw last line of a heading, the value goldmark
// derives automatic heading ids from.
func headingLine(h *ast.Heading, src []byte) []byte {
	n := h.Lines().Len()
	if n == 0 {
		return nil
	}
	seg := h.Lines().At(n - 1)
	return seg.Value(src)
}

// plainText returns the text content of an inline tree, dropping markup and
// image descriptions.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(util.UnescapePunctuations(node.Segment.Value(src)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String())
}
