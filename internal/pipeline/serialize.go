package pipeline

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// Markdown produced by Serialize uses one spelling per construct:
// ATX headings, fenced code, *emphasis*, *** breaks, inline links.
// _emphasis_ is used only where * would merge with a neighbouring *.
const (
	blockSeparator = "\n\n"
	thematicBreak  = "***"
	minFenceLength = 3
)

// serializer writes a goldmark AST back to markdown text.
type serializer struct{}

// Serialize renders doc as markdown. Front matter is written back verbatim.
// The result ends with a single newline unless the document is empty.
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	s := &serializer{}
	body, err := s.children(doc.Root, doc.Source, blockSeparator)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if fm := trimTrailingSpace(doc.FrontMatter); len(fm) > 0 {
		buf.Write(fm)
		buf.WriteByte('\n')
		if body != "" {
			buf.WriteByte('\n')
		}
	}
	if body != "" {
		buf.WriteString(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// children renders the block children of n joined by sep.
// Blocks that render to nothing are dropped.
func (s *serializer) children(n ast.Node, src []byte, sep string) (string, error) {
	var prev precedingList
	return s.join(n, src, sep, &prev)
}

// precedingList records the list written just before the next block.
type precedingList struct {
	set     bool
	ordered bool
	marker  byte
}

// continues reports whether a list of this kind and marker, written right
// after prev, would be read back as part of the previous list.
func (p precedingList) continues(l *ast.List, marker byte) bool {
	return p.set && p.ordered == l.IsOrdered() && p.marker == marker
}

// join renders the blocks under n, reading through fragments so that blocks
// from different files are checked against each other. A list that would
// merge with the list before it gets the alternate marker.
func (s *serializer) join(n ast.Node, src []byte, sep string, prev *precedingList) (string, error) {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var (
			out string
			err error
		)
		switch node := c.(type) {
		case *Fragment:
			out, err = s.join(node, node.Source, blockSeparator, prev)

		case *ast.List:
			marker := node.Marker
			if prev.continues(node, marker) {
				marker = alternateMarker(marker)
			}
			out, err = s.list(node, src, marker)
			if err == nil && out != "" {
				*prev = precedingList{set: true, ordered: node.IsOrdered(), marker: marker}
			}

		default:
			out, err = s.block(c, src)
			if err == nil && out != "" {
				*prev = precedingList{}
			}
		}
		if err != nil {
			return "", err
		}
		if out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, sep), nil
}

func (s *serializer) block(n ast.Node, src []byte) (string, error) {
	switch node := n.(type) {
	case *ast.Heading:
		text, err := s.inlines(node, src)
		if err != nil {
			return "", err
		}
		marker := strings.Repeat("#", node.Level)
		text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
		if text == "" {
			return marker, nil
		}
		return marker + " " + text, nil

	case *ast.Paragraph, *ast.TextBlock:
		return s.inlines(node, src)

	case *ast.ThematicBreak:
		return thematicBreak, nil

	case *ast.FencedCodeBlock:
		var info string
		if node.Info != nil {
			info = string(node.Info.Segment.Value(src))
		}
		return fencedCode(rawLines(node, src), info), nil

	case *ast.CodeBlock:
		return fencedCode(rawLines(node, src), ""), nil

	case *ast.HTMLBlock:
		out := rawLines(node, src)
		if node.HasClosure() {
			out += string(node.ClosureLine.Value(src))
		}
		return strings.TrimRight(out, "\n"), nil

	case *ast.Blockquote:
		inner, err := s.children(node, src, blockSeparator)
		if err != nil {
			return "", err
		}
		return quote(inner), nil

	case *extast.Table:
		return s.table(node, src)

	default:
		if n.Lines().Len() > 0 {
			return strings.TrimRight(rawLines(n, src), "\n"), nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNode, n.Kind())
	}
}

// list renders a bullet or ordered list with marker, normally the one it
// was written with.
func (s *serializer) list(l *ast.List, src []byte, marker byte) (string, error) {
	sep := blockSeparator
	if l.IsTight {
		sep = "\n"
	}

	var items []string
	number := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		prefix := string(marker)
		if l.IsOrdered() {
			prefix = strconv.Itoa(number) + string(marker)
			number++
		}

		content, err := s.children(item, src, sep)
		if err != nil {
			return "", err
		}
		items = append(items, listItem(prefix, content))
	}
	return strings.Join(items, sep), nil
}

// alternateMarker returns the marker used to keep a list apart from a
// preceding list written with m.
func alternateMarker(m byte) byte {
	switch m {
	case '-':
		return '*'
	case '.':
		return ')'
	case ')':
		return '.'
	default:
		return '-'
	}
}

// table renders a GFM table. Cells are not padded to a common width.
func (s *serializer) table(t *extast.Table, src []byte) (string, error) {
	columns := len(t.Alignments)
	var lines []string

	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		cells := make([]string, 0, columns)
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			text, err := s.inlines(cell, src)
			if err != nil {
				return "", err
			}
			cells = append(cells, strings.TrimSpace(strings.ReplaceAll(text, "\n", " ")))
		}
		for len(cells) < columns {
			cells = append(cells, "")
		}
		lines = append(lines, tableRow(cells))

		if row.Kind() == extast.KindTableHeader {
			lines = append(lines, tableDelimiter(t.Alignments))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// inlines renders the inline children of n.
func (s *serializer) inlines(n ast.Node, src []byte) (string, error) {
	var (
		sb        strings.Builder
		prevDelim byte
	)
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if em, ok := c.(*ast.Emphasis); ok {
			delim := emphasisDelimiter(em, prevDelim, src)
			if err := s.emphasis(&sb, em, delim, src); err != nil {
				return "", err
			}
			prevDelim = delim
			continue
		}
		prevDelim = 0
		if err := s.inline(&sb, c, src); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// emphasis writes em wrapped in its delimiter run.
func (s *serializer) emphasis(sb *strings.Builder, em *ast.Emphasis, delim byte, src []byte) error {
	inner, err := s.inlines(em, src)
	if err != nil {
		return err
	}
	run := strings.Repeat(string(delim), em.Level)
	sb.WriteString(run + inner + run)
	return nil
}

// emphasisDelimiter picks * for em unless its delimiters would touch another
// * and merge with it, in which case it picks _. prevDelim is the delimiter
// of an emphasis written right before em, or 0. _ is kept away from letters
// and digits outside the span, where it could not open or close.
func emphasisDelimiter(em *ast.Emphasis, prevDelim byte, src []byte) byte {
	before := edgeText(em.PreviousSibling(), src)
	after := edgeText(em.NextSibling(), src)

	touches := prevDelim == '*' ||
		bytes.HasSuffix(before, []byte("*")) ||
		bytes.HasPrefix(after, []byte("*"))
	if !touches {
		return '*'
	}

	if len(before) > 0 && isWordByte(before[len(before)-1]) {
		return '*'
	}
	if len(after) > 0 && isWordByte(after[0]) {
		return '*'
	}
	return '_'
}

// edgeText returns the literal text of a text node, nil for anything else.
func edgeText(n ast.Node, src []byte) []byte {
	switch t := n.(type) {
	case *ast.Text:
		return t.Segment.Value(src)
	case *ast.String:
		return t.Value
	}
	return nil
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 0x80
}

func (s *serializer) inline(sb *strings.Builder, n ast.Node, src []byte) error {
	switch node := n.(type) {
	case *ast.Text:
		sb.Write(node.Segment.Value(src))
		switch {
		case node.HardLineBreak():
			sb.WriteString("\\\n")
		case node.SoftLineBreak():
			sb.WriteByte('\n')
		}

	case *ast.String:
		sb.Write(node.Value)

	case *ast.CodeSpan:
		sb.WriteString(codeSpan(codeSpanText(node, src)))

	case *ast.Link:
		label, err := s.inlines(node, src)
		if err != nil {
			return err
		}
		sb.WriteString("[" + label + "]" + linkTarget(node.Destination, node.Title))

	case *ast.Image:
		alt, err := s.inlines(node, src)
		if err != nil {
			return err
		}
		sb.WriteString("![" + alt + "]" + linkTarget(node.Destination, node.Title))

	case *ast.AutoLink:
		sb.WriteString("<" + string(node.Label(src)) + ">")

	case *ast.RawHTML:
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			sb.Write(seg.Value(src))
		}

	case *extast.Strikethrough:
		inner, err := s.inlines(node, src)
		if err != nil {
			return err
		}
		sb.WriteString("~~" + inner + "~~")

	case *extast.TaskCheckBox:
		if node.IsChecked {
			sb.WriteString("[x] ")
		} else {
			sb.WriteString("[ ] ")
		}

	default:
		if !n.HasChildren() {
			return fmt.Errorf("%w: %s", ErrUnsupportedNode, n.Kind())
		}
		inner, err := s.inlines(n, src)
		if err != nil {
			return err
		}
		sb.WriteString(inner)
	}
	return nil
}

// rawLines concatenates the line segments of a block.
func rawLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

// fencedCode wraps body in a fence long enough not to clash with it.
func fencedCode(body, info string) string {
	fenceChar := byte('`')
	if strings.ContainsRune(info, '`') {
		fenceChar = '~'
	}
	fence := codeFence(body, fenceChar)

	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return fence + info + "\n" + body + fence
}

// codeFence returns a run of ch longer than any run of ch in content.
func codeFence(content string, ch byte) string {
	n := longestRun(content, ch) + 1
	if n < minFenceLength {
		n = minFenceLength
	}
	return strings.Repeat(string(ch), n)
}

func longestRun(s string, ch byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return longest
}

// codeSpanText returns the literal content of a code span.
// Line endings inside the span become spaces, as in rendered output.
func codeSpanText(n *ast.CodeSpan, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			value := t.Segment.Value(src)
			if bytes.HasSuffix(value, []byte("\n")) {
				sb.Write(value[:len(value)-1])
				sb.WriteByte(' ')
				continue
			}
			sb.Write(value)
		case *ast.String:
			sb.Write(t.Value)
		}
	}
	return sb.String()
}

// codeSpan quotes content with enough backticks, padding with spaces where
// the content would otherwise merge with the delimiters or lose its edges.
func codeSpan(content string) string {
	ticks := strings.Repeat("`", longestRun(content, '`')+1)

	pad := strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") ||
		(len(content) > 1 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "")
	if pad {
		return ticks + " " + content + " " + ticks
	}
	return ticks + content + ticks
}

// linkTarget renders the parenthesized destination and title of a link.
func linkTarget(destination, title []byte) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(formatDestination(string(destination)))
	if len(title) > 0 {
		sb.WriteString(` "`)
		sb.WriteString(strings.ReplaceAll(string(title), `"`, `\"`))
		sb.WriteByte('"')
	}
	sb.WriteByte(')')
	return sb.String()
}

// formatDestination uses the angle-bracket form when the bare form would
// not parse back to the same destination.
func formatDestination(dest string) string {
	if dest == "" {
		return "<>"
	}
	if strings.ContainsAny(dest, " \t\n<>") || !balancedParens(dest) {
		return "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(dest) + ">"
	}
	return dest
}

func balancedParens(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// quote prefixes every line with a blockquote marker.
func quote(content string) string {
	if content == "" {
		return ">"
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

// listItem places marker before the first line of content and indents the
// rest to the content column.
func listItem(marker, content string) string {
	if content == "" {
		return marker
	}
	indent := strings.Repeat(" ", len(marker)+1)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = marker + " " + line
		case line == "":
			// blank lines stay empty
		default:
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func tableDelimiter(alignments []extast.Alignment) string {
	cells := make([]string, len(alignments))
	for i, a := range alignments {
		switch a {
		case extast.AlignLeft:
			cells[i] = ":--"
		case extast.AlignRight:
			cells[i] = "--:"
		case extast.AlignCenter:
			cells[i] = ":-:"
		default:
			cells[i] = "---"
		}
	}
	return tableRow(cells)
}
