package pipeline

import (
	"github.com/yuin/goldmark/ast"
)

// KindFragment is the NodeKind of Fragment.
var KindFragment = ast.NewNodeKind("Fragment")

// Fragment is a block node holding the blocks of an included file.
// Text segments of its descendants index into Source rather than into the
// source of the enclosing document.
type Fragment struct {
	ast.BaseBlock
	Path   string
	Source []byte
}

// NewFragment returns an empty Fragment for the file at path.
func NewFragment(path string, source []byte) *Fragment {
	return &Fragment{Path: path, Source: source}
}

// Kind implements ast.Node.
func (n *Fragment) Kind() ast.NodeKind {
	return KindFragment
}

// Dump implements ast.Node.
func (n *Fragment) Dump(_ []byte, level int) {
	ast.DumpHelper(n, n.Source, level, map[string]string{"Path": n.Path}, nil)
}

// adopt moves every child of from into the fragment.
func (n *Fragment) adopt(from ast.Node) {
	for c := from.FirstChild(); c != nil; {
		next := c.NextSibling()
		n.AppendChild(n, c)
		c = next
	}
}

// sourceFor returns the source buffer that node's segments index into.
func sourceFor(node ast.Node, doc *Document) []byte {
	for p := node; p != nil; p = p.Parent() {
		if f, ok := p.(*Fragment); ok {
			return f.Source
		}
	}
	return doc.Source
}

// fragmentOf returns the nearest enclosing Fragment, or nil for nodes that
// belong to the root document.
func fragmentOf(node ast.Node) *Fragment {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if f, ok := p.(*Fragment); ok {
			return f
		}
	}
	return nil
}

// isOutlineLevel reports whether every ancestor of node is the document or a
// fragment, i.e. the node would sit at the top level once includes are inlined.
func isOutlineLevel(node ast.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case ast.KindDocument, KindFragment:
			continue
		default:
			return false
		}
	}
	return true
}
