package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// RebaseLinks rewrites relative link and image destinations inside included
// fragments so they resolve from baseDir, the directory of the root document.
// Destinations in the root document itself are left as written.
//
// Rewrites:
//   - [text](relative/path.md) and ![alt](img/pic.png) inside fragments
//   - the path part only; #fragment and ?query suffixes are kept
//
// Does NOT rewrite:
//   - URLs with a scheme (http:, https:, mailto:, file:, data:)
//   - protocol-relative URLs and in-page anchors
//   - absolute paths
//   - autolinks and raw HTML
func RebaseLinks(ctx context.Context, doc *Document, baseDir string) error {
	if doc == nil {
		return ErrNilDocument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return err
	}

	return ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var dest *[]byte
		switch node := n.(type) {
		case *ast.Link:
			dest = &node.Destination
		case *ast.Image:
			dest = &node.Destination
		default:
			return ast.WalkContinue, nil
		}

		frag := fragmentOf(n)
		if frag == nil {
			return ast.WalkContinue, nil
		}

		if rebased, ok := rebase(string(*dest), filepath.Dir(frag.Path), absBase); ok {
			*dest = []byte(rebased)
		}
		return ast.WalkContinue, nil
	})
}

// rebase re-expresses dest, relative to fromDir, as a path relative to toDir.
// toDir must be absolute.
func rebase(dest, fromDir, toDir string) (string, bool) {
	if !isRelativePath(dest) {
		return "", false
	}

	path, suffix := splitSuffix(dest)
	if path == "" {
		return "", false
	}

	absFrom, err := filepath.Abs(fromDir)
	if err != nil {
		return "", false
	}

	target := filepath.Join(absFrom, filepath.FromSlash(path))
	rel, err := filepath.Rel(toDir, target)
	if err != nil {
		return "", false
	}

	rebased := filepath.ToSlash(rel)
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(rebased, "/") {
		rebased += "/"
	}
	return rebased + suffix, true
}

// splitSuffix separates a trailing ?query or #fragment from a path.
func splitSuffix(dest string) (path, suffix string) {
	if i := strings.IndexAny(dest, "?#"); i >= 0 {
		return dest[:i], dest[i:]
	}
	return dest, ""
}

// isRelativePath returns true if the destination should be rebased.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	// Skip anchors and protocol-relative URLs
	if strings.HasPrefix(path, "#") || strings.HasPrefix(path, "//") {
		return false
	}

	// Skip anything with a URL scheme (http:, mailto:, data:, ...)
	if hasScheme(path) {
		return false
	}

	// Skip absolute paths
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	return true
}

// hasScheme reports whether path starts with an RFC 3986 scheme followed by
// a colon. Single letters are treated as Windows drive letters, not schemes.
func hasScheme(path string) bool {
	i := strings.IndexByte(path, ':')
	if i < 2 {
		return false
	}
	for j, c := range path[:i] {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
