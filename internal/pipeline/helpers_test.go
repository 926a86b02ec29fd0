package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
)

// ---------------------------------------------------------------------------
// Shared test helpers
// ---------------------------------------------------------------------------

// testRoot is the directory fake documents live under.
var testRoot = filepath.FromSlash("/project")

// testPath joins slash-separated elements under testRoot.
func testPath(elem string) string {
	return filepath.Join(testRoot, filepath.FromSlash(elem))
}

// memFiles is an in-memory file set keyed by testPath-relative slash paths.
type memFiles map[string]string

// ReadFile implements ReadFileFunc over the map.
func (m memFiles) ReadFile(path string) ([]byte, error) {
	for rel, content := range m {
		if filepath.Clean(path) == testPath(rel) {
			return []byte(content), nil
		}
	}
	return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}

// mustParse parses content as the document at rel.
func mustParse(t *testing.T, rel, content string) *Document {
	t.Helper()
	doc, err := NewParser().Parse(context.Background(), testPath(rel), []byte(content))
	if err != nil {
		t.Fatalf("Parse(%s) unexpected error: %v", rel, err)
	}
	return doc
}

// mustSerialize serializes doc and fails the test on error.
func mustSerialize(t *testing.T, doc *Document) string {
	t.Helper()
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize() unexpected error: %v", err)
	}
	return string(out)
}

// mustInclude parses rel from files and resolves its includes.
func mustInclude(t *testing.T, files memFiles, rel string) *Document {
	t.Helper()
	doc := mustParse(t, rel, files[rel])
	err := ResolveIncludes(context.Background(), doc, IncludeOptions{ReadFile: files.ReadFile})
	if err != nil {
		t.Fatalf("ResolveIncludes() unexpected error: %v", err)
	}
	return doc
}
