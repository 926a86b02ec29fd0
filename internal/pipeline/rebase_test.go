package pipeline

// Notes:
// - Documents are built through Parse + ResolveIncludes over an in-memory
//   file set so fragments carry realistic paths
// - Windows drive-letter handling is covered by hasScheme only; the end to end
//   cases use slash paths rooted at testRoot

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRebaseLinks - Destinations in included fragments
// ---------------------------------------------------------------------------

func TestRebaseLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   memFiles
		want    []string
		exclude []string
	}{
		{
			name: "sibling directory include",
			files: memFiles{
				"docs/index.md":  "# Docs\n\n@include \"../shared/part.md\"\n",
				"shared/part.md": "See [guide](guide.md) and ![logo](img/logo.png).\n",
			},
			want: []string{
				"[guide](../shared/guide.md)",
				"![logo](../shared/img/logo.png)",
			},
		},
		{
			name: "fragment and query suffix kept",
			files: memFiles{
				"docs/index.md":   "@include \"parts/a.md\"\n",
				"docs/parts/a.md": "[setup](guide.md#setup) [q](search.md?q=go)\n",
			},
			want: []string{
				"[setup](parts/guide.md#setup)",
				"[q](parts/search.md?q=go)",
			},
		},
		{
			name: "nested includes resolve from their own file",
			files: memFiles{
				"docs/index.md":   "@include \"a/one.md\"\n",
				"docs/a/one.md":   "[one](one-ref.md)\n\n@include \"b/two.md\"\n",
				"docs/a/b/two.md": "[two](two-ref.md)\n",
			},
			want: []string{
				"[one](a/one-ref.md)",
				"[two](a/b/two-ref.md)",
			},
		},
		{
			name: "same directory include unchanged",
			files: memFiles{
				"docs/index.md": "@include \"part.md\"\n",
				"docs/part.md":  "[x](x.md)\n",
			},
			want: []string{"[x](x.md)"},
		},
		{
			name: "parent traversal collapses",
			files: memFiles{
				"docs/index.md":     "@include \"deep/part.md\"\n",
				"docs/deep/part.md": "[up](../up.md)\n",
			},
			want: []string{"[up](up.md)"},
		},
		{
			name: "non relative destinations untouched",
			files: memFiles{
				"docs/index.md":  "@include \"../shared/part.md\"\n",
				"shared/part.md": "[web](https://example.com) [mail](mailto:a@b.c) " +
					"[top](#top) [abs](/abs.md) [proto](//cdn.example.com/x.js)\n",
			},
			want: []string{
				"[web](https://example.com)",
				"[mail](mailto:a@b.c)",
				"[top](#top)",
				"[abs](/abs.md)",
				"[proto](//cdn.example.com/x.js)",
			},
		},
		{
			name: "root document links untouched",
			files: memFiles{
				"docs/index.md":  "[local](local.md)\n\n@include \"../shared/part.md\"\n",
				"shared/part.md": "text\n",
			},
			want:    []string{"[local](local.md)"},
			exclude: []string{"../docs/local.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := mustInclude(t, tt.files, "docs/index.md")
			if err := RebaseLinks(context.Background(), doc, testPath("docs")); err != nil {
				t.Fatalf("RebaseLinks() unexpected error: %v", err)
			}
			got := mustSerialize(t, doc)

			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ngot:\n%s", want, got)
				}
			}
			for _, exclude := range tt.exclude {
				if strings.Contains(got, exclude) {
					t.Errorf("output should not contain %q\ngot:\n%s", exclude, got)
				}
			}
		})
	}
}

func TestRebaseLinks_NoIncludesIsIdentity(t *testing.T) {
	t.Parallel()

	src := "# Title\n\n[a](a.md) ![b](img/b.png)\n"
	doc := mustParse(t, "docs/index.md", src)
	if err := RebaseLinks(context.Background(), doc, testPath("elsewhere")); err != nil {
		t.Fatalf("RebaseLinks() unexpected error: %v", err)
	}

	if got := mustSerialize(t, doc); got != src {
		t.Errorf("RebaseLinks() changed a document without includes\ngot:  %q\nwant: %q", got, src)
	}
}

func TestRebaseLinks_Errors(t *testing.T) {
	t.Parallel()

	t.Run("nil document", func(t *testing.T) {
		t.Parallel()
		err := RebaseLinks(context.Background(), nil, testRoot)
		if !errors.Is(err, ErrNilDocument) {
			t.Errorf("RebaseLinks(nil) error = %v, want ErrNilDocument", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		doc := mustParse(t, "docs/index.md", "text\n")
		if err := RebaseLinks(ctx, doc, testRoot); !errors.Is(err, context.Canceled) {
			t.Errorf("RebaseLinks() error = %v, want context.Canceled", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestIsRelativePath - Destination classification
// ---------------------------------------------------------------------------

func TestIsRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"guide.md", true},
		{"./guide.md", true},
		{"../guide.md", true},
		{"img/logo.png", true},
		{"C:relative", true},
		{"", false},
		{"#anchor", false},
		{"//cdn.example.com/lib.js", false},
		{"/abs/path.md", false},
		{"https://example.com", false},
		{"mailto:someone@example.com", false},
		{"data:image/png;base64,AAAA", false},
		{"file:///tmp/x.md", false},
		{"svn+ssh://host/repo", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := isRelativePath(tt.path); got != tt.want {
				t.Errorf("isRelativePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSplitSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dest       string
		wantPath   string
		wantSuffix string
	}{
		{"a.md", "a.md", ""},
		{"a.md#sec", "a.md", "#sec"},
		{"a.md?x=1#sec", "a.md", "?x=1#sec"},
		{"#only", "", "#only"},
	}

	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			t.Parallel()
			path, suffix := splitSuffix(tt.dest)
			if path != tt.wantPath || suffix != tt.wantSuffix {
				t.Errorf("splitSuffix(%q) = (%q, %q), want (%q, %q)",
					tt.dest, path, suffix, tt.wantPath, tt.wantSuffix)
			}
		})
	}
}
