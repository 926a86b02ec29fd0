package pipeline

import (
	"context"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestParse - Normalization and front matter
// ---------------------------------------------------------------------------

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		content         string
		wantSource      string
		wantFrontMatter bool
		wantMeta        map[string]any
	}{
		{
			name:       "plain markdown",
			content:    "# Title\n\nBody\n",
			wantSource: "# Title\n\nBody\n",
		},
		{
			name:       "CRLF line endings",
			content:    "# Title\r\n\r\nBody\r\n",
			wantSource: "# Title\n\nBody\n",
		},
		{
			name:       "lone CR line endings",
			content:    "# Title\r\rBody\r",
			wantSource: "# Title\n\nBody\n",
		},
		{
			name:       "byte order mark stripped",
			content:    "\xEF\xBB\xBF# Title\n",
			wantSource: "# Title\n",
		},
		{
			name:            "YAML front matter",
			content:         "---\ntitle: Guide\n---\n\n# Title\n",
			wantSource:      "# Title\n",
			wantFrontMatter: true,
			wantMeta:        map[string]any{"title": "Guide"},
		},
		{
			name:            "TOML front matter",
			content:         "+++\ntitle = \"Guide\"\n+++\n\n# Title\n",
			wantSource:      "# Title\n",
			wantFrontMatter: true,
			wantMeta:        map[string]any{"title": "Guide"},
		},
		{
			name:       "thematic break later in file is not front matter",
			content:    "Intro\n\n---\n\nMore\n",
			wantSource: "Intro\n\n---\n\nMore\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := NewParser().Parse(context.Background(), "doc.md", []byte(tt.content))
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}

			if got := string(doc.Source); got != tt.wantSource {
				t.Errorf("Source = %q, want %q", got, tt.wantSource)
			}
			if got := len(doc.FrontMatter) > 0; got != tt.wantFrontMatter {
				t.Errorf("has front matter = %v, want %v (%q)", got, tt.wantFrontMatter, doc.FrontMatter)
			}
			for key, want := range tt.wantMeta {
				if got := doc.Meta[key]; got != want {
					t.Errorf("Meta[%q] = %v, want %v", key, got, want)
				}
			}
			if doc.Root == nil {
				t.Error("Root is nil")
			}
			if doc.Path != "doc.md" {
				t.Errorf("Path = %q, want %q", doc.Path, "doc.md")
			}
		})
	}
}

func TestParse_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, "doc.md", []byte("# Title\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parse() error = %v, want context.Canceled", err)
	}
}

func TestParse_FrontMatterRoundTrip(t *testing.T) {
	t.Parallel()

	src := "---\ntitle: Guide\ntags:\n  - a\n---\n\n# Title\n"
	doc := mustParse(t, "doc.md", src)

	if got := mustSerialize(t, doc); got != src {
		t.Errorf("front matter not preserved\ngot:  %q\nwant: %q", got, src)
	}
}
