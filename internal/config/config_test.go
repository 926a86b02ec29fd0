package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

// validConfig returns a config that passes Validate, for tests to break.
func validConfig() *Config {
	return &Config{
		Documents: []DocumentConfig{
			{Source: "docs/source/index.md", Output: "docs/index.md"},
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	want := []DocumentConfig{
		{Source: "docs/source/index.md", Output: "docs/index.md"},
		{Source: "tools/source/index.md", Output: "tools/index.md"},
	}
	if len(cfg.Documents) != len(want) {
		t.Fatalf("len(Documents) = %d, want %d", len(cfg.Documents), len(want))
	}
	for i, d := range cfg.Documents {
		if d != want[i] {
			t.Errorf("Documents[%d] = %+v, want %+v", i, d, want[i])
		}
	}
	if !cfg.Include.RebaseEnabled() {
		t.Error("RebaseEnabled() = false, want true")
	}
	if !cfg.TOC.TightEnabled() {
		t.Error("TightEnabled() = false, want true")
	}
	if cfg.BaseDir != "" {
		t.Errorf("BaseDir = %q, want empty", cfg.BaseDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		max     int
		wantErr bool
	}{
		{"under limit", "abc", 5, false},
		{"at limit", "abcde", 5, false},
		{"over limit", "abcdef", 5, true},
		{"empty", "", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateFieldLength("field", tt.value, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateFieldLength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrFieldTooLong) {
				t.Errorf("error = %v, want ErrFieldTooLong", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestConfig_Validate
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		modify     func(c *Config)
		wantErr    error
		wantSubstr string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:       "no documents",
			modify:     func(c *Config) { c.Documents = nil },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "at least one document",
		},
		{
			name:       "empty source",
			modify:     func(c *Config) { c.Documents[0].Source = " " },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "documents[0].source",
		},
		{
			name:       "empty output",
			modify:     func(c *Config) { c.Documents[0].Output = "" },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "documents[0].output",
		},
		{
			name:       "output same as source",
			modify:     func(c *Config) { c.Documents[0].Output = "./docs/source/index.md" },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "same as source",
		},
		{
			name: "duplicate outputs",
			modify: func(c *Config) {
				c.Documents = append(c.Documents, DocumentConfig{Source: "b.md", Output: "docs/./index.md"})
			},
			wantErr:    ErrInvalidConfig,
			wantSubstr: "documents[1].output",
		},
		{
			name:       "html preview collides with output",
			modify:     func(c *Config) { c.Documents[0].HTML = "docs/index.md" },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "documents[0].html",
		},
		{
			name:       "path too long",
			modify:     func(c *Config) { c.Documents[0].Source = strings.Repeat("a", MaxPathLength+1) },
			wantErr:    ErrFieldTooLong,
			wantSubstr: "documents[0].source",
		},
		{
			name:       "invalid allow glob",
			modify:     func(c *Config) { c.Include.Allow = []string{"docs/[a"} },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "include.allow[0]",
		},
		{
			name:   "valid allow glob",
			modify: func(c *Config) { c.Include.Allow = []string{"docs/**/*.md", "shared/*"} },
		},
		{
			name:       "toc depth too large",
			modify:     func(c *Config) { c.TOC.MaxDepth = 7 },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "toc.maxDepth",
		},
		{
			name:       "negative toc depth",
			modify:     func(c *Config) { c.TOC.MaxDepth = -1 },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "toc.maxDepth",
		},
		{
			name:       "invalid heading regexp",
			modify:     func(c *Config) { c.TOC.Heading = "(" },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "toc.heading",
		},
		{
			name:       "invalid skip regexp",
			modify:     func(c *Config) { c.TOC.Skip = "[" },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "toc.skip",
		},
		{
			name:       "too many workers",
			modify:     func(c *Config) { c.Workers = MaxWorkers + 1 },
			wantErr:    ErrInvalidConfig,
			wantSubstr: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantSubstr)
			}
		})
	}
}

func TestOptionalBools(t *testing.T) {
	t.Parallel()

	if (IncludeConfig{RebaseLinks: boolPtr(false)}).RebaseEnabled() {
		t.Error("RebaseEnabled() = true with rebaseLinks: false")
	}
	if !(IncludeConfig{RebaseLinks: boolPtr(true)}).RebaseEnabled() {
		t.Error("RebaseEnabled() = false with rebaseLinks: true")
	}
	if (TOCConfig{Tight: boolPtr(false)}).TightEnabled() {
		t.Error("TightEnabled() = true with tight: false")
	}
}

func TestConfig_Resolve(t *testing.T) {
	t.Parallel()

	abs, err := filepath.Abs("abs.md")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		baseDir string
		path    string
		want    string
	}{
		{"empty base", "", "docs/a.md", "docs/a.md"},
		{"relative joined", "project", "docs/a.md", filepath.Join("project", "docs", "a.md")},
		{"absolute kept", "project", abs, abs},
		{"empty path", "project", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{BaseDir: tt.baseDir}
			if got := cfg.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "full config",
			content: `documents:
  - source: docs/source/index.md
    output: docs/index.md
    toc: true
    html: site/index.html
include:
  resolveFrom: partials
  allow:
    - "docs/**"
  rebaseLinks: false
toc:
  heading: "^Overview$"
  maxDepth: 3
  skip: "^Changelog$"
  ordered: true
  tight: false
workers: 2
`,
			check: func(t *testing.T, cfg *Config) {
				d := cfg.Documents[0]
				if !d.TOC || d.HTML != "site/index.html" {
					t.Errorf("Documents[0] = %+v", d)
				}
				if cfg.Include.ResolveFrom != "partials" || len(cfg.Include.Allow) != 1 {
					t.Errorf("Include = %+v", cfg.Include)
				}
				if cfg.Include.RebaseEnabled() {
					t.Error("RebaseEnabled() = true, want false")
				}
				if cfg.TOC.MaxDepth != 3 || !cfg.TOC.Ordered || cfg.TOC.TightEnabled() {
					t.Errorf("TOC = %+v", cfg.TOC)
				}
				if cfg.Workers != 2 {
					t.Errorf("Workers = %d, want 2", cfg.Workers)
				}
			},
		},
		{
			name:    "minimal config keeps defaults",
			content: "documents:\n  - source: a.md\n    output: b.md\n",
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Include.RebaseEnabled() || !cfg.TOC.TightEnabled() {
					t.Error("optional booleans should default to true")
				}
			},
		},
		{
			name:    "unknown key",
			content: "documents:\n  - source: a.md\n    output: b.md\n    tocc: true\n",
			wantErr: ErrConfigParse,
		},
		{
			name:    "invalid yaml",
			content: "documents: [\n",
			wantErr: ErrConfigParse,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: ErrConfigParse,
		},
		{
			name:    "fails validation",
			content: "documents: []\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "mdcompose.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("setup: %v", err)
			}

			cfg, err := LoadConfig(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadConfig() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() unexpected error: %v", err)
			}
			if cfg.BaseDir != dir {
				t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigPath) {
		t.Errorf("LoadConfig(\"\") error = %v, want ErrEmptyConfigPath", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadConfig(missing); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig(missing) error = %v, want ErrConfigNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// TestDiscover
// ---------------------------------------------------------------------------

func TestDiscover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   []string
		want    string
		wantErr error
	}{
		{"yaml", []string{"mdcompose.yaml"}, "mdcompose.yaml", nil},
		{"yml", []string{"mdcompose.yml"}, "mdcompose.yml", nil},
		{"hidden", []string{".mdcompose.yaml"}, ".mdcompose.yaml", nil},
		{"visible wins over hidden", []string{".mdcompose.yaml", "mdcompose.yaml"}, "mdcompose.yaml", nil},
		{"none", nil, "", ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, name := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}

			got, err := Discover(dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Discover() error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), "mdcompose.yaml") {
					t.Errorf("error should list tried paths: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Discover() unexpected error: %v", err)
			}
			if want := filepath.Join(dir, tt.want); got != want {
				t.Errorf("Discover() = %q, want %q", got, want)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "mdcompose.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() of marshaled default: %v\n%s", err, data)
	}
	if len(loaded.Documents) != len(cfg.Documents) {
		t.Errorf("round trip lost documents:\n%s", data)
	}
}
