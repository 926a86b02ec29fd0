// Package config loads and validates mdcompose project files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alnah/go-mdcompose/internal/fileutil"
	"github.com/alnah/go-mdcompose/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigPath = errors.New("config path cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// Limits on config values.
const (
	MaxPathLength    = 4096 // PATH_MAX on Linux
	MaxPatternLength = 1024 // regexp and glob sources
	MaxDocuments     = 1000
	MaxWorkers       = 64
	MaxTOCDepth      = 6
)

// DefaultFileNames are looked up, in order, when no config path is given.
var DefaultFileNames = []string{
	"mdcompose.yaml",
	"mdcompose.yml",
	".mdcompose.yaml",
	".mdcompose.yml",
}

// Config is an mdcompose project file.
type Config struct {
	Documents []DocumentConfig `yaml:"documents"`
	Include   IncludeConfig    `yaml:"include"`
	TOC       TOCConfig        `yaml:"toc"`
	Workers   int              `yaml:"workers"` // 0 = auto

	// BaseDir is the directory relative paths resolve against: the directory
	// of the loaded file, or empty for the working directory.
	BaseDir string `yaml:"-"`
}

// DocumentConfig is one source/output pair.
type DocumentConfig struct {
	Source string `yaml:"source"`
	Output string `yaml:"output"`
	TOC    bool   `yaml:"toc"`
	HTML   string `yaml:"html,omitempty"` // optional preview page
}

// IncludeConfig configures @include resolution.
type IncludeConfig struct {
	ResolveFrom string   `yaml:"resolveFrom,omitempty"`
	Allow       []string `yaml:"allow,omitempty"`
	RebaseLinks *bool    `yaml:"rebaseLinks,omitempty"` // nil = true
}

// RebaseEnabled reports whether link rebasing is on. It defaults to true.
func (i IncludeConfig) RebaseEnabled() bool {
	return i.RebaseLinks == nil || *i.RebaseLinks
}

// TOCConfig configures table of contents generation for pairs with toc: true.
type TOCConfig struct {
	Heading  string `yaml:"heading,omitempty"`  // marker regexp, empty = default
	MaxDepth int    `yaml:"maxDepth,omitempty"` // 1-6, 0 = 6
	Skip     string `yaml:"skip,omitempty"`     // regexp of headings to leave out
	Ordered  bool   `yaml:"ordered,omitempty"`
	Tight    *bool  `yaml:"tight,omitempty"` // nil = true
}

// TightEnabled reports whether the TOC list is tight. It defaults to true.
func (t TOCConfig) TightEnabled() bool {
	return t.Tight == nil || *t.Tight
}

// Validate checks the config for values the composer would reject or
// silently mishandle. Called by LoadConfig, but available for callers that
// build a Config by hand.
func (c *Config) Validate() error {
	if len(c.Documents) == 0 {
		return fmt.Errorf("%w: documents: at least one document is required", ErrInvalidConfig)
	}
	if len(c.Documents) > MaxDocuments {
		return fmt.Errorf("%w: documents: %d entries (max %d)", ErrInvalidConfig, len(c.Documents), MaxDocuments)
	}

	outputs := make(map[string]string, len(c.Documents))
	claim := func(field, path string) error {
		key := filepath.Clean(path)
		if prev, ok := outputs[key]; ok {
			return fmt.Errorf("%w: %s: %q already written by %s", ErrInvalidConfig, field, path, prev)
		}
		outputs[key] = field
		return nil
	}

	for i, d := range c.Documents {
		prefix := fmt.Sprintf("documents[%d]", i)

		if strings.TrimSpace(d.Source) == "" {
			return fmt.Errorf("%w: %s.source: required", ErrInvalidConfig, prefix)
		}
		if strings.TrimSpace(d.Output) == "" {
			return fmt.Errorf("%w: %s.output: required", ErrInvalidConfig, prefix)
		}
		for _, f := range []field{{"source", d.Source}, {"output", d.Output}, {"html", d.HTML}} {
			if err := validateFieldLength(prefix+"."+f.name, f.value, MaxPathLength); err != nil {
				return err
			}
		}
		if filepath.Clean(d.Source) == filepath.Clean(d.Output) {
			return fmt.Errorf("%w: %s.output: same as source %q", ErrInvalidConfig, prefix, d.Source)
		}

		if err := claim(prefix+".output", d.Output); err != nil {
			return err
		}
		if d.HTML != "" {
			if err := claim(prefix+".html", d.HTML); err != nil {
				return err
			}
		}
	}

	if err := validateFieldLength("include.resolveFrom", c.Include.ResolveFrom, MaxPathLength); err != nil {
		return err
	}
	for i, pattern := range c.Include.Allow {
		field := fmt.Sprintf("include.allow[%d]", i)
		if err := validateFieldLength(field, pattern, MaxPatternLength); err != nil {
			return err
		}
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: %s: invalid glob %q", ErrInvalidConfig, field, pattern)
		}
	}

	if c.TOC.MaxDepth < 0 || c.TOC.MaxDepth > MaxTOCDepth {
		return fmt.Errorf("%w: toc.maxDepth: must be between 1 and %d, got %d", ErrInvalidConfig, MaxTOCDepth, c.TOC.MaxDepth)
	}
	for _, f := range []field{{"toc.heading", c.TOC.Heading}, {"toc.skip", c.TOC.Skip}} {
		if err := validateFieldLength(f.name, f.value, MaxPatternLength); err != nil {
			return err
		}
		if _, err := regexp.Compile(f.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, f.name, err)
		}
	}

	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers: must be between 0 and %d, got %d", ErrInvalidConfig, MaxWorkers, c.Workers)
	}

	return nil
}

// field names a config value for validation messages.
type field struct {
	name  string
	value string
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// Resolve returns path relative to BaseDir. Absolute paths and an empty
// BaseDir leave path unchanged.
func (c *Config) Resolve(path string) string {
	if path == "" || c.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// DefaultConfig returns the built-in documentation and tools pairs, with no
// table of contents.
func DefaultConfig() *Config {
	return &Config{
		Documents: []DocumentConfig{
			{Source: "docs/source/index.md", Output: "docs/index.md"},
			{Source: "tools/source/index.md", Output: "tools/index.md"},
		},
	}
}

// LoadConfig reads, decodes and validates the project file at path.
// Relative paths inside the file resolve against its directory.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyConfigPath
	}

	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.BaseDir = filepath.Dir(path)
	return &cfg, nil
}

// Discover looks for one of DefaultFileNames in dir and returns the first
// found. ErrConfigNotFound lists the paths tried.
func Discover(dir string) (string, error) {
	triedPaths := make([]string, 0, len(DefaultFileNames))
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if fileutil.FileExists(path) {
			return path, nil
		}
		triedPaths = append(triedPaths, path)
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// Marshal encodes cfg as a project file.
func Marshal(cfg *Config) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}
