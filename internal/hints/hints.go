// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"
)

// IsCI detects a continuous integration environment.
var IsCI = func() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForNotFound returns a hint for a missing source file.
func ForNotFound(configPath string) string {
	if configPath == "" {
		return format("create the file, or list your documents in mdcompose.yaml")
	}
	return format("check the documents list in " + configPath)
}

// ForIncludeResolution returns a hint for an @include target that could not
// be read.
func ForIncludeResolution() string {
	return format("include paths are relative to the file containing the directive")
}

// ForCircularInclude returns a hint for include cycles.
func ForCircularInclude() string {
	return format("remove one @include from the chain above")
}

// ForIncludeNotAllowed returns a hint listing the allow patterns in force.
func ForIncludeNotAllowed(allow []string) string {
	hints := []string{"add a matching pattern to include.allow"}
	if len(allow) > 0 {
		hints = append(hints, "current: "+strings.Join(allow, ", "))
	}
	return formatHints(hints)
}

// ForWrite returns hints for output write errors.
func ForWrite() string {
	return format("check the output directory is writable")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating the first default file name.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/mdcompose.yaml"
	if len(searchedPaths) > 0 {
		hint += " or create " + searchedPaths[0]
	}
	return format(hint)
}

// ForStale returns hints for outputs that are out of date in check mode.
func ForStale() string {
	hints := []string{"run mdcompose without --check to regenerate"}
	if IsCI() {
		hints = append(hints, "commit the regenerated files")
	}
	return formatHints(hints)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
