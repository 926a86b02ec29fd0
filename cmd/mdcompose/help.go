package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdcompose [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compose markdown documents from sources with @include directives.")
	fmt.Fprintln(w, "Without a project file, builds docs/source/index.md -> docs/index.md")
	fmt.Fprintln(w, "and tools/source/index.md -> tools/index.md.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Project:")
	fmt.Fprintln(w, "  -c, --config <path>       Project file (default: mdcompose.yaml if present)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel documents (0 = auto)")
	fmt.Fprintln(w, "      --print-config        Print the effective project file and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Modes:")
	fmt.Fprintln(w, "      --check               Verify outputs are up to date, write nothing")
	fmt.Fprintln(w, "      --watch               Rebuild when a source or include changes")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show timing and debug logs")
	fmt.Fprintln(w, "      --version             Show version information")
	fmt.Fprintln(w, "  -h, --help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MDCOMPOSE_CONFIG          Project file path (--config wins)")
	fmt.Fprintln(w, "  MDCOMPOSE_WORKERS         Parallel documents (--workers wins)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 error, 2 usage or config, 3 I/O,")
	fmt.Fprintln(w, "  4 composition (includes, TOC), 5 outputs out of date (--check)")
}
