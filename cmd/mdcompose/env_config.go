package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without editing the project file.
type envConfig struct {
	ConfigPath string // MDCOMPOSE_CONFIG: project file path
	Workers    int    // MDCOMPOSE_WORKERS: parallel documents
}

// knownEnvVars lists valid MDCOMPOSE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MDCOMPOSE_CONFIG":  true,
	"MDCOMPOSE_WORKERS": true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("MDCOMPOSE_CONFIG"),
	}

	// Parse int for workers
	if workers := os.Getenv("MDCOMPOSE_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MDCOMPOSE_* variables.
// Helps catch typos like MDCOMPOSE_WORKER instead of MDCOMPOSE_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "MDCOMPOSE_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}
