//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop mdcompose. SIGHUP covers a --watch session whose
// terminal goes away.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
