//go:build windows

package main

import "os"

// shutdownSignals stop mdcompose. Only Ctrl+C is delivered on Windows.
var shutdownSignals = []os.Signal{os.Interrupt}
