package main

import (
	"context"
	"os/signal"
)

// notifyContext returns a context canceled on the first shutdown signal, so
// a running build or watch loop stops before writing further outputs.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
