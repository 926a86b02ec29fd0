package main

import (
	"context"
	"os"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNotifyContext - Shutdown wiring
// ---------------------------------------------------------------------------

func TestShutdownSignals_IncludeInterrupt(t *testing.T) {
	t.Parallel()

	if !slices.Contains(shutdownSignals, os.Interrupt) {
		t.Errorf("shutdownSignals = %v, want os.Interrupt included", shutdownSignals)
	}
}

func TestNotifyContext_ParentCancel(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := notifyContext(parent)
	defer stop()

	if err := ctx.Err(); err != nil {
		t.Fatalf("ctx.Err() = %v before cancel, want nil", err)
	}
	cancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Error("ctx.Err() = nil after parent cancel")
	}
}

func TestNotifyContext_Stop(t *testing.T) {
	t.Parallel()

	ctx, stop := notifyContext(context.Background())
	stop()
	<-ctx.Done()
}
