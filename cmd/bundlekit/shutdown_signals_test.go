package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"bundlekit/internal/logging"
)

func TestWatchShutdownSignalsCancelsOnce(t *testing.T) {
	logger := logging.NewLoggerWithOutput(nil, logging.LevelInfo, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)

	stop := watchShutdownSignals(logger, cancel, signals)
	defer stop()

	signals <- os.Interrupt
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected shutdown to be triggered")
	}

	signals <- os.Interrupt
	deadline := time.Now().Add(time.Second)
	for {
		var shutting, repeated int
		for _, entry := range logger.Buffer().List() {
			switch entry.Message {
			case "shutting down":
				shutting++
			case "shutdown already in progress":
				repeated++
			}
		}
		if shutting == 1 && repeated == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one shutdown and one repeat log, got %d and %d", shutting, repeated)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchShutdownSignalsNilChannel(t *testing.T) {
	stop := watchShutdownSignals(nil, nil, nil)
	stop()
}
