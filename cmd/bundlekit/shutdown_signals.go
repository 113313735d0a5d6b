package main

import (
	"context"
	"os"
	"sync/atomic"

	"bundlekit/internal/logging"
)

// watchShutdownSignals cancels shutdownCancel on the first signal and logs
// once if further signals arrive while shutting down. The returned func
// stops watching.
func watchShutdownSignals(logger *logging.Logger, shutdownCancel context.CancelFunc, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	done := make(chan struct{})
	var stopping atomic.Bool
	var warned atomic.Bool

	signalFields := func(sig os.Signal) map[string]string {
		fields := map[string]string{}
		if sig != nil {
			fields["signal"] = sig.String()
		}
		return fields
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				if stopping.CompareAndSwap(false, true) {
					logger.Info("shutting down", signalFields(sig))
					if shutdownCancel != nil {
						shutdownCancel()
					}
					continue
				}
				if warned.CompareAndSwap(false, true) {
					logger.Warn("shutdown already in progress", signalFields(sig))
				}
			}
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
