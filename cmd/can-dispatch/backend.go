package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mzurek/go-can-dispatch/internal/can"
)

// rxPush hands one received frame to the RX engine.
type rxPush func(can.Frame)

// initBackend opens the configured bus and returns the async writer, a
// starter for the read loop and a cleanup. The read loop is started
// separately so the engines can be built around the writer before any
// frame arrives.
func initBackend(ctx context.Context, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) (busWriter, func(rxPush), func(), error) {
	switch cfg.backend {
	case "serial":
		return initSerialBackend(ctx, cfg, l, wg)
	case "socketcan":
		return initSocketCANBackend(ctx, cfg, l, wg)
	default:
		return nil, nil, func() {}, fmt.Errorf("unknown backend %q (use serial|socketcan)", cfg.backend)
	}
}
