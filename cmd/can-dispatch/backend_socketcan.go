//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/socketcan"
)

// openSocketCANDevice is a hook for tests (overridden in unit tests).
var openSocketCANDevice = func(iface string) (socketcan.Dev, error) { return socketcan.Open(iface) }

// initSocketCANBackend opens the raw CAN socket and prepares the RX loop.
func initSocketCANBackend(ctx context.Context, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) (busWriter, func(rxPush), func(), error) {
	if cfg.linkUp {
		if err := socketcan.SetLinkUp(cfg.canIf); err != nil {
			return nil, nil, func() {}, fmt.Errorf("link up %s: %w", cfg.canIf, err)
		}
		l.Info("link_up", "if", cfg.canIf)
	}
	dev, err := openSocketCANDevice(cfg.canIf)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("socketcan open %s: %w", cfg.canIf, err)
	}
	l.Info("socketcan_open", "if", cfg.canIf)
	tw := socketcan.NewTXWriter(ctx, dev, txQueueSize)

	startRX := func(push rxPush) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.Info("socketcan_rx_end")
			backoff := rxBackoffMin
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				var fr can.Frame
				if err := dev.ReadFrame(&fr); err != nil {
					if ctx.Err() != nil { // shutting down
						return
					}
					metrics.IncError(metrics.ErrSocketCANRead)
					l.Warn("socketcan_read_error", "error", err, "backoff", backoff)
					sleepFn(backoff)
					backoff *= 2
					if backoff > rxBackoffMax {
						backoff = rxBackoffMax
					}
					continue
				}
				metrics.IncSocketCANRx()
				push(fr)
				backoff = rxBackoffMin
			}
		}()
	}
	return tw, startRX, func() { _ = dev.Close(); tw.Close() }, nil
}
