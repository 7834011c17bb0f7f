package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mzurek/go-can-dispatch/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"rx_pushed", snap.RxPushed,
					"rx_dropped", snap.RxDropped,
					"rx_dispatched", snap.RxDispatched,
					"rx_unregistered", snap.RxUnregistered,
					"rx_timeouts", snap.RxTimeouts,
					"tx_generated", snap.TxGenerated,
					"tx_dropped", snap.TxDropped,
					"tx_sent", snap.TxSent,
					"serial_rx", snap.SerialRx,
					"serial_tx", snap.SerialTx,
					"socketcan_rx", snap.SocketCANRx,
					"socketcan_tx", snap.SocketCANTx,
					"malformed", snap.Malformed,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
