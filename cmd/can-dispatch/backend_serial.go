package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/serial"
	"github.com/mzurek/go-can-dispatch/internal/slcan"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// initSerialBackend opens the SLCAN serial adapter and prepares the RX loop.
func initSerialBackend(ctx context.Context, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) (busWriter, func(rxPush), func(), error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)
	codec := slcan.Codec{}
	w := serial.NewTXWriter(ctx, sp, codec, txQueueSize)

	startRX := func(push rxPush) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.Info("serial_rx_end")
			buf := make([]byte, serialReadBufSize)
			acc := bytes.NewBuffer(nil)
			backoff := rxBackoffMin
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				n, err := sp.Read(buf)
				if n > 0 {
					acc.Write(buf[:n])
					_ = codec.DecodeStream(acc, func(fr can.Frame) { push(fr) })
					if acc.Len() == 0 && cap(acc.Bytes()) > largeBufferReclaimThreshold {
						acc = bytes.NewBuffer(nil)
					}
					backoff = rxBackoffMin
				}
				if err != nil {
					if ctx.Err() != nil { // shutting down
						return
					}
					var perr *os.PathError
					if errors.As(err, &perr) {
						return // device removed or fatal
					}
					if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
						continue // ignore transient EOF
					}
					metrics.IncError(metrics.ErrSerialRead)
					l.Warn("serial_read_error", "error", err, "backoff", backoff)
					sleepFn(backoff)
					backoff *= 2
					if backoff > rxBackoffMax {
						backoff = rxBackoffMax
					}
				}
			}
		}()
	}
	return w, startRX, func() { _ = sp.Close(); w.Close() }, nil
}
