package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/rx"
	"github.com/mzurek/go-can-dispatch/internal/tick"
	"github.com/mzurek/go-can-dispatch/internal/tx"
)

// busWriter is the slice of the backend TX writers the engines care about.
type busWriter interface {
	SendFrame(can.Frame) error
	Free() bool
}

// startTicker advances an atomic counter at the configured resolution and
// returns it as the engines' tick source.
func startTicker(ctx context.Context, every time.Duration, wg *sync.WaitGroup) tick.Source {
	c := new(atomic.Uint32)
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}()
	return tick.NewCounter(c)
}

// buildEngines wires the message tables and the backend writer into an RX
// and a TX engine sharing one clock.
func buildEngines(cfg *appConfig, clock tick.Source, rxTable []rx.TableEntry, txTable []tx.TableEntry, w busWriter, l *slog.Logger) (*rx.Engine, *tx.Engine) {
	rxEng := rx.New(rx.Config{
		Table:      rxTable,
		BufferSize: cfg.rxBuffer,
		Clock:      clock,
		Unregistered: func(_ *rx.Engine, fr *can.RxFrame) {
			l.Debug("rx_unregistered", "id", fmt.Sprintf("0x%X", fr.ID()), "extended", fr.Extended(), "dlc", fr.Len)
		},
		Timeout: func(_ *rx.Engine, slot uint16) {
			l.Warn("rx_timeout", "slot", slot, "id", fmt.Sprintf("0x%X", rxTable[slot].ID))
		},
	})
	txEng := tx.New(tx.Config{
		Table:      txTable,
		BufferSize: cfg.txBuffer,
		Clock:      clock,
		Send: func(_ *tx.Engine, fr can.Frame) {
			if err := w.SendFrame(fr); err != nil {
				l.Warn("tx_send_error", "error", err)
			}
		},
		BusFree: func(_ *tx.Engine) bool { return w.Free() },
	})
	return rxEng, txEng
}

// pollLoop runs both engines from a single goroutine. The engines are
// single-consumer; this loop is that consumer.
func pollLoop(ctx context.Context, every time.Duration, rxEng *rx.Engine, txEng *tx.Engine, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				rxEng.Poll()
				txEng.Poll()
			case <-ctx.Done():
				return
			}
		}
	}()
}
