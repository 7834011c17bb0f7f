//go:build linux

package socketcan

import (
	"context"
	"errors"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/transport"
)

var ErrTxOverflow = errors.New("socketcan tx overflow")

// Dev is the minimal interface needed by the daemon and TXWriter.
// Implemented by *Device in production and by fakes in tests.
type Dev interface {
	ReadFrame(*can.Frame) error
	WriteFrame(can.Frame) error
	Close() error
}

// TXWriter funnels all SocketCAN writes through a single goroutine,
// mirroring the serial TXWriter behavior.
type TXWriter struct{ base *transport.Writer }

// NewTXWriter creates a SocketCAN TXWriter with a queue of size buf.
func NewTXWriter(parent context.Context, dev Dev, buf int) *TXWriter {
	return &TXWriter{base: transport.NewWriter(parent, transport.Options{
		Queue:   buf,
		Send:    func(fr can.Frame) error { return dev.WriteFrame(fr) },
		OnError: func(err error) { metrics.IncError(metrics.ErrSocketCANWrite) },
		OnSent:  func() { metrics.IncSocketCANTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSocketCANOver)
			return ErrTxOverflow
		},
	})}
}

// SendFrame queues a frame for asynchronous device write (ErrTxOverflow when full).
func (w *TXWriter) SendFrame(fr can.Frame) error { return w.base.SendFrame(fr) }

// Free reports whether the writer can take another frame right now.
func (w *TXWriter) Free() bool { return w.base.Free() }

// Close stops the writer and waits for the worker goroutine to finish.
func (w *TXWriter) Close() { w.base.Close() }
