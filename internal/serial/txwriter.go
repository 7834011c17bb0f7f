package serial

import (
	"context"
	"errors"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/logging"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/slcan"
	"github.com/mzurek/go-can-dispatch/internal/transport"
)

var ErrTxOverflow = errors.New("serial tx overflow")

// TXWriter funnels all serial writes through one goroutine, encoding frames
// as SLCAN records on the way out.
type TXWriter struct{ base *transport.Writer }

// NewTXWriter creates a serial TXWriter with a queue of size buf.
func NewTXWriter(parent context.Context, sp Port, codec slcan.Codec, buf int) *TXWriter {
	return &TXWriter{base: transport.NewWriter(parent, transport.Options{
		Queue: buf,
		Send: func(fr can.Frame) error {
			_, err := sp.Write(codec.Encode(fr))
			return err
		},
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSerialWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnSent: func() { metrics.IncSerialTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSerialOverflow)
			return ErrTxOverflow
		},
	})}
}

// SendFrame queues a frame for asynchronous write (ErrTxOverflow when full).
func (w *TXWriter) SendFrame(fr can.Frame) error { return w.base.SendFrame(fr) }

// Free reports whether the writer can take another frame right now.
func (w *TXWriter) Free() bool { return w.base.Free() }

// Close stops the writer and waits for the worker goroutine to finish.
func (w *TXWriter) Close() { w.base.Close() }
