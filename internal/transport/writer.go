// Package transport provides the asynchronous writer funnel shared by the
// serial and SocketCAN backends. All device writes go through one goroutine;
// enqueue never blocks, so the poll loop is insulated from a slow or wedged
// device at the cost of dropping frames when the queue fills.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mzurek/go-can-dispatch/internal/can"
)

// ErrWriterClosed is returned by SendFrame after Close.
var ErrWriterClosed = errors.New("transport: writer closed")

// Options configures a Writer. Send is the blocking device write. OnDrop
// runs when the queue is full and its error is returned from SendFrame (nil
// OnDrop makes overflow silent). OnError fires when Send fails, OnSent after
// each success. The hooks let each backend keep its own metrics and logging.
type Options struct {
	Queue   int
	Send    func(can.Frame) error
	OnError func(error)
	OnSent  func()
	OnDrop  func() error
}

// Writer is the single-goroutine frame writer.
type Writer struct {
	mu     sync.Mutex
	ch     chan can.Frame
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	opts   Options
	closed atomic.Bool
}

// NewWriter starts a writer goroutine with the given options.
func NewWriter(parent context.Context, opts Options) *Writer {
	ctx, cancel := context.WithCancel(parent)
	w := &Writer{
		ch:     make(chan can.Frame, opts.Queue),
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case fr, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.opts.Send(fr); err != nil {
				if w.opts.OnError != nil {
					w.opts.OnError(err)
				}
				continue
			}
			if w.opts.OnSent != nil {
				w.opts.OnSent()
			}
		case <-w.ctx.Done():
			return
		}
	}
}

// SendFrame queues a frame for asynchronous transmission. It returns the
// OnDrop error when the queue is full and ErrWriterClosed after Close; it
// never blocks.
func (w *Writer) SendFrame(fr can.Frame) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return ErrWriterClosed
	}
	select {
	case w.ch <- fr:
		return nil
	default:
		if w.opts.OnDrop != nil {
			return w.opts.OnDrop()
		}
		return nil
	}
}

// Free reports whether the queue currently has room. Used as the TX engine's
// bus-availability gate: a saturated writer reads as a busy bus.
func (w *Writer) Free() bool {
	return !w.closed.Load() && len(w.ch) < cap(w.ch)
}

// Close stops the worker and waits for it to exit. Idempotent.
func (w *Writer) Close() {
	if w.closed.Swap(true) {
		return
	}
	w.cancel()
	// Close the channel under the send lock so no SendFrame races the close.
	w.mu.Lock()
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
}
