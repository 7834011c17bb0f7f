// Package tx implements the outbound half of the dispatch core: a bounded
// single-producer/single-consumer frame buffer and a static table of
// periodic messages regenerated on each poll and drained while the bus is
// reported free.
//
// Exactly one calling context may Push and exactly one may Poll, per engine.
// Note that Poll itself enqueues generated frames, so external Push callers
// must share the Poll context (or be the only pusher between polls); the
// ring has a single producer side.
package tx

import (
	"fmt"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/ring"
	"github.com/mzurek/go-can-dispatch/internal/tick"
)

// DefaultBufferSize is the ring slot count used when Config.BufferSize is 0.
const DefaultBufferSize = 32

// Formatter runs just before a periodic frame is queued. It may mutate the
// scratch payload and the entry in place, e.g. to stamp rolling counters.
type Formatter func(e *Engine, scratch []byte, entry *TableEntry)

// SendFunc hands one drained frame to the driver. It must not block.
type SendFunc func(e *Engine, fr can.Frame)

// BusCheck reports whether the bus can take another frame right now.
type BusCheck func(e *Engine) bool

// TableEntry registers one periodic message. Payload is application-owned
// and may be mutated between polls; the engine copies it at each generation.
// A Period of 0 regenerates on every poll.
type TableEntry struct {
	Slot     uint16
	ID       uint32
	Extended bool
	DLC      uint8
	Period   tick.Ticks
	Payload  []byte
	Format   Formatter // optional

	lastSent tick.Ticks
}

// Config collects everything an engine binds at construction. Send and
// BusFree are required; proceeding without them would fault mid-drain.
type Config struct {
	Table      []TableEntry
	BufferSize int         // physical ring slots; usable capacity is one less
	Clock      tick.Source // nil behaves as tick.Zero
	Send       SendFunc
	BusFree    BusCheck
}

// Engine is one outbound direction of one bus.
type Engine struct {
	buf     *ring.Buffer[can.Frame]
	table   []TableEntry
	clock   tick.Source
	send    SendFunc
	busFree BusCheck
}

// New builds a TX engine. Missing required callbacks and invalid table
// entries are programmer errors and panic here, once, instead of on every
// poll.
func New(cfg Config) *Engine {
	if cfg.Send == nil {
		panic("tx: Send callback is required")
	}
	if cfg.BusFree == nil {
		panic("tx: BusFree callback is required")
	}
	size := cfg.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	for i := range cfg.Table {
		if cfg.Table[i].DLC > 8 {
			panic(fmt.Sprintf("tx: table entry %d (slot %d) has DLC %d > 8", i, cfg.Table[i].Slot, cfg.Table[i].DLC))
		}
	}
	return &Engine{
		buf:     ring.New[can.Frame](size),
		table:   cfg.Table,
		clock:   tick.OrZero(cfg.Clock),
		send:    cfg.Send,
		busFree: cfg.BusFree,
	}
}

// Push queues a one-off frame outside the periodic table. Single producer,
// silent drop when the buffer is full; drops are only visible in the metrics
// counters.
func (e *Engine) Push(id uint32, data []byte, dlc uint8, extended bool) {
	if !e.buf.Push(can.New(id, data, dlc, extended)) {
		metrics.IncTxDrop()
		return
	}
	metrics.IncTxQueue()
}

// Pending reports the number of queued, not yet sent frames.
func (e *Engine) Pending() int { return e.buf.Len() }

// Poll regenerates due periodic messages into the buffer, then drains the
// buffer to the send callback for as long as the bus check reports free.
// Frames left queued when the bus turns busy go out on a later poll; this is
// the only backpressure mechanism, the engine never waits.
func (e *Engine) Poll() {
	e.generate()
	for e.buf.Len() > 0 && e.busFree(e) {
		fr, ok := e.buf.Pop()
		if !ok {
			return
		}
		e.send(e, fr)
		metrics.IncTxSend()
	}
}

// generate queues every table entry whose period has elapsed. The entry is
// re-baselined before the push, so a full buffer costs this period's frame
// and nothing is retried until the next period elapses.
func (e *Engine) generate() {
	var scratch [8]byte
	for i := range e.table {
		ent := &e.table[i]
		now := e.clock.Now()
		if now-ent.lastSent < ent.Period {
			continue
		}
		ent.lastSent = now
		copy(scratch[:ent.DLC], ent.Payload)
		if ent.Format != nil {
			ent.Format(e, scratch[:ent.DLC], ent)
		}
		metrics.IncTxGenerate()
		e.Push(ent.ID, scratch[:ent.DLC], ent.DLC, ent.Extended)
	}
}
