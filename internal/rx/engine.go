// Package rx implements the inbound half of the dispatch core: a bounded
// single-producer/single-consumer frame buffer, a static registration table,
// and per-slot reception timeout tracking.
//
// Exactly one calling context may Push (the driver's frame-reception path)
// and exactly one may Poll (a cooperative loop), per engine. Neither call
// blocks. Push is O(frame length); Poll is O(table size + pending frames).
package rx

import (
	"fmt"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/ring"
	"github.com/mzurek/go-can-dispatch/internal/tick"
)

// DefaultBufferSize is the ring slot count used when Config.BufferSize is 0.
const DefaultBufferSize = 32

// Parser consumes a frame matched to a registration entry. slot is the
// entry's application-defined handle, not a buffer index.
type Parser func(e *Engine, fr *can.RxFrame, slot uint16)

// UnregisteredParser consumes frames no table entry matched.
type UnregisteredParser func(e *Engine, fr *can.RxFrame)

// TimeoutHandler is notified when a slot's reception timeout elapses.
type TimeoutHandler func(e *Engine, slot uint16)

// TableEntry registers one expected message. The application owns the entry
// storage; the engine reads the match fields and maintains the last-seen
// tick. A frame matches when ID, Extended and DLC all agree. Entries with
// duplicate match keys are an application error; the first one wins.
type TableEntry struct {
	Slot     uint16
	ID       uint32
	Extended bool
	DLC      uint8
	Timeout  tick.Ticks // 0 disables timeout tracking for this slot
	Parser   Parser

	lastSeen tick.Ticks
}

// Config collects everything an engine binds at construction. There is no
// runtime reconfiguration.
type Config struct {
	Table        []TableEntry
	BufferSize   int         // physical ring slots; usable capacity is one less
	Clock        tick.Source // nil behaves as tick.Zero
	Unregistered UnregisteredParser
	Timeout      TimeoutHandler
}

// Engine is one inbound direction of one bus.
type Engine struct {
	buf          *ring.Buffer[can.RxFrame]
	table        []TableEntry
	clock        tick.Source
	unregistered UnregisteredParser
	timeout      TimeoutHandler
}

// New builds an RX engine. Table entries are validated once here: a missing
// parser or a DLC above 8 is a programmer error and panics rather than
// failing on first dispatch.
func New(cfg Config) *Engine {
	size := cfg.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	for i := range cfg.Table {
		ent := &cfg.Table[i]
		if ent.Parser == nil {
			panic(fmt.Sprintf("rx: table entry %d (slot %d) has no parser", i, ent.Slot))
		}
		if ent.DLC > 8 {
			panic(fmt.Sprintf("rx: table entry %d (slot %d) has DLC %d > 8", i, ent.Slot, ent.DLC))
		}
	}
	return &Engine{
		buf:          ring.New[can.RxFrame](size),
		table:        cfg.Table,
		clock:        tick.OrZero(cfg.Clock),
		unregistered: cfg.Unregistered,
		timeout:      cfg.Timeout,
	}
}

// Push stores one received frame, stamped with the current tick. Called by
// the driver as the sole producer. When the buffer is full the frame is
// dropped and nothing is reported to the caller; drops are only visible in
// the metrics counters.
func (e *Engine) Push(id uint32, data []byte, dlc uint8, extended bool) {
	fr := can.RxFrame{Frame: can.New(id, data, dlc, extended), Time: e.clock.Now()}
	if !e.buf.Push(fr) {
		metrics.IncRxDrop()
		return
	}
	metrics.IncRxPush()
}

// Pending reports the number of buffered, not yet dispatched frames.
func (e *Engine) Pending() int { return e.buf.Len() }

// Poll runs the timeout scan and then drains buffered frames through the
// registration table. Called from the cooperative loop as the sole consumer.
func (e *Engine) Poll() {
	e.checkTimeouts()
	for {
		fr, ok := e.buf.Pop()
		if !ok {
			return
		}
		e.dispatch(&fr)
	}
}

// checkTimeouts raises a timeout event for every slot whose message has not
// been seen for its timeout window. Firing re-baselines the slot, so a
// message that never arrives re-fires every Timeout ticks.
func (e *Engine) checkTimeouts() {
	now := e.clock.Now()
	for i := range e.table {
		ent := &e.table[i]
		if ent.Timeout == 0 || now-ent.lastSeen < ent.Timeout {
			continue
		}
		ent.lastSeen = now
		metrics.IncRxTimeout()
		if e.timeout != nil {
			e.timeout(e, ent.Slot)
		}
	}
}

// dispatch scans the table in order and invokes the first matching entry's
// parser. A match marks the slot seen at the frame's capture tick, resetting
// its timeout window. Without a match the frame goes to the unregistered
// parser, or nowhere.
func (e *Engine) dispatch(fr *can.RxFrame) {
	id, ext := fr.ID(), fr.Extended()
	for i := range e.table {
		ent := &e.table[i]
		if ent.ID != id || ent.Extended != ext || ent.DLC != fr.Len {
			continue
		}
		ent.Parser(e, fr, ent.Slot)
		ent.lastSeen = fr.Time
		metrics.IncRxDispatch()
		return
	}
	metrics.IncRxUnregistered()
	if e.unregistered != nil {
		e.unregistered(e, fr)
	}
}
