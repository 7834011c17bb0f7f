package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/rx"
	"github.com/mzurek/go-can-dispatch/internal/tick"
	"github.com/mzurek/go-can-dispatch/internal/tx"
)

// duration wraps time.Duration so TOML values can be written as "250ms".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type watchEntry struct {
	ID       uint32   `toml:"id"`
	Extended bool     `toml:"extended"`
	DLC      uint8    `toml:"dlc"`
	Timeout  duration `toml:"timeout"` // 0 or absent disables the watchdog
}

type periodicEntry struct {
	ID       uint32   `toml:"id"`
	Extended bool     `toml:"extended"`
	DLC      uint8    `toml:"dlc"`
	Period   duration `toml:"period"`
	Payload  string   `toml:"payload"` // hex, dlc bytes
	Counter  bool     `toml:"counter"` // stamp a rolling sequence into the last byte
}

type tableFile struct {
	Watch    []watchEntry    `toml:"watch"`
	Periodic []periodicEntry `toml:"periodic"`
}

// loadTables reads the TOML message table and builds engine tables wired to
// logging callbacks. Durations are converted to ticks at the configured
// resolution; sub-tick values are rejected rather than silently rounded to
// zero.
func loadTables(path string, tickEvery time.Duration, l *slog.Logger) ([]rx.TableEntry, []tx.TableEntry, error) {
	if path == "" {
		return nil, nil, nil
	}
	var tf tableFile
	if _, err := toml.DecodeFile(path, &tf); err != nil {
		return nil, nil, fmt.Errorf("table %s: %w", path, err)
	}

	rxTable := make([]rx.TableEntry, 0, len(tf.Watch))
	for i, w := range tf.Watch {
		if err := checkID(w.ID, w.Extended); err != nil {
			return nil, nil, fmt.Errorf("watch[%d]: %w", i, err)
		}
		if w.DLC > 8 {
			return nil, nil, fmt.Errorf("watch[%d]: dlc %d out of range", i, w.DLC)
		}
		timeout, err := toTicks(w.Timeout.Duration, tickEvery)
		if err != nil {
			return nil, nil, fmt.Errorf("watch[%d]: timeout: %w", i, err)
		}
		rxTable = append(rxTable, rx.TableEntry{
			Slot:     uint16(i),
			ID:       w.ID,
			Extended: w.Extended,
			DLC:      w.DLC,
			Timeout:  timeout,
			Parser:   logParser(l, w.ID),
		})
	}

	txTable := make([]tx.TableEntry, 0, len(tf.Periodic))
	for i, p := range tf.Periodic {
		if err := checkID(p.ID, p.Extended); err != nil {
			return nil, nil, fmt.Errorf("periodic[%d]: %w", i, err)
		}
		if p.DLC > 8 {
			return nil, nil, fmt.Errorf("periodic[%d]: dlc %d out of range", i, p.DLC)
		}
		payload, err := hex.DecodeString(p.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("periodic[%d]: payload: %w", i, err)
		}
		if len(payload) != int(p.DLC) {
			return nil, nil, fmt.Errorf("periodic[%d]: payload is %d bytes, dlc is %d", i, len(payload), p.DLC)
		}
		period, err := toTicks(p.Period.Duration, tickEvery)
		if err != nil {
			return nil, nil, fmt.Errorf("periodic[%d]: period: %w", i, err)
		}
		if p.Counter && p.DLC == 0 {
			return nil, nil, fmt.Errorf("periodic[%d]: counter needs dlc > 0", i)
		}
		ent := tx.TableEntry{
			Slot:     uint16(i),
			ID:       p.ID,
			Extended: p.Extended,
			DLC:      p.DLC,
			Period:   period,
			Payload:  payload,
		}
		if p.Counter {
			ent.Format = rollingCounter
		}
		txTable = append(txTable, ent)
	}
	return rxTable, txTable, nil
}

func checkID(id uint32, extended bool) error {
	if extended {
		if id > can.CAN_EFF_MASK {
			return fmt.Errorf("id 0x%X exceeds 29 bits", id)
		}
	} else if id > can.CAN_SFF_MASK {
		return fmt.Errorf("id 0x%X exceeds 11 bits (set extended = true?)", id)
	}
	return nil
}

// toTicks converts a wall-clock duration into tick counts. Zero stays zero
// (disabled / every-poll semantics).
func toTicks(d, tickEvery time.Duration) (tick.Ticks, error) {
	if d == 0 {
		return 0, nil
	}
	if d < tickEvery {
		return 0, fmt.Errorf("%v is below the tick resolution %v", d, tickEvery)
	}
	return tick.Ticks(d / tickEvery), nil
}

// logParser is the stock watch action: log the matched frame at debug.
func logParser(l *slog.Logger, id uint32) rx.Parser {
	return func(_ *rx.Engine, fr *can.RxFrame, slot uint16) {
		l.Debug("rx_dispatch", "slot", slot, "id", fmt.Sprintf("0x%X", id), "dlc", fr.Len, "tick", uint32(fr.Time))
	}
}

// rollingCounter mutates the persistent payload so the sequence survives
// across generations, then mirrors it into the outgoing scratch bytes.
func rollingCounter(_ *tx.Engine, scratch []byte, ent *tx.TableEntry) {
	last := len(ent.Payload) - 1
	ent.Payload[last]++
	scratch[last] = ent.Payload[last]
}
