package main

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
	"github.com/mzurek/go-can-dispatch/internal/serial"
)

// fakeSerialPort implements serial.Port for tests.
type fakeSerialPort struct {
	reads [][]byte
	idx   int
	mu    sync.Mutex
}

func (f *fakeSerialPort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.reads) {
		// after delivering all data, block briefly then return EOF repeatedly
		time.Sleep(10 * time.Millisecond)
		return 0, io.EOF
	}
	chunk := f.reads[f.idx]
	f.idx++
	n := copy(p, chunk)
	return n, nil
}
func (f *fakeSerialPort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeSerialPort) Close() error                { return nil }

// TestInitSerialBackendBasic validates that an SLCAN record presented via the
// serial RX loop is decoded and pushed, and that the serial RX metric
// increments.
func TestInitSerialBackendBasic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	openSerialPort = func(name string, baud int, to time.Duration) (serial.Port, error) {
		return &fakeSerialPort{reads: [][]byte{[]byte("t1232AABB\r")}}, nil
	}
	defer func() { openSerialPort = serial.Open }()

	cfg := &appConfig{backend: "serial", serialDev: "fake", baud: 115200, serialReadTO: 50 * time.Millisecond}
	var wg sync.WaitGroup
	w, startRX, cleanup, err := initSerialBackend(ctx, cfg, testLogger(), &wg)
	if err != nil {
		t.Fatalf("initSerialBackend: %v", err)
	}
	defer cleanup()

	got := make(chan can.Frame, 1)
	startRX(func(fr can.Frame) {
		select {
		case got <- fr:
		default:
		}
	})

	select {
	case fr := <-got:
		if fr.ID() != 0x123 || fr.Extended() || fr.Len != 2 || fr.Data[0] != 0xAA || fr.Data[1] != 0xBB {
			t.Fatalf("unexpected frame: %+v", fr)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for frame")
	}

	// send path sanity (should not error)
	if err := w.SendFrame(can.New(0x123, []byte{0xAA, 0xBB}, 2, false)); err != nil {
		t.Fatalf("send frame: %v", err)
	}
	if !w.Free() {
		t.Fatalf("writer with a near-empty queue must report free")
	}

	snap := metrics.Snap()
	if snap.SerialRx == 0 {
		t.Fatalf("expected SerialRx > 0, got %d", snap.SerialRx)
	}
}

func TestInitBackendUnknown(t *testing.T) {
	cfg := &appConfig{backend: "carrier-pigeon"}
	var wg sync.WaitGroup
	if _, _, _, err := initBackend(context.Background(), cfg, testLogger(), &wg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
