package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTable(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestLoadTables_Basic(t *testing.T) {
	path := writeTable(t, `
[[watch]]
id = 0x123
dlc = 2
timeout = "250ms"

[[watch]]
id = 0x1ABCDE42
extended = true
dlc = 8

[[periodic]]
id = 0x700
dlc = 4
period = "100ms"
payload = "DEADBEEF"

[[periodic]]
id = 0x701
dlc = 2
period = "1s"
payload = "0100"
counter = true
`)
	rxTable, txTable, err := loadTables(path, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("loadTables: %v", err)
	}
	if len(rxTable) != 2 || len(txTable) != 2 {
		t.Fatalf("expected 2 watch + 2 periodic, got %d + %d", len(rxTable), len(txTable))
	}
	w0 := rxTable[0]
	if w0.Slot != 0 || w0.ID != 0x123 || w0.Extended || w0.DLC != 2 || w0.Timeout != 250 {
		t.Fatalf("unexpected watch[0]: %+v", w0)
	}
	if w0.Parser == nil {
		t.Fatalf("watch entries must carry a parser")
	}
	w1 := rxTable[1]
	if !w1.Extended || w1.Timeout != 0 {
		t.Fatalf("unexpected watch[1]: %+v", w1)
	}
	p0 := txTable[0]
	if p0.ID != 0x700 || p0.Period != 100 || p0.Format != nil {
		t.Fatalf("unexpected periodic[0]: %+v", p0)
	}
	if string(p0.Payload) != "\xDE\xAD\xBE\xEF" {
		t.Fatalf("payload mismatch: % X", p0.Payload)
	}
	p1 := txTable[1]
	if p1.Period != 1000 || p1.Format == nil {
		t.Fatalf("unexpected periodic[1]: %+v", p1)
	}
}

func TestLoadTables_EmptyPath(t *testing.T) {
	rxTable, txTable, err := loadTables("", time.Millisecond, testLogger())
	if err != nil || rxTable != nil || txTable != nil {
		t.Fatalf("empty path must yield empty tables, got %v %v %v", rxTable, txTable, err)
	}
}

func TestLoadTables_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"idTooWideStandard", "[[watch]]\nid = 0x800\ndlc = 1\n"},
		{"idTooWideExtended", "[[watch]]\nid = 0x20000000\nextended = true\ndlc = 1\n"},
		{"dlcOutOfRange", "[[watch]]\nid = 0x100\ndlc = 9\n"},
		{"subTickTimeout", "[[watch]]\nid = 0x100\ndlc = 1\ntimeout = \"500us\"\n"},
		{"payloadNotHex", "[[periodic]]\nid = 0x100\ndlc = 1\npayload = \"ZZ\"\n"},
		{"payloadLenMismatch", "[[periodic]]\nid = 0x100\ndlc = 2\npayload = \"AA\"\n"},
		{"counterNeedsPayload", "[[periodic]]\nid = 0x100\ndlc = 0\npayload = \"\"\ncounter = true\n"},
		{"badDuration", "[[periodic]]\nid = 0x100\ndlc = 1\npayload = \"AA\"\nperiod = \"fast\"\n"},
	}
	for _, tc := range tests {
		path := writeTable(t, tc.body)
		if _, _, err := loadTables(path, time.Millisecond, testLogger()); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestRollingCounterAdvancesPayload(t *testing.T) {
	path := writeTable(t, "[[periodic]]\nid = 0x200\ndlc = 2\npayload = \"01FE\"\ncounter = true\n")
	_, txTable, err := loadTables(path, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("loadTables: %v", err)
	}
	ent := &txTable[0]
	scratch := make([]byte, 2)
	copy(scratch, ent.Payload)
	ent.Format(nil, scratch, ent)
	if scratch[1] != 0xFF || ent.Payload[1] != 0xFF {
		t.Fatalf("expected counter FF, scratch=% X payload=% X", scratch, ent.Payload)
	}
	ent.Format(nil, scratch, ent)
	if scratch[1] != 0x00 {
		t.Fatalf("counter must wrap, got %X", scratch[1])
	}
	if scratch[0] != 0x01 {
		t.Fatalf("counter must only touch the last byte, got % X", scratch)
	}
}

// testLogger returns a no-op slog.Logger for tests.
func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
