package can

import (
	"bytes"
	"testing"
)

func TestNewStandard(t *testing.T) {
	f := New(0x123, []byte{1, 2, 3}, 3, false)
	if f.Extended() {
		t.Fatal("standard frame reported as extended")
	}
	if f.ID() != 0x123 {
		t.Fatalf("ID = %#x, want 0x123", f.ID())
	}
	if f.Len != 3 || !bytes.Equal(f.Payload(), []byte{1, 2, 3}) {
		t.Fatalf("payload = % X len=%d", f.Payload(), f.Len)
	}
}

func TestNewExtendedMasksID(t *testing.T) {
	f := New(0xFFFFFFFF, nil, 0, true)
	if !f.Extended() {
		t.Fatal("extended frame not flagged")
	}
	if f.ID() != CAN_EFF_MASK {
		t.Fatalf("ID = %#x, want %#x", f.ID(), uint32(CAN_EFF_MASK))
	}
	if f.CANID&CAN_EFF_FLAG == 0 {
		t.Fatal("EFF flag not set in CANID")
	}
}

func TestNewStandardMasksID(t *testing.T) {
	f := New(0xFFF, nil, 0, false)
	if f.ID() != 0x7FF {
		t.Fatalf("ID = %#x, want 0x7FF", f.ID())
	}
}

func TestNewClampsDLC(t *testing.T) {
	f := New(0x1, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 12, false)
	if f.Len != 8 {
		t.Fatalf("Len = %d, want 8", f.Len)
	}
}

func TestNewShortData(t *testing.T) {
	// DLC larger than the supplied slice copies only what exists.
	f := New(0x1, []byte{0xAA}, 4, false)
	if f.Len != 4 {
		t.Fatalf("Len = %d, want 4", f.Len)
	}
	if f.Data[0] != 0xAA || f.Data[1] != 0 {
		t.Fatalf("data = % X", f.Data[:4])
	}
}
