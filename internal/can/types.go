package can

import "github.com/mzurek/go-can-dispatch/internal/tick"

// SocketCAN flag bits for the CANID word (same values as <linux/can.h>)
const (
	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x7FF
	CAN_EFF_MASK = 0x1FFFFFFF
)

// Frame is a classic CAN frame. CANID carries the EFF/RTR/ERR flags in its
// upper bits like SocketCAN. Len is the DLC (0..8); bytes of Data past Len
// are unspecified.
type Frame struct {
	CANID uint32
	Len   uint8
	Data  [8]byte
}

// New assembles a frame from driver-level parts. extended selects the 29-bit
// identifier space and sets the EFF flag. A dlc above 8 is clamped to 8, and
// the payload copy is additionally bounded by len(data).
func New(id uint32, data []byte, dlc uint8, extended bool) Frame {
	var f Frame
	if extended {
		f.CANID = (id & CAN_EFF_MASK) | CAN_EFF_FLAG
	} else {
		f.CANID = id & CAN_SFF_MASK
	}
	if dlc > 8 {
		dlc = 8
	}
	f.Len = dlc
	n := int(dlc)
	if n > len(data) {
		n = len(data)
	}
	copy(f.Data[:n], data[:n])
	return f
}

// Extended reports whether the frame uses a 29-bit identifier.
func (f Frame) Extended() bool { return f.CANID&CAN_EFF_FLAG != 0 }

// ID returns the bare identifier with flag bits stripped.
func (f Frame) ID() uint32 {
	if f.Extended() {
		return f.CANID & CAN_EFF_MASK
	}
	return f.CANID & CAN_SFF_MASK
}

// Payload returns the meaningful slice of Data.
func (f *Frame) Payload() []byte { return f.Data[:f.Len] }

// RxFrame is a received frame plus the tick at which the driver pushed it.
type RxFrame struct {
	Frame
	Time tick.Ticks
}
