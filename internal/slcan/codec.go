// Package slcan implements the Lawicel SLCAN ASCII framing spoken by common
// USB-serial CAN adapters. Data frames are single CR-terminated records:
//
//	t<iii><d><payload hex>   standard data frame, 3 hex ID digits
//	T<iiiiiiii><d><payload>  extended data frame, 8 hex ID digits
//	r<iii><d> / R<iiiiiiii><d>  RTR frames, no payload bytes
//
// Anything else on the wire (command acknowledgements, status reports, the
// BEL error byte) is not a frame and is skipped.
package slcan

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mzurek/go-can-dispatch/internal/can"
	"github.com/mzurek/go-can-dispatch/internal/metrics"
)

// maxPending bounds how much unterminated garbage DecodeStream retains
// before discarding; a well-formed record is at most 27 bytes.
const maxPending = 128

type Codec struct{}

// Encode renders one frame as an SLCAN record including the trailing CR.
func (Codec) Encode(f can.Frame) []byte {
	ext := f.Extended()
	rtr := f.CANID&can.CAN_RTR_FLAG != 0
	buf := make([]byte, 0, 1+8+1+2*8+1)
	switch {
	case rtr && ext:
		buf = append(buf, 'R')
	case rtr:
		buf = append(buf, 'r')
	case ext:
		buf = append(buf, 'T')
	default:
		buf = append(buf, 't')
	}
	if ext {
		buf = fmt.Appendf(buf, "%08X", f.ID())
	} else {
		buf = fmt.Appendf(buf, "%03X", f.ID())
	}
	buf = append(buf, '0'+(f.Len&0x0F))
	if !rtr {
		buf = fmt.Appendf(buf, "%X", f.Data[:f.Len])
	}
	return append(buf, '\r')
}

// DecodeStream consumes complete records from in and emits decoded frames
// via out. Partial trailing records stay buffered for the next call.
// Malformed records are counted and skipped.
func (Codec) DecodeStream(in *bytes.Buffer, out func(can.Frame)) error {
	for {
		data := in.Bytes()
		end := bytes.IndexAny(data, "\r\n")
		if end < 0 {
			if len(data) > maxPending {
				// No terminator in sight; drop the garbage and resync.
				metrics.IncMalformed()
				in.Reset()
			}
			return nil
		}
		line := data[:end]
		fr, ok, malformed := parseRecord(line)
		in.Next(end + 1)
		if malformed {
			metrics.IncMalformed()
			continue
		}
		if !ok {
			continue
		}
		out(fr)
		metrics.IncSerialRx()
	}
}

// parseRecord decodes one CR-stripped record. ok is false for non-frame
// traffic (acks, status); malformed marks frame records that fail to parse.
func parseRecord(line []byte) (fr can.Frame, ok bool, malformed bool) {
	if len(line) == 0 {
		return fr, false, false
	}
	var idDigits int
	var ext, rtr bool
	switch line[0] {
	case 't':
		idDigits = 3
	case 'T':
		idDigits, ext = 8, true
	case 'r':
		idDigits, rtr = 3, true
	case 'R':
		idDigits, ext, rtr = 8, true, true
	default:
		return fr, false, false
	}
	if len(line) < 1+idDigits+1 {
		return fr, false, true
	}
	id, err := strconv.ParseUint(string(line[1:1+idDigits]), 16, 32)
	if err != nil {
		return fr, false, true
	}
	dlc := line[1+idDigits] - '0'
	if dlc > 8 {
		return fr, false, true
	}
	rest := line[1+idDigits+1:]
	if rtr {
		if len(rest) != 0 {
			return fr, false, true
		}
		fr = can.New(uint32(id), nil, dlc, ext)
		fr.CANID |= can.CAN_RTR_FLAG
		return fr, true, false
	}
	if len(rest) != 2*int(dlc) {
		return fr, false, true
	}
	payload, err := hex.DecodeString(string(rest))
	if err != nil {
		return fr, false, true
	}
	return can.New(uint32(id), payload, dlc, ext), true, false
}
