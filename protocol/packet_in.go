package protocol

import (
	"encoding/binary"
	"math"
	"time"

	"chipset-go/errcode"
)

// Opcode selects the inbound command.
type Opcode uint8

const (
	OpSetTime  Opcode = 0x01
	OpShutdown Opcode = 0x02
)

func (o Opcode) String() string {
	switch o {
	case OpSetTime:
		return "set_time"
	case OpShutdown:
		return "shutdown"
	}
	return "unknown"
}

// CommandSize is the wire length of every defined command:
// opcode, 64-bit millisecond payload, checksum.
const CommandSize = 1 + 8 + 4

// MaxFrame bounds any host frame the board accepts.
const MaxFrame = 255

// PeekOpcode returns the opcode of a non-empty frame.
func PeekOpcode(frame []byte) (Opcode, bool) {
	if len(frame) == 0 {
		return 0, false
	}
	return Opcode(frame[0]), true
}

// SetTime sets the board clock.
type SetTime struct {
	Timestamp time.Time
}

// Shutdown asks the board to drop the rails after Delay and re-sequence.
type Shutdown struct {
	Delay time.Duration
}

// maxDelayMillis is the longest delay a time.Duration can carry.
const maxDelayMillis = math.MaxInt64 / int64(time.Millisecond)

func (c *SetTime) Marshal(dst []byte, crc CRCFunc) error {
	return marshal(dst, OpSetTime, uint64(c.Timestamp.UnixMilli()), crc)
}

func (c *SetTime) Unmarshal(src []byte, crc CRCFunc) error {
	v, err := unmarshal(src, OpSetTime, crc)
	if err != nil {
		return err
	}
	c.Timestamp = time.UnixMilli(int64(v)).UTC()
	return nil
}

func (c *Shutdown) Marshal(dst []byte, crc CRCFunc) error {
	return marshal(dst, OpShutdown, uint64(c.Delay.Milliseconds()), crc)
}

func (c *Shutdown) Unmarshal(src []byte, crc CRCFunc) error {
	v, err := unmarshal(src, OpShutdown, crc)
	if err != nil {
		return err
	}
	if v > uint64(maxDelayMillis) {
		v = uint64(maxDelayMillis)
	}
	c.Delay = time.Duration(v) * time.Millisecond
	return nil
}

func marshal(dst []byte, op Opcode, payload uint64, crc CRCFunc) error {
	if len(dst) != CommandSize {
		return errcode.BadLength
	}
	dst[0] = byte(op)
	binary.LittleEndian.PutUint64(dst[1:], payload)
	binary.LittleEndian.PutUint32(dst[9:], crc(dst[:9]))
	return nil
}

// unmarshal checks length, opcode and checksum, in that order, and only then
// returns the payload.
func unmarshal(src []byte, want Opcode, crc CRCFunc) (uint64, error) {
	if len(src) != CommandSize {
		return 0, errcode.BadLength
	}
	if Opcode(src[0]) != want {
		return 0, errcode.UnknownOpcode
	}
	if crc(src[:9]) != binary.LittleEndian.Uint32(src[9:]) {
		return 0, errcode.CRCMismatch
	}
	return binary.LittleEndian.Uint64(src[1:]), nil
}
