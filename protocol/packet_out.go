package protocol

import (
	"encoding/binary"
	"time"

	"chipset-go/errcode"
)

// PacketOutSize is the wire length of PacketOut including its checksum.
const PacketOutSize = 2 + 4 + 4 + 4 + 1 + 8 + 4

// PacketOut is the telemetry record served to the host.
type PacketOut struct {
	Ballast         Percentage
	Reg5MicroV      uint32
	RegPiMicroV     uint32
	TemperatureUK   uint32 // die temperature, µK
	Status          StatusFlags
	TimestampMillis uint64 // 0 when the clock has never been set
}

// Serialize writes p and its checksum into dst, which must be exactly
// PacketOutSize bytes.
func (p *PacketOut) Serialize(dst []byte, crc CRCFunc) error {
	if len(dst) != PacketOutSize {
		return errcode.BadLength
	}
	le := binary.LittleEndian
	le.PutUint16(dst[0:], uint16(p.Ballast))
	le.PutUint32(dst[2:], p.Reg5MicroV)
	le.PutUint32(dst[6:], p.RegPiMicroV)
	le.PutUint32(dst[10:], p.TemperatureUK)
	dst[14] = byte(p.Status)
	le.PutUint64(dst[15:], p.TimestampMillis)
	le.PutUint32(dst[23:], crc(dst[:23]))
	return nil
}

// Deserialize validates length and checksum before touching p.
func (p *PacketOut) Deserialize(src []byte, crc CRCFunc) error {
	if len(src) != PacketOutSize {
		return errcode.BadLength
	}
	le := binary.LittleEndian
	if crc(src[:23]) != le.Uint32(src[23:]) {
		return errcode.CRCMismatch
	}
	p.Ballast = Percentage(le.Uint16(src[0:]))
	p.Reg5MicroV = le.Uint32(src[2:])
	p.RegPiMicroV = le.Uint32(src[6:])
	p.TemperatureUK = le.Uint32(src[10:])
	p.Status = StatusFlags(src[14])
	p.TimestampMillis = le.Uint64(src[15:])
	return nil
}

// ClearVolatile zeroes the fields that must not be served twice.
func (p *PacketOut) ClearVolatile() {
	p.TimestampMillis = 0
	p.Status = 0
}

// Timestamp returns the record time, or the zero time when unset.
func (p *PacketOut) Timestamp() time.Time {
	if p.TimestampMillis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(p.TimestampMillis)).UTC()
}
