package telemetry

import (
	"chipset-go/protocol"
	"chipset-go/types"
)

// NewSample flattens a packet into the record shared with host tooling.
// takenAtMs is the observer's clock, not the board's.
func NewSample(p protocol.PacketOut, takenAtMs int64) types.Sample {
	return types.Sample{
		TakenAtMs:     takenAtMs,
		BoardTimeMs:   p.TimestampMillis,
		BallastX100:   p.Ballast.Percent(),
		Reg5MicroV:    p.Reg5MicroV,
		RegPiMicroV:   p.RegPiMicroV,
		DieTempMicroK: p.TemperatureUK,
		Status:        uint8(p.Status),
		Flags:         p.Status.String(),
	}
}
