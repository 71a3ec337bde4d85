package types

// Sample is one decoded telemetry record as seen by the host tool. It is the
// unit written by `chipsetctl record` (CBOR) and `chipsetctl publish` (JSON).
type Sample struct {
	TakenAtMs     int64  `json:"taken_at_ms" cbor:"1,keyasint"`
	BoardTimeMs   uint64 `json:"board_time_ms" cbor:"2,keyasint"`
	BallastX100   uint32 `json:"ballast_x100" cbor:"3,keyasint"` // hundredths of a percent
	Reg5MicroV    uint32 `json:"reg5_uV" cbor:"4,keyasint"`
	RegPiMicroV   uint32 `json:"regpi_uV" cbor:"5,keyasint"`
	DieTempMicroK uint32 `json:"die_temp_uK" cbor:"6,keyasint"`
	Status        uint8  `json:"status" cbor:"7,keyasint"`
	Flags         string `json:"flags" cbor:"8,keyasint"`
}

// DieTempMilliC converts the die temperature to m°C.
func (s Sample) DieTempMilliC() int32 {
	return int32((int64(s.DieTempMicroK) - 273_150_000) / 1000)
}
