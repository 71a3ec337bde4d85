// Package telemetry converts raw ADC codes into physical units.
//
// All arithmetic is integer-only and follows a fixed operation order so that
// results match the host's expectations bit for bit.
package telemetry

import (
	"chipset-go/protocol"
	"chipset-go/types"
	"chipset-go/x/mathx"
)

// Channel order in the one-shot conversion buffer.
const (
	ChBallast = iota
	ChReg5
	ChRegPi
	ChDieTemp
	NumChannels
)

// Raw is one conversion of every channel.
type Raw [NumChannels]uint16

const zeroCelsiusMicroK = 273_150_000

// Calibration is fixed at build time.
type Calibration struct {
	RefMicroV      uint32
	ResolutionBits uint8
	Divider        uint32

	Cal1Code, Cal2Code uint16 // die sensor codes at Cal1DegC / Cal2DegC
	Cal1DegC, Cal2DegC int32
}

// Default is the board's 12-bit, 3.3 V, divide-by-two front end with the
// sensor calibrated at 30 °C and 130 °C.
func Default() Calibration {
	return Calibration{
		RefMicroV:      3_300_000,
		ResolutionBits: 12,
		Divider:        2,
		Cal1DegC:       30,
		Cal2DegC:       130,
	}
}

// FromFactory rescales sensor calibration codes captured at factoryRefMilliV
// to this calibration's reference.
func (c Calibration) FromFactory(cal1, cal2 uint16, factoryRefMilliV uint32) Calibration {
	if factoryRefMilliV == 0 {
		c.Cal1Code, c.Cal2Code = cal1, cal2
		return c
	}
	ref := c.RefMicroV / 1000
	c.Cal1Code = uint16(uint32(cal1) * ref / factoryRefMilliV)
	c.Cal2Code = uint16(uint32(cal2) * ref / factoryRefMilliV)
	return c
}

// FromConfig builds a Calibration from the board configuration; zero fields
// keep the defaults.
func FromConfig(a types.ADCConfig) Calibration {
	c := Default()
	if a.RefMicroV != 0 {
		c.RefMicroV = a.RefMicroV
	}
	if a.ResolutionBits != 0 {
		c.ResolutionBits = a.ResolutionBits
	}
	if a.Divider != 0 {
		c.Divider = a.Divider
	}
	if a.TempCal1DegC != 0 || a.TempCal2DegC != 0 {
		c.Cal1DegC, c.Cal2DegC = a.TempCal1DegC, a.TempCal2DegC
	}
	return c.FromFactory(a.TempCal1Code, a.TempCal2Code, a.FactoryRefMilliV)
}

// RailCode is the smallest code whose Voltage is at least uV, clamped to
// full scale.
func (c Calibration) RailCode(uV uint32) uint16 {
	fs := mathx.FullScale(c.ResolutionBits)
	den := uint64(c.RefMicroV) * uint64(c.Divider)
	if den == 0 {
		return 0
	}
	code := (uint64(uV)*fs + den - 1) / den
	return uint16(mathx.Min(code, fs))
}

// TemperatureCode is the sensor code for a die temperature in m°C. Platforms
// that report temperature instead of a code use it to feed the conversion.
func (c Calibration) TemperatureCode(milliC int32) uint16 {
	if c.Cal1DegC == c.Cal2DegC {
		return c.Cal1Code
	}
	code := mathx.LerpI64(int64(milliC),
		int64(c.Cal1DegC)*1000, int64(c.Cal2DegC)*1000,
		int64(c.Cal1Code), int64(c.Cal2Code))
	return uint16(mathx.Clamp(code, 0, int64(mathx.FullScale(c.ResolutionBits))))
}

// Reading is a converted sample.
type Reading struct {
	Ballast       protocol.Percentage
	Reg5MicroV    uint32
	RegPiMicroV   uint32
	TemperatureUK uint32
}

type Sampler struct {
	Cal Calibration
}

func New(cal Calibration) *Sampler { return &Sampler{Cal: cal} }

// Voltage is ref × code / full-scale × divider, evaluated in that order.
func (s *Sampler) Voltage(code uint16) uint32 {
	fs := mathx.FullScale(s.Cal.ResolutionBits)
	v := uint64(s.Cal.RefMicroV) * uint64(code) / fs * uint64(s.Cal.Divider)
	return uint32(v)
}

// Temperature returns the die temperature in µK from the two-point
// calibration, extrapolating outside the calibrated range.
func (s *Sampler) Temperature(code uint16) uint32 {
	c := s.Cal
	if c.Cal1Code == c.Cal2Code {
		return uint32(int64(c.Cal1DegC)*1_000_000 + zeroCelsiusMicroK)
	}
	uC := mathx.LerpI64(int64(code),
		int64(c.Cal1Code), int64(c.Cal2Code),
		int64(c.Cal1DegC)*1_000_000, int64(c.Cal2DegC)*1_000_000)
	uK := uC + zeroCelsiusMicroK
	if uK < 0 {
		return 0
	}
	return uint32(mathx.Min(uK, int64(^uint32(0))))
}

// Ballast expresses a code as a 12-bit fraction of full scale.
func (s *Sampler) Ballast(code uint16) protocol.Percentage {
	bits := s.Cal.ResolutionBits
	v := uint32(code)
	switch {
	case bits > 12:
		v >>= bits - 12
	case bits < 12:
		v <<= 12 - bits
	}
	return protocol.Percentage(mathx.Min(v, uint32(protocol.PercentageFull)))
}

// Convert turns a raw buffer into a Reading.
func (s *Sampler) Convert(raw Raw) Reading {
	return Reading{
		Ballast:       s.Ballast(raw[ChBallast]),
		Reg5MicroV:    s.Voltage(raw[ChReg5]),
		RegPiMicroV:   s.Voltage(raw[ChRegPi]),
		TemperatureUK: s.Temperature(raw[ChDieTemp]),
	}
}

// Apply copies the reading into the outbound packet.
func (r Reading) Apply(p *protocol.PacketOut) {
	p.Ballast = r.Ballast
	p.Reg5MicroV = r.Reg5MicroV
	p.RegPiMicroV = r.RegPiMicroV
	p.TemperatureUK = r.TemperatureUK
}
