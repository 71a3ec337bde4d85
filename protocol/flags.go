package protocol

// StatusFlags is the status bit-set carried in PacketOut.
type StatusFlags uint8

const (
	AdcValid StatusFlags = 1 << iota
	BatteryManagerValid
	VbusConnected
	ChargingInProgress

	allStatusFlags = AdcValid | BatteryManagerValid | VbusConnected | ChargingInProgress
)

func (f StatusFlags) Has(o StatusFlags) bool              { return f&o == o }
func (f StatusFlags) Union(o StatusFlags) StatusFlags     { return f | o }
func (f StatusFlags) Intersect(o StatusFlags) StatusFlags { return f & o }

// Complement flips only the defined flags.
func (f StatusFlags) Complement() StatusFlags { return ^f & allStatusFlags }

func (f StatusFlags) String() string {
	if f == 0 {
		return "none"
	}
	names := [...]string{"adc", "battery_manager", "vbus", "charging"}
	s := ""
	for i, n := range names {
		if f&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n
	}
	return s
}

// Percentage is a 12-bit fixed-point fraction of full scale.
type Percentage uint16

const PercentageFull Percentage = 1<<12 - 1

// Percent returns the value in hundredths of a percent.
func (p Percentage) Percent() uint32 {
	if p > PercentageFull {
		p = PercentageFull
	}
	return (uint32(p)*10000 + uint32(PercentageFull)/2) / uint32(PercentageFull)
}
