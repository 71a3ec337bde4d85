package bq25792

// Status0 is the REG1B Charger Status 0 bit-set.
type Status0 uint8

const (
	StatusVbusPresent Status0 = 1 << 0
	StatusAC1Present  Status0 = 1 << 1
	StatusAC2Present  Status0 = 1 << 2
	StatusPowerGood   Status0 = 1 << 3
	StatusWatchdog    Status0 = 1 << 5
	StatusVINDPM      Status0 = 1 << 6
	StatusIINDPM      Status0 = 1 << 7

	status0Defined = StatusVbusPresent | StatusAC1Present | StatusAC2Present |
		StatusPowerGood | StatusWatchdog | StatusVINDPM | StatusIINDPM
)

func (s Status0) Has(f Status0) bool          { return s&f == f }
func (s Status0) Union(o Status0) Status0     { return s | o }
func (s Status0) Intersect(o Status0) Status0 { return s & o }

// Complement flips only the defined bits.
func (s Status0) Complement() Status0 { return ^s & status0Defined }

// ChargeStatus is the REG1C CHG_STAT field.
type ChargeStatus uint8

const (
	NotCharging ChargeStatus = iota
	TrickleCharge
	PreCharge
	FastCharge  // constant current
	TaperCharge // constant voltage
	_
	TopOffTimer
	TerminationDone
)

func (c ChargeStatus) String() string {
	switch c {
	case NotCharging:
		return "not_charging"
	case TrickleCharge:
		return "trickle"
	case PreCharge:
		return "precharge"
	case FastCharge:
		return "fast_cc"
	case TaperCharge:
		return "taper_cv"
	case TopOffTimer:
		return "top_off"
	case TerminationDone:
		return "done"
	}
	return "reserved"
}

// Charging reports an active charge phase.
func (c ChargeStatus) Charging() bool {
	return c != NotCharging && c != TerminationDone
}

// VbusStatus is the REG1C VBUS_STAT field.
type VbusStatus uint8

const (
	VbusNone         VbusStatus = 0x0
	VbusSDP          VbusStatus = 0x1
	VbusCDP          VbusStatus = 0x2
	VbusDCP          VbusStatus = 0x3
	VbusHVDCP        VbusStatus = 0x4
	VbusUnknown      VbusStatus = 0x5
	VbusNonStd       VbusStatus = 0x6
	VbusOTG          VbusStatus = 0x7
	VbusNotQualified VbusStatus = 0x8
	VbusDirect       VbusStatus = 0xB
	VbusBackup       VbusStatus = 0xC
)

// Watchdog is the REG10 WATCHDOG timer setting.
type Watchdog uint8

const (
	WatchdogDisable Watchdog = iota
	Watchdog500ms
	Watchdog1s
	Watchdog2s
	Watchdog20s
	Watchdog40s
	Watchdog80s
	Watchdog160s
)
