package hal

import (
	"io"

	"chipset-go/drivers/i2cx"
)

// Board is an opened platform: every resource the firmware core drives.
type Board struct {
	Out       Outputs
	In        Inputs
	ADC       ADC
	RTC       RTC
	Sleeper   Sleeper
	Heartbeat Heartbeat
	Fatal     FatalFunc

	// Charger is the engine for the battery-manager bus (charger and gauge).
	Charger *i2cx.Engine
	// Host is the slave endpoint the host computer polls.
	Host *i2cx.Slave
	// Console carries operator log lines.
	Console io.Writer

	plat platform
}
