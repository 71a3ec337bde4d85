// Register addresses and bitfields of the Maxim MAX17261 fuel gauge.
package max17261

const (
	// 7-bit I2C address.
	AddressDefault = 0x36

	regFirst = 0x00
	regCount = 0x50

	// --- Word registers, little-endian on the wire ---
	regStatus    = 0x00
	regRepCap    = 0x05
	regRepSOC    = 0x06
	regVCell     = 0x09
	regCurrent   = 0x0A
	regTemp      = 0x08
	regDesignCap = 0x18
	regConfig    = 0x1D
	regIChgTerm  = 0x1E
	regDevName   = 0x21
	regVEmpty    = 0x3A

	// --- Status ---
	statusPOR = 1 << 1

	// --- Config ---
	cfgTSel   = 1 << 15
	cfgSS     = 1 << 14
	cfgTS     = 1 << 13
	cfgVS     = 1 << 12
	cfgIS     = 1 << 11
	cfgTHsh   = 1 << 10
	cfgTen    = 1 << 9
	cfgTex    = 1 << 8
	cfgSHDN   = 1 << 7
	cfgCOMMSH = 1 << 6
	cfgETHRM  = 1 << 4
	cfgFTHRM  = 1 << 3
	cfgAen    = 1 << 2
	cfgBei    = 1 << 1
	cfgBer    = 1 << 0

	// --- VEmpty ---
	vEmptyVE     = 0xFF80 // bits 15:7, 10 mV/LSB
	vEmptyVR     = 0x007F // bits 6:0, 40 mV/LSB
	vEmptyStepVE = 10
	vEmptyStepVR = 40

	// VCell LSB is 78.125 µV = 625/8 µV.
	vcellNumUV = 625
	vcellDenUV = 8

	// Capacity LSB is 5.0 µVh / Rsense.
	capLSBnVh = 5000

	// Current LSB is 1.5625 µV / Rsense.
	currLSBpV = 1_562_500
)
