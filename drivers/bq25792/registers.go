// Register addresses and bitfields of the TI BQ25792 buck-boost charger.
package bq25792

const (
	// 7-bit I2C address.
	AddressDefault = 0x6B

	regFirst = 0x00
	regCount = 0x49

	// --- Register addresses (byte registers, 16-bit values MSB first) ---

	regMinSysV      = 0x00
	regChargeVLimit = 0x01 // 16-bit, 10 mV/LSB
	regChargeILimit = 0x03 // 16-bit, 10 mA/LSB, bits 8:0
	regInputVLimit  = 0x05
	regInputILimit  = 0x06 // 16-bit, 10 mA/LSB, bits 8:0
	regPrecharge    = 0x08
	regTermination  = 0x09
	regChargerCtrl0 = 0x0F
	regChargerCtrl1 = 0x10
	regChargerCtrl5 = 0x14
	regNTCCtrl1     = 0x18
	regStatus0      = 0x1B
	regStatus1      = 0x1C
	regADCCtrl      = 0x2E
	regPartInfo     = 0x48

	// --- REG03 / REG06 ---
	ichgMask  = 0x01FF
	ichgMinMA = 50
	ichgMaxMA = 5000
	iinMask   = 0x01FF
	iinMinMA  = 100
	iinMaxMA  = 3300
	stepMA    = 10

	// --- REG01 ---
	vregMask  = 0x07FF
	vregMinMV = 3000
	vregMaxMV = 18800
	stepMV    = 10

	// --- REG09 ---
	itermMask  = 0x1F
	itermStep  = 40
	itermMinMA = 40
	itermMaxMA = 1000

	// --- REG0F Charger Control 0 ---
	ctrl0EnAutoIbatDis = 1 << 7
	ctrl0ForceIbatDis  = 1 << 6
	ctrl0EnChg         = 1 << 5
	ctrl0EnICO         = 1 << 4
	ctrl0ForceICO      = 1 << 3
	ctrl0EnHiZ         = 1 << 2
	ctrl0EnTerm        = 1 << 1

	// --- REG10 Charger Control 1 ---
	ctrl1WdRst    = 1 << 3
	ctrl1Watchdog = 0x07

	// --- REG14 Charger Control 5 ---
	ctrl5SfetPresent = 1 << 7
	ctrl5EnIbat      = 1 << 5
	ctrl5IbatReg     = 0x18
	ctrl5EnIindpm    = 1 << 2
	ctrl5EnExtIlim   = 1 << 1
	ctrl5EnBatOC     = 1 << 0

	// --- REG18 NTC Control 1 ---
	ntcTsIgnore = 1 << 0

	// --- REG1C Charger Status 1 ---
	stat1ChgStat  = 0xE0
	stat1VbusStat = 0x1E

	// --- REG2E ADC Control ---
	adcEn = 1 << 7

	// --- REG48 Part Information ---
	partNumMask = 0x38
	partRevMask = 0x07
)
