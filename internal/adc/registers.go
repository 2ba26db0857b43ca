// internal/adc/registers.go
package adc

// ADS114S06 commands.
const (
	cmdReset  = 0x06
	cmdStart  = 0x08
	cmdStop   = 0x0A
	cmdRData  = 0x12
	cmdRReg   = 0x20 // | start register
	cmdWReg   = 0x40 // | register
)

// ADS114S06 register map.
const (
	regInpMux   = 0x02
	regPGA      = 0x03
	regDataRate = 0x04
	regRef      = 0x05
	regIDACMag  = 0x06
	regIDACMux  = 0x07
	regSys      = 0x09

	// NumRegisters covers 0x00..0x11.
	NumRegisters = 18
)

// Register values used by the init and mux tables.
const (
	pgaBypass     = 0x00
	pgaGain32     = 0x0D
	pgaAmbient    = 0x08
	dataRate4000  = 0x1E
	refInternal   = 0x0A
	idacMag1000uA = 0x47
	idacMuxAIN5   = 0x50
	sysNormal     = 0x00
	sysTempSensor = 0x50
	muxNegAINCOM  = 0x0C
)

type regWrite struct {
	reg  byte
	data byte
}
