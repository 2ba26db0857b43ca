// internal/adc/convert.go
package adc

// Scale factors for the 2.5 V internal reference.
const (
	lsb14 = 2.5 / (1 << 14)
	lsb15 = 2.5 / (1 << 15)

	valveSenseRatio = 1200.0 / 1000.0
	dividerRatio    = 11.0
	pgaGain         = 0.032 // gain 32, expressed in V/mV
)

func currentLoop(raw int16) float64 { return float64(raw) * lsb14 }

func valveCurrent(raw int16) float64 { return float64(raw) * lsb15 * valveSenseRatio }

func dividedVoltage(raw int16) float64 { return float64(raw) * lsb15 * dividerRatio }

func railCurrent(raw int16) float64 { return float64(int32(raw)+32768) * lsb15 }

func differential(raw int16) float64 { return float64(raw) * lsb15 / pgaGain / 1000 }

func rtd(raw int16) float64 { return RtdTemperature(RtdResistance(raw)) }

// RtdResistance is the PT100 resistance in ohms for a raw sample.
func RtdResistance(raw int16) float64 {
	return float64(int32(raw)*2500) / (1 << 15)
}

// RtdTemperature applies the two quadratic PT100 fits. The split is at 100 ohm,
// inclusive on the low side. The high fit's offset is anchored so both fits
// meet at the split.
func RtdTemperature(r float64) float64 {
	if r <= rtdSplit {
		return 0.0014*r*r + 2.2521*r - 239.04
	}
	return 0.0014*r*r + 2.1814*r - 231.97
}

const rtdSplit = 100.0

// ambientFromRaw converts an internal temperature monitor sample to degrees C.
func ambientFromRaw(raw int16) float64 {
	mv := float64(raw) * lsb15 * 1000
	return 0.403*mv - 26.987
}

// thermocoupleMillivolts is the EMF in mV at the gain 32 input.
func thermocoupleMillivolts(raw int16) float64 {
	return float64(raw) * lsb15 / pgaGain
}

// Convert applies the stateless formula for k.
// Thermocouple kinds need the driver's ambient value and report false.
func Convert(k Kind, raw int16) (float64, bool) {
	fn := k.info().convert
	if fn == nil {
		return 0, false
	}
	return fn(raw), true
}
