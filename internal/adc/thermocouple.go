// internal/adc/thermocouple.go
package adc

import "math"

// Type K reference functions, NIST ITS-90.

var (
	// E(t) in mV for -270..0 C
	typeKNeg = []float64{
		0,
		0.394501280250e-01,
		0.236223735980e-04,
		-0.328589067840e-06,
		-0.499048287770e-08,
		-0.675090591730e-10,
		-0.574103274280e-12,
		-0.310888728940e-14,
		-0.104516093650e-16,
		-0.198892668780e-19,
		-0.163226974860e-22,
	}

	// E(t) in mV for 0..1372 C, plus the exponential term below
	typeKPos = []float64{
		-0.176004136860e-01,
		0.389212049750e-01,
		0.185587700320e-04,
		-0.994575928740e-07,
		0.318409457190e-09,
		-0.560728448890e-12,
		0.560750590590e-15,
		-0.320207200030e-18,
		0.971511471520e-22,
		-0.121047212750e-25,
	}

	typeKA0 = 0.1185976
	typeKA1 = -0.1183432e-03
	typeKA2 = 126.9686

	// t(E) in C, by EMF range
	typeKInvNeg = []float64{ // -5.891..0 mV
		0, 2.5173462e+01, -1.1662878, -1.0833638, -0.8977354,
		-0.37342377, -0.086632643, -0.010450598, -5.1920577e-04,
	}
	typeKInvLow = []float64{ // 0..20.644 mV
		0, 2.508355e+01, 7.860106e-02, -2.503131e-01, 8.315270e-02,
		-1.228034e-02, 9.804036e-04, -4.413030e-05, 1.057734e-06, -1.052755e-08,
	}
	typeKInvHigh = []float64{ // 20.644..54.886 mV
		-1.318058e+02, 4.830222e+01, -1.646031, 5.464731e-02,
		-9.650715e-04, 8.802193e-06, -3.110810e-08,
	}
)

func poly(c []float64, x float64) float64 {
	var y float64
	for i := len(c) - 1; i >= 0; i-- {
		y = y*x + c[i]
	}
	return y
}

// TypeKMillivolts is the thermocouple EMF at t degrees C referenced to 0 C.
func TypeKMillivolts(t float64) float64 {
	if t < 0 {
		return poly(typeKNeg, t)
	}
	d := t - typeKA2
	return poly(typeKPos, t) + typeKA0*math.Exp(typeKA1*d*d)
}

// TypeKCelsius is the hot junction temperature for an EMF in mV referenced
// to 0 C. Values outside the table use the nearest range.
func TypeKCelsius(mv float64) float64 {
	switch {
	case mv < 0:
		return poly(typeKInvNeg, mv)
	case mv <= 20.644:
		return poly(typeKInvLow, mv)
	default:
		return poly(typeKInvHigh, mv)
	}
}

// CompensateTypeK adds the cold junction EMF at ambient (C) to the measured
// EMF and returns the hot junction temperature in C.
func CompensateTypeK(ambient, mv float64) float64 {
	return TypeKCelsius(mv + TypeKMillivolts(ambient))
}
