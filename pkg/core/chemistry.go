package core

import "math"

// Hmass is the proton mass (1.00727649 Da) used by the mass convolution
// formula below, not the mass of a neutral hydrogen atom (1.00782503 Da).
const Hmass = 1.00727649

// ParentIonMZFromMH applies the forward convolution rule: charge <= 1 forces
// the trivial 1:1 case (m/z equals MH), otherwise standard convolution.
func ParentIonMZFromMH(mh float64, charge int) float64 {
	if charge <= 1 {
		return mh
	}
	return (mh + float64(charge-1)*Hmass) / float64(charge)
}

// ParentIonMHFromMZ is the MGF-direction inverse: reconstruct MH from an
// observed m/z and charge.
func ParentIonMHFromMZ(mz float64, charge int) float64 {
	if charge <= 1 {
		return mz
	}
	return mz*float64(charge) - float64(charge-1)*Hmass
}

// RoundFloat rounds val to the given number of decimal places.
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
