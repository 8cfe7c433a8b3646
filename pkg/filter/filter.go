// Package filter provides peak filtering functions shared across every
// format reader.
package filter

import (
	"sort"

	"github.com/msformats/specio/pkg/core"
)

// Config holds filtering configuration. Adapted from the teacher's
// ion-type/fragment-adjustment-aware Config: this domain's spectra carry no
// peak annotations or peptide modifications, so only the generic
// peak-count/intensity knobs survive.
type Config struct {
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks at or above this % of base peak (0 = no cutoff)
}

// Apply applies all configured filters to spec in place.
func (c *Config) Apply(spec *core.Spectrum) {
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	reindex(spec)
}

func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}

	spec.Peaks = filtered
}

func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})
	peaks = peaks[:c.TopN]

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].MZ < peaks[j].MZ
	})

	spec.Peaks = peaks
}

func reindex(spec *core.Spectrum) {
	for i := range spec.Peaks {
		spec.Peaks[i].Index = i
	}
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity.
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
	reindex(spec)
}
