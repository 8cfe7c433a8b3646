package core

import (
	"math"
	"testing"
)

func TestSpectrumValidate(t *testing.T) {
	tests := []struct {
		name        string
		spec        *Spectrum
		wantErr     bool
		wantTIC     float64
		wantBaseMZ  float64
		wantRangeLo float64
		wantRangeHi float64
	}{
		{
			name: "computes tic and base peak",
			spec: &Spectrum{
				ScanNumber: 10,
				Peaks: []Peak{
					{MZ: 100.0, Intensity: 500.0},
					{MZ: 200.0, Intensity: 1500.0},
					{MZ: 300.0, Intensity: 1000.0},
				},
			},
			wantTIC:     3000.0,
			wantBaseMZ:  200.0,
			wantRangeLo: 100.0,
			wantRangeHi: 300.0,
		},
		{
			name: "first occurrence wins on intensity tie",
			spec: &Spectrum{
				Peaks: []Peak{
					{MZ: 100.0, Intensity: 1000.0},
					{MZ: 200.0, Intensity: 1000.0},
				},
			},
			wantTIC:     2000.0,
			wantBaseMZ:  100.0,
			wantRangeLo: 100.0,
			wantRangeHi: 200.0,
		},
		{
			name: "NaN m/z is an error",
			spec: &Spectrum{
				Peaks: []Peak{{MZ: math.NaN(), Intensity: 1.0}},
			},
			wantErr: true,
		},
		{
			name: "no peaks is not an error",
			spec: &Spectrum{ScanNumber: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.spec.Lifecycle != Validated {
				t.Errorf("Lifecycle = %v, want Validated", tt.spec.Lifecycle)
			}
			if len(tt.spec.Peaks) == 0 {
				return
			}
			if tt.spec.TotalIonCurrent != tt.wantTIC {
				t.Errorf("TotalIonCurrent = %v, want %v", tt.spec.TotalIonCurrent, tt.wantTIC)
			}
			if tt.spec.BasePeakMZ != tt.wantBaseMZ {
				t.Errorf("BasePeakMZ = %v, want %v", tt.spec.BasePeakMZ, tt.wantBaseMZ)
			}
			if tt.spec.MzRangeStart != tt.wantRangeLo || tt.spec.MzRangeEnd != tt.wantRangeHi {
				t.Errorf("MzRange = [%v,%v], want [%v,%v]", tt.spec.MzRangeStart, tt.spec.MzRangeEnd, tt.wantRangeLo, tt.wantRangeHi)
			}
		})
	}
}

func TestSpectrumIDDefaultsFromScanNumber(t *testing.T) {
	s := &Spectrum{ScanNumber: 42}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.SpectrumID != 42 {
		t.Errorf("SpectrumID = %d, want 42", s.SpectrumID)
	}
}

func TestSpectrumIDNotOverriddenWhenSet(t *testing.T) {
	s := &Spectrum{ScanNumber: 42, SpectrumID: 7}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.SpectrumID != 7 {
		t.Errorf("SpectrumID = %d, want 7 (should not be overwritten)", s.SpectrumID)
	}
}
