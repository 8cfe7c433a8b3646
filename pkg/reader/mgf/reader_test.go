package mgf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msformats/specio/pkg/core"
)

func TestMGFBasicBlock(t *testing.T) {
	// S3 from spec.md §8.
	content := "BEGIN IONS\n" +
		"TITLE=Foo.42.42.2.dta\n" +
		"PEPMASS=400.0 1e5\n" +
		"CHARGE=2+\n" +
		"100.0 10\n" +
		"200.0 20\n" +
		"END IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	spec := r.Spectrum()
	require.NoError(t, r.Err())

	require.Equal(t, 42, spec.ScanNumber)
	require.Equal(t, 2, spec.MSLevel)
	require.InDelta(t, 400.0, spec.ParentIonMZ, 1e-9)
	require.Len(t, spec.Peaks, 2)

	details, ok := spec.Details.(*core.MSMSTextDetails)
	require.True(t, ok)
	require.Equal(t, 1, details.ParentIonChargeCount)
	require.Equal(t, 2, details.ParentIonCharges[0])
	require.InDelta(t, 798.99272, details.ParentIonMH, 1e-5)
	require.InDelta(t, core.ParentIonMHFromMZ(400.0, 2), details.ParentIonMH, 1e-9)

	require.False(t, r.Next())
}

func TestMGFChargeMultipleTokens(t *testing.T) {
	content := "BEGIN IONS\n" +
		"PEPMASS=400.0\n" +
		"CHARGE=2+ and 3+\n" +
		"100.0 10\n" +
		"END IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	details, ok := r.Spectrum().Details.(*core.MSMSTextDetails)
	require.True(t, ok)
	require.Equal(t, 2, details.ParentIonChargeCount)
	require.Equal(t, 2, details.ParentIonCharges[0])
	require.Equal(t, 3, details.ParentIonCharges[1])
}

func TestMGFAgilentScanRange(t *testing.T) {
	content := "BEGIN IONS\n" +
		"###MSMS: 10-12/3\n" +
		"PEPMASS=400.0\n" +
		"1.0 1\n" +
		"END IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	spec := r.Spectrum()
	require.Equal(t, 10, spec.ScanNumber)
	require.Equal(t, 12, spec.ScanNumberEnd)
	require.Equal(t, 2, spec.ScanCount)
}

func TestMGFPepmassIntensityIgnored(t *testing.T) {
	// Known-quirk behavior (spec.md §9 item 2): a second PEPMASS field is
	// parsed as text but never used in any computation.
	content := "BEGIN IONS\n" +
		"PEPMASS=300.5 99999.0\n" +
		"CHARGE=1+\n" +
		"50.0 5\n" +
		"END IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	spec := r.Spectrum()
	require.InDelta(t, 300.5, spec.ParentIonMZ, 1e-9)
	require.False(t, r.Next())
}

func TestMGFAgilentScanNumber(t *testing.T) {
	content := "BEGIN IONS\n" +
		"###MSMS: 4821\n" +
		"PEPMASS=400.0\n" +
		"10.0 1\n" +
		"END IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	require.Equal(t, 4821, r.Spectrum().ScanNumber)
}

func TestMGFScanNumberSynthesis(t *testing.T) {
	content := "BEGIN IONS\nPEPMASS=100.0\n1.0 1\nEND IONS\n" +
		"BEGIN IONS\nPEPMASS=200.0\n2.0 2\nEND IONS\n"
	r := NewReader(strings.NewReader(content), nil)

	require.True(t, r.Next())
	require.Equal(t, 1, r.Spectrum().ScanNumber)
	require.True(t, r.Next())
	require.Equal(t, 2, r.Spectrum().ScanNumber)
	require.False(t, r.Next())
	require.NoError(t, r.Err())
}

func TestMGFUnterminatedBlockErrors(t *testing.T) {
	content := "BEGIN IONS\nPEPMASS=100.0\n1.0 1\n"
	r := NewReader(strings.NewReader(content), nil)

	require.False(t, r.Next())
	require.Error(t, r.Err())
	require.True(t, core.IsKind(r.Err(), core.MalformedXml))
}
