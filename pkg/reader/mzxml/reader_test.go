package mzxml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msformats/specio/pkg/codec"
	"github.com/msformats/specio/pkg/core"
)

func encodedPeaks(t *testing.T, mz, intensity []float64, big bool) string {
	t.Helper()
	interleaved := make([]float64, 0, len(mz)*2)
	for i := range mz {
		interleaved = append(interleaved, mz[i], intensity[i])
	}
	endian := codec.LittleEndian
	if big {
		endian = codec.BigEndian
	}
	text, err := codec.Encode(interleaved, codec.Float32, endian, false)
	require.NoError(t, err)
	return text
}

func buildTwoScanDocument(t *testing.T, big bool) []byte {
	p1 := encodedPeaks(t, []float64{100.0, 200.0}, []float64{10.0, 20.0}, big)
	p2 := encodedPeaks(t, []float64{300.0, 400.0, 500.0}, []float64{30.0, 40.0, 50.0}, big)
	order := "little"
	if big {
		order = "network"
	}
	doc := fmt.Sprintf(`<?xml version="1.0"?>
<mzXML>
<msRun scanCount="2">
<scan num="1" msLevel="1" peaksCount="2" retentionTime="PT60.0S" polarity="+">
<peaks precision="32" byteOrder="%s" pairOrder="m/z-int">%s</peaks>
</scan>
<scan num="2" msLevel="2" peaksCount="3" retentionTime="PT120.0S" polarity="+">
<precursorMz precursorIntensity="999.0" precursorCharge="2">450.5</precursorMz>
<peaks precision="32" byteOrder="%s" pairOrder="m/z-int">%s</peaks>
</scan>
</msRun>
</mzXML>`, order, p1, order, p2)
	return []byte(doc)
}

func TestMzXMLStreamingTwoScans(t *testing.T) {
	// S4 from spec.md §8.
	doc := buildTwoScanDocument(t, true)
	r := NewReader(doc, Options{}, nil)
	spectra, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, spectra, 2)

	require.Equal(t, 1, spectra[0].ScanNumber)
	require.Equal(t, 1, spectra[0].MSLevel)
	require.Len(t, spectra[0].Peaks, 2)
	require.InDelta(t, 100.0, spectra[0].Peaks[0].MZ, 1e-3)
	require.InDelta(t, 1.0, spectra[0].RetentionTimeMinutes, 1e-9)

	second := spectra[1]
	require.Equal(t, 2, second.ScanNumber)
	require.Len(t, second.Peaks, 3)
	require.InDelta(t, 450.5, second.ParentIonMZ, 1e-6)
	details, ok := second.Details.(*core.MzXMLDetails)
	require.True(t, ok)
	require.Equal(t, 2, details.ParentIonCharge)
}

func TestMzXMLNestedScanNotEmittedIndependently(t *testing.T) {
	p1 := encodedPeaks(t, []float64{1.0}, []float64{1.0}, false)
	p2 := encodedPeaks(t, []float64{2.0}, []float64{2.0}, false)
	doc := fmt.Sprintf(`<mzXML><msRun scanCount="1">
<scan num="10" msLevel="1" peaksCount="1">
<peaks precision="32" byteOrder="little" pairOrder="m/z-int">%s</peaks>
<scan num="11" msLevel="2" peaksCount="1">
<peaks precision="32" byteOrder="little" pairOrder="m/z-int">%s</peaks>
</scan>
</scan>
</msRun></mzXML>`, p1, p2)

	r := NewReader([]byte(doc), Options{}, nil)
	spectra, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, spectra, 1)
	require.Equal(t, 10, spectra[0].ScanNumber)
}

func TestMzXMLSkipBinaryData(t *testing.T) {
	doc := buildTwoScanDocument(t, false)
	r := NewReader(doc, Options{SkipBinaryData: true}, nil)
	spectra, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, spectra, 2)
	require.Empty(t, spectra[0].Peaks)
	require.Empty(t, spectra[1].Peaks)
}
