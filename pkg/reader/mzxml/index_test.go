package mzxml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMzXMLAccessorBuildIndexAndFetch(t *testing.T) {
	// S5 from spec.md §8, combined with property 4 (index stability).
	doc := buildTwoScanDocument(t, true)
	path := writeTempFile(t, "sample.mzXML", doc)

	acc, err := OpenAccessor(path, Options{}, nil)
	require.NoError(t, err)
	defer acc.Close()

	list := acc.GetScanNumberList()
	require.Equal(t, []int{1, 2}, list)
	require.Equal(t, 2, acc.CachedSpectrumCount())

	spec, err := acc.GetSpectrumByScanNumber(2)
	require.NoError(t, err)
	require.Equal(t, 2, spec.ScanNumber)
	require.Len(t, spec.Peaks, 3)
	require.InDelta(t, 450.5, spec.ParentIonMZ, 1e-6)

	streaming := NewReader(doc, Options{}, nil)
	streamed, err := streaming.ReadAll()
	require.NoError(t, err)

	for i, want := range streamed {
		got, err := acc.GetSpectrumByIndex(i)
		require.NoError(t, err)
		require.Equal(t, want.ScanNumber, got.ScanNumber)
		require.Equal(t, len(want.Peaks), len(got.Peaks))
		for j := range want.Peaks {
			require.InDelta(t, want.Peaks[j].MZ, got.Peaks[j].MZ, 1e-3)
		}
	}
}

func TestMzXMLAccessorUnknownScanNumber(t *testing.T) {
	doc := buildTwoScanDocument(t, false)
	path := writeTempFile(t, "sample2.mzXML", doc)

	acc, err := OpenAccessor(path, Options{}, nil)
	require.NoError(t, err)
	defer acc.Close()

	_, err = acc.GetSpectrumByScanNumber(999)
	require.Error(t, err)
}
