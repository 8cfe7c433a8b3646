package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msformats/specio/pkg/xmlcommon"
)

func buildTestIndex() *xmlcommon.SpectrumIndex {
	idx := xmlcommon.NewSpectrumIndex()
	idx.Add(xmlcommon.IndexEntry{ScanNumber: 1, ByteStart: 0, ByteEnd: 99})
	idx.Add(xmlcommon.IndexEntry{ScanNumber: 2, ByteStart: 100, ByteEnd: 199})
	return idx
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	idx := buildTestIndex()
	header := []byte("<mzXML><msRun>")
	footer := []byte("</msRun></mzXML>")

	require.NoError(t, store.SaveIndex("sample.mzXML", "mzxml", "fp-123", idx, header, footer))

	loaded, loadedHeader, loadedFooter, ok, err := store.LoadIndex("sample.mzXML", "fp-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, header, loadedHeader)
	require.Equal(t, footer, loadedFooter)
	require.Equal(t, idx.Count(), loaded.Count())

	for i := 0; i < idx.Count(); i++ {
		want, _ := idx.ByOrdinal(i)
		got, _ := loaded.ByOrdinal(i)
		require.Equal(t, want, got)
	}
}

func TestStoreLoadMissesOnFingerprintMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveIndex("sample.mzXML", "mzxml", "fp-1", buildTestIndex(), nil, nil))

	_, _, _, ok, err := store.LoadIndex("sample.mzXML", "fp-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreLoadMissesOnUnknownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, _, _, ok, err := store.LoadIndex("nope.mzXML", "fp")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreSaveOverwritesPreviousEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveIndex("sample.mzXML", "mzxml", "fp-1", buildTestIndex(), nil, nil))

	idx2 := xmlcommon.NewSpectrumIndex()
	idx2.Add(xmlcommon.IndexEntry{ScanNumber: 99, ByteStart: 0, ByteEnd: 10})
	require.NoError(t, store.SaveIndex("sample.mzXML", "mzxml", "fp-2", idx2, nil, nil))

	loaded, _, _, ok, err := store.LoadIndex("sample.mzXML", "fp-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, loaded.Count())
	entry, found := loaded.ByScanNumber(99)
	require.True(t, found)
	require.Equal(t, int64(10), entry.ByteEnd)
}
