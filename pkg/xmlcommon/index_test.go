package xmlcommon

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func scanNumAttr(attrs map[string]string) int {
	n, _ := strconv.Atoi(attrs["num"])
	return n
}

func TestBuildIndexSimpleDocument(t *testing.T) {
	data := []byte(`<mzXML><msRun scanCount="2"><scan num="1">a</scan><scan num="2">b</scan></msRun></mzXML>`)

	idx, header, footer := BuildIndex(data, "scan", false, scanNumAttr)

	require.Equal(t, 2, idx.Count())
	require.Equal(t, []int{1, 2}, idx.ScanNumbers())
	require.Equal(t, `<mzXML><msRun scanCount="2">`, string(header))
	require.Equal(t, `</msRun></mzXML>`, string(footer))

	e1, ok := idx.ByScanNumber(1)
	require.True(t, ok)
	require.Equal(t, data[e1.ByteStart:e1.ByteEnd+1], []byte(`<scan num="1">a</scan>`))
}

func TestBuildIndexNestedSameTagName(t *testing.T) {
	data := []byte(`<root><scan num="1">outer<scan num="2">inner</scan>tail</scan></root>`)

	idx, _, _ := BuildIndex(data, "scan", false, scanNumAttr)

	require.Equal(t, 1, idx.Count())
	e, ok := idx.ByScanNumber(1)
	require.True(t, ok)
	require.Equal(t, data[e.ByteStart:e.ByteEnd+1], []byte(`<scan num="1">outer<scan num="2">inner</scan>tail</scan>`))
}

func TestBuildIndexCaseInsensitiveTarget(t *testing.T) {
	data := []byte(`<mzData><spectrumList><spectrum id="5">x</spectrum></spectrumList></mzData>`)

	idx, _, _ := BuildIndex(data, "spectrum", true, func(attrs map[string]string) int {
		n, _ := strconv.Atoi(attrs["id"])
		return n
	})

	require.Equal(t, 1, idx.Count())
	_, ok := idx.ByScanNumber(5)
	require.True(t, ok)
}

func TestHeaderFooterForFirstTag(t *testing.T) {
	data := []byte(`<a><b><c id="1"/></b></a>`)
	header, footer := HeaderFooterForFirstTag(data, "c", false)
	require.Equal(t, `<a><b>`, string(header))
	require.Equal(t, `</b></a>`, string(footer))
}

func TestSpectrumIndexFirstWriteWins(t *testing.T) {
	idx := NewSpectrumIndex()
	idx.Add(IndexEntry{ScanNumber: 1, ByteStart: 0, ByteEnd: 10})
	idx.Add(IndexEntry{ScanNumber: 1, ByteStart: 100, ByteEnd: 110})

	e, ok := idx.ByScanNumber(1)
	require.True(t, ok)
	require.Equal(t, int64(0), e.ByteStart)
	require.Equal(t, 2, idx.Count())
}
