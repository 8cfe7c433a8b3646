package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	elemTypes := []ElementType{Int16, Int32, Float32, Float64}
	endians := []Endian{LittleEndian, BigEndian}
	lengths := []int{0, 1, 2, 7, 64, 1024}

	for _, et := range elemTypes {
		for _, endian := range endians {
			for _, n := range lengths {
				values := sampleValues(et, n)
				text, err := Encode(values, et, endian, false)
				require.NoError(t, err)

				got, err := Decode(text, et, false, endian)
				require.NoError(t, err)
				require.Len(t, got, n)

				for i := range values {
					want := roundTripExpectation(et, values[i])
					require.InDeltaf(t, want, got[i], 1e-4, "elem %d type=%v endian=%v", i, et, endian)
				}
			}
		}
	}
}

func TestDecodeZlibWrappedPayload(t *testing.T) {
	values := []float64{100.0, 500.0, 200.0, 1000.0}
	text, err := Encode(values, Float32, BigEndian, true)
	require.NoError(t, err)

	got, err := Decode(text, Float32, true, BigEndian)
	require.NoError(t, err)
	require.Len(t, got, len(values))
	for i := range values {
		require.InDelta(t, values[i], got[i], 1e-4)
	}
}

func TestDecodeMalformedPayloadLength(t *testing.T) {
	// Three raw bytes base64-encoded cannot divide evenly into int32 (4-byte)
	// elements.
	_, err := Decode("AQID", Int32, false, LittleEndian)
	require.Error(t, err)
}

func TestDecodeInvalidBase64(t *testing.T) {
	_, err := Decode("not-valid-base64!!", Float32, false, LittleEndian)
	require.Error(t, err)
}

func sampleValues(et ElementType, n int) []float64 {
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		switch et {
		case Int16:
			values[i] = float64(int16(i*37 - 1000))
		case Int32:
			values[i] = float64(int32(i*100003 - 50000))
		case Float32:
			values[i] = float64(float32(i) * 1.5)
		case Float64:
			values[i] = float64(i) * 1.23456789
		}
	}
	return values
}

func roundTripExpectation(et ElementType, v float64) float64 {
	if et == Float32 {
		return float64(float32(v))
	}
	return v
}

func TestFloat32Precision(t *testing.T) {
	v := float32(123.456)
	bits := math.Float32bits(v)
	require.Equal(t, v, math.Float32frombits(bits))
}
