// Package codec implements the numeric payload codec: base64 decode,
// optional zlib-wrapped deflate, and endian-aware typed conversion between
// byte runs and numeric vectors.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/flate"
	"github.com/msformats/specio/pkg/core"
)

// ElementType identifies the numeric type a payload decodes into.
type ElementType int

const (
	Uint8 ElementType = iota
	Int16
	Int32
	Float32
	Float64
)

func (t ElementType) size() int {
	switch t {
	case Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Endian selects byte order for the typed conversion step.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Decode turns base64 text (optionally zlib-wrapped deflate) into a slice of
// float64 values, one per decoded element, converted from elemType/endian.
// A float64 result is used uniformly because every caller in this module
// ultimately needs m/z or intensity values as float64; elemType only governs
// how the raw bytes are interpreted, not the return type.
func Decode(text string, elemType ElementType, zlibCompressed bool, endian Endian) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, core.Wrap(core.MalformedPayload, "invalid base64 payload", err)
	}

	if zlibCompressed {
		raw, err = inflateZlibWrapped(raw)
		if err != nil {
			return nil, core.Wrap(core.MalformedPayload, "deflate failure", err)
		}
	}

	size := elemType.size()
	if size == 0 || len(raw)%size != 0 {
		return nil, core.NewError(core.MalformedPayload, fmt.Sprintf("decoded length %d is not a multiple of element size %d", len(raw), size))
	}

	order := endian.order()
	n := len(raw) / size
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		window := raw[i*size : (i+1)*size]
		switch elemType {
		case Uint8:
			out[i] = float64(window[0])
		case Int16:
			out[i] = float64(int16(order.Uint16(window)))
		case Int32:
			out[i] = float64(int32(order.Uint32(window)))
		case Float32:
			out[i] = float64(math.Float32frombits(order.Uint32(window)))
		case Float64:
			out[i] = math.Float64frombits(order.Uint64(window))
		}
	}
	return out, nil
}

// inflateZlibWrapped skips the zlib wrapper's 2-byte method/flags header and
// inflates the remaining raw deflate stream directly, rather than requiring
// a complete zlib stream with a trailing Adler-32 checksum (several producers
// of these payloads omit it).
func inflateZlibWrapped(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("zlib payload too short: %d bytes", len(data))
	}
	fr := flate.NewReader(bytes.NewReader(data[2:]))
	defer fr.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(fr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Encode is the literal inverse of Decode, given values already expressed as
// float64. It exists so the round-trip property (decode(encode(v)) == v) is
// expressible without a second hand-maintained reference implementation;
// this library does not otherwise expose format writers.
func Encode(values []float64, elemType ElementType, endian Endian, zlibCompress bool) (string, error) {
	size := elemType.size()
	order := endian.order()
	raw := make([]byte, len(values)*size)
	for i, v := range values {
		window := raw[i*size : (i+1)*size]
		switch elemType {
		case Uint8:
			window[0] = byte(int64(v))
		case Int16:
			order.PutUint16(window, uint16(int16(v)))
		case Int32:
			order.PutUint32(window, uint32(int32(v)))
		case Float32:
			order.PutUint32(window, math.Float32bits(float32(v)))
		case Float64:
			order.PutUint64(window, math.Float64bits(v))
		}
	}

	if zlibCompress {
		var err error
		raw, err = deflateZlibWrapped(raw)
		if err != nil {
			return "", err
		}
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// deflateZlibWrapped writes a minimal 2-byte zlib header (method=deflate,
// no preset dictionary, default compression level) followed by a raw
// deflate stream, mirroring the wrapper Decode strips off.
func deflateZlibWrapped(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0x78, 0x9c})
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
