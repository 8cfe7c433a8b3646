// Package mzxml implements the mzXML sequential parser (the streaming state
// machine) and the indexed random-access accessor built on top of it.
package mzxml

import (
	"strconv"
	"strings"

	"github.com/msformats/specio/pkg/codec"
	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/xmlcommon"
)

// Options configures mzXML parsing behavior not determined by the file
// itself.
type Options struct {
	// SkipBinaryData, when set, makes the parser skip decoding <peaks>
	// payloads entirely, leaving Peaks empty. build_index does not go through
	// this parser at all; it uses the byte-level tag scanner instead.
	SkipBinaryData bool
}

// Reader drives xmlcommon.Parser over a whole mzXML document (streaming
// mode) or a single synthesized spectrum document (random-access mode),
// emitting one core.Spectrum per completed <scan> at the outermost depth.
type Reader struct {
	parser   *xmlcommon.Parser
	opts     Options
	observer core.Observer

	scanCount int
	spectra   []*core.Spectrum

	// stack of in-progress spectra, indexed by the depth their owning <scan>
	// opened at; only the first entry (outermost open <scan>) is the
	// "current" spectrum that accumulates peaks and precursor fields, per
	// the spec's nested-scan-is-a-child-record rule.
	frames []*frame

	abort *bool
}

type frame struct {
	depth       int
	spec        *core.Spectrum
	details     *core.MzXMLDetails
	inPeaks     bool
	peaksText   strings.Builder
	inPrecursor bool
	precText    strings.Builder
}

// NewReader builds an mzXML reader over an in-memory document.
func NewReader(data []byte, opts Options, observer core.Observer) *Reader {
	return &Reader{
		parser:   xmlcommon.NewParser(data),
		opts:     opts,
		observer: core.ObserverOrNoop(observer),
	}
}

// SetAbortFlag wires a cooperative cancellation flag.
func (r *Reader) SetAbortFlag(flag *bool) {
	r.abort = flag
}

// ReadAll runs the parser to completion and returns every spectrum found.
// A malformed-XML token error is reported to the observer and ends the
// parse: the spectra completed before it are returned, and no later <scan>
// is read.
func (r *Reader) ReadAll() ([]*core.Spectrum, error) {
	if err := r.parser.Run(r); err != nil {
		if r.abort != nil && *r.abort {
			return r.spectra, core.NewError(core.AbortRequested, "abort requested")
		}
		r.observer.OnError(err)
	}
	return r.spectra, nil
}

func (r *Reader) aborted() bool {
	return r.abort != nil && *r.abort
}

func (r *Reader) OnStart(name string, attrs map[string]string, depth int) error {
	if r.aborted() {
		return core.NewError(core.AbortRequested, "abort requested")
	}

	switch name {
	case "msRun":
		if v, ok := attrs["scanCount"]; ok {
			r.scanCount, _ = strconv.Atoi(v)
		}
	case "scan":
		f := &frame{depth: depth, spec: &core.Spectrum{}, details: &core.MzXMLDetails{}}
		f.spec.Details = f.details
		f.spec.SourceFormat = "mzxml"
		if v, ok := attrs["num"]; ok {
			f.spec.ScanNumber, _ = strconv.Atoi(v)
			f.spec.SpectrumID = f.spec.ScanNumber
		}
		if v, ok := attrs["msLevel"]; ok {
			f.spec.MSLevel, _ = strconv.Atoi(v)
		}
		if v, ok := attrs["peaksCount"]; ok {
			f.details.PeaksCount, _ = strconv.Atoi(v)
		}
		if v, ok := attrs["retentionTime"]; ok {
			f.spec.RetentionTimeMinutes = parseRetentionTime(v)
		}
		if v, ok := attrs["centroided"]; ok {
			f.spec.Centroided = v == "1" || strings.EqualFold(v, "true")
		}
		if v, ok := attrs["polarity"]; ok {
			f.spec.Polarity = v
		}
		if v, ok := attrs["collisionEnergy"]; ok {
			f.details.CollisionEnergy, _ = strconv.ParseFloat(v, 64)
		}
		if v, ok := attrs["scanType"]; ok {
			f.details.ScanType = parseScanType(v)
		}
		if v, ok := attrs["filterLine"]; ok {
			f.details.FilterLine = v
		}
		if v, ok := attrs["startMz"]; ok {
			f.details.StartMZ, _ = strconv.ParseFloat(v, 64)
		}
		if v, ok := attrs["endMz"]; ok {
			f.details.EndMZ, _ = strconv.ParseFloat(v, 64)
		}
		r.frames = append(r.frames, f)
	case "precursorMz":
		f := r.currentFrame()
		if f == nil {
			return nil
		}
		f.inPrecursor = true
		f.precText.Reset()
		if v, ok := attrs["precursorScanNum"]; ok {
			f.details.PrecursorScanNumber, _ = strconv.Atoi(v)
		}
		if v, ok := attrs["precursorIntensity"]; ok {
			f.spec.ParentIonIntensity, _ = strconv.ParseFloat(v, 64)
		}
		if v, ok := attrs["activationMethod"]; ok {
			f.details.ActivationMethod = v
		}
		if v, ok := attrs["precursorCharge"]; ok {
			f.details.ParentIonCharge, _ = strconv.Atoi(v)
		}
	case "peaks":
		f := r.currentFrame()
		if f == nil {
			return nil
		}
		f.inPeaks = true
		f.peaksText.Reset()
		if v, ok := attrs["precision"]; ok {
			f.details.NumericPrecision, _ = strconv.Atoi(v)
		}
		f.details.PeaksByteOrderBigEnd = attrs["byteOrder"] == "network" || strings.EqualFold(attrs["byteOrder"], "big")
		if v, ok := attrs["pairOrder"]; ok {
			f.details.PeaksPairOrder = parsePairOrder(v)
		} else if v, ok := attrs["contentType"]; ok {
			f.details.PeaksPairOrder = parsePairOrder(v)
		}
		if v, ok := attrs["compressionType"]; ok {
			if strings.EqualFold(v, "zlib") {
				f.details.Compression = core.CompressionZlib
			}
		}
		if v, ok := attrs["compressedLen"]; ok {
			f.details.CompressedLen, _ = strconv.Atoi(v)
		}
	}
	return nil
}

func (r *Reader) OnText(text string, depth int) error {
	f := r.currentFrame()
	if f == nil {
		return nil
	}
	if f.inPeaks {
		f.peaksText.WriteString(text)
	} else if f.inPrecursor {
		f.precText.WriteString(text)
	}
	return nil
}

func (r *Reader) OnEnd(name string, depth int) error {
	switch name {
	case "precursorMz":
		f := r.currentFrame()
		if f == nil {
			return nil
		}
		f.inPrecursor = false
		if v, err := strconv.ParseFloat(strings.TrimSpace(f.precText.String()), 64); err == nil {
			f.spec.ParentIonMZ = v
		}
	case "peaks":
		f := r.currentFrame()
		if f == nil {
			return nil
		}
		f.inPeaks = false
		if !r.opts.SkipBinaryData {
			if err := r.decodePeaks(f); err != nil {
				r.observer.OnError(err)
			}
		}
	case "scan":
		if len(r.frames) == 0 {
			return nil
		}
		f := r.frames[len(r.frames)-1]
		if f.depth != depth {
			return nil
		}
		r.frames = r.frames[:len(r.frames)-1]
		if len(r.frames) > 0 {
			// An inner scan closed; it remains attached to its ancestor's
			// context, not emitted independently.
			return nil
		}
		if err := f.spec.Validate(); err != nil {
			r.observer.OnError(err)
		}
		r.spectra = append(r.spectra, f.spec)
	}
	return nil
}

// currentFrame returns the outermost open <scan> frame, the current
// spectrum. <precursorMz> and <peaks> inside a nested <scan> are recorded on
// this frame, so a nested scan's peaks replace the outer scan's peak list.
func (r *Reader) currentFrame() *frame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[0]
}

func (r *Reader) decodePeaks(f *frame) error {
	text := strings.TrimSpace(f.peaksText.String())
	if text == "" {
		return nil
	}

	elemType := codec.Float32
	if f.details.NumericPrecision == 64 {
		elemType = codec.Float64
	}
	endian := codec.LittleEndian
	if f.details.PeaksByteOrderBigEnd {
		endian = codec.BigEndian
	}
	zlib := f.details.Compression == core.CompressionZlib

	values, err := codec.Decode(text, elemType, zlib, endian)
	if err != nil {
		return err
	}

	peaks := pairUpByOrder(values, f.details.PeaksPairOrder)
	for i := range peaks {
		peaks[i].Index = i
	}
	f.spec.Peaks = peaks
	return nil
}

// pairUpByOrder interleaves a flat value vector into peaks according to the
// pairOrder/contentType attribute. Unsupported single-channel orders
// (m/z-only, intensity-only, S/N, charge, ruler, TOF) are out of this
// format's documented scope for peak extraction and degrade to treating the
// vector as m/z with a zero intensity, matching the "best effort, never
// crash the stream" error policy.
func pairUpByOrder(values []float64, order core.PeaksPairOrder) []core.Peak {
	if order == core.PairOrderIntMZ {
		peaks := make([]core.Peak, 0, len(values)/2)
		for i := 0; i+1 < len(values); i += 2 {
			peaks = append(peaks, core.Peak{Intensity: values[i], MZ: values[i+1]})
		}
		return peaks
	}

	if len(values)%2 == 0 && (order == core.PairOrderMZInt || order == core.PairOrderUnknown) {
		peaks := make([]core.Peak, 0, len(values)/2)
		for i := 0; i+1 < len(values); i += 2 {
			peaks = append(peaks, core.Peak{MZ: values[i], Intensity: values[i+1]})
		}
		return peaks
	}

	peaks := make([]core.Peak, len(values))
	for i, v := range values {
		peaks[i] = core.Peak{MZ: v}
	}
	return peaks
}

func parsePairOrder(v string) core.PeaksPairOrder {
	switch strings.ToLower(v) {
	case "m/z-int", "mz-int", "pairs":
		return core.PairOrderMZInt
	case "int-m/z", "int-mz":
		return core.PairOrderIntMZ
	case "m/z", "mz":
		return core.PairOrderMZOnly
	case "intensity":
		return core.PairOrderIntensityOnly
	case "s/n", "sn":
		return core.PairOrderSN
	case "charge":
		return core.PairOrderCharge
	case "m/z ruler", "mzruler":
		return core.PairOrderMZRuler
	case "tof":
		return core.PairOrderTOF
	default:
		return core.PairOrderMZInt
	}
}

func parseScanType(v string) core.MzXMLScanType {
	switch strings.ToLower(v) {
	case "full":
		return core.ScanTypeFull
	case "zoom":
		return core.ScanTypeZoom
	case "sim":
		return core.ScanTypeSIM
	case "srm":
		return core.ScanTypeSRM
	case "crm":
		return core.ScanTypeCRM
	case "q1":
		return core.ScanTypeQ1
	case "q3":
		return core.ScanTypeQ3
	case "mrm":
		return core.ScanTypeMRM
	default:
		return core.ScanTypeUnknown
	}
}

// parseRetentionTime parses an xsd:duration value like "PT123.4S" into
// minutes.
func parseRetentionTime(v string) float64 {
	v = strings.TrimPrefix(v, "PT")
	v = strings.TrimSuffix(v, "S")
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return seconds / 60.0
}
