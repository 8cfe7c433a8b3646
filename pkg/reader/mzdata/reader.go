// Package mzdata implements the mzData sequential parser and the indexed
// random-access accessor built on top of it.
package mzdata

import (
	"strconv"
	"strings"

	"github.com/msformats/specio/pkg/codec"
	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/xmlcommon"
)

// Options configures mzData parsing behavior not determined by the file
// itself.
type Options struct {
	SkipBinaryData bool
}

// Reader drives xmlcommon.Parser over a whole mzData document or a single
// synthesized spectrum document, emitting one core.Spectrum per
// <spectrum>.
type Reader struct {
	parser   *xmlcommon.Parser
	opts     Options
	observer core.Observer

	spectra []*core.Spectrum
	cur     *curSpectrum

	inSupDataDesc bool
	supDataDepth  int

	abort *bool
}

type curSpectrum struct {
	spec    *core.Spectrum
	details *core.MzDataDetails

	inMz       bool
	inIntensity bool
	mzText      strings.Builder
	intenText   strings.Builder
	mzPrecision int
	mzEndianBig bool
	intPrecision int
	intEndianBig bool
}

// NewReader builds an mzData reader over an in-memory document.
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

	switch strings.ToLower(name) {
	case "spectrum":
		s := &core.Spectrum{}
		d := &core.MzDataDetails{}
		s.Details = d
		s.SourceFormat = "mzdata"
		if v, ok := attrs["id"]; ok {
			n, _ := strconv.Atoi(v)
			s.ScanNumber = n
			s.SpectrumID = n
		}
		r.cur = &curSpectrum{spec: s, details: d}
	case "spectruminstrument":
		if r.cur == nil {
			return nil
		}
		if v, ok := attrs["msLevel"]; ok {
			r.cur.spec.MSLevel, _ = strconv.Atoi(v)
		}
	case "supdatadesc":
		r.inSupDataDesc = true
		r.supDataDepth = depth
	case "cvparam":
		if r.inSupDataDesc || r.cur == nil {
			return nil
		}
		r.applyCvParam(attrs["name"], attrs["value"])
	case "data":
		if r.cur == nil {
			return nil
		}
		parent := parentElementName(r.parser)
		precision, _ := strconv.Atoi(attrs["precision"])
		bigEndian := strings.EqualFold(attrs["endian"], "big")
		switch parent {
		case "mzArrayBinary", "mzarraybinary":
			r.cur.inMz = true
			r.cur.mzText.Reset()
			r.cur.mzPrecision = precision
			r.cur.mzEndianBig = bigEndian
		case "intenArrayBinary", "intenarraybinary":
			r.cur.inIntensity = true
			r.cur.intenText.Reset()
			r.cur.intPrecision = precision
			r.cur.intEndianBig = bigEndian
		}
	}
	return nil
}

// parentElementName looks one frame below the top of the parser's stack —
// the <data> element's own frame is the top, so its parent is the one
// beneath it.
func parentElementName(p *xmlcommon.Parser) string {
	stack := p.ParentStack()
	if len(stack) < 2 {
		return ""
	}
	return stack[len(stack)-2].Name
}

func (r *Reader) applyCvParam(name, value string) {
	s := r.cur.spec
	d := r.cur.details
	switch name {
	case "ScanMode":
		d.ScanMode = value
	case "Polarity":
		s.Polarity = value
	case "TimeInMinutes":
		s.RetentionTimeMinutes, _ = strconv.ParseFloat(value, 64)
	case "MassToChargeRatio":
		s.ParentIonMZ, _ = strconv.ParseFloat(value, 64)
	case "ChargeState":
		d.ParentIonCharge, _ = strconv.Atoi(value)
	case "Intensity":
		s.ParentIonIntensity, _ = strconv.ParseFloat(value, 64)
	case "CollisionEnergy":
		d.CollisionEnergy, _ = strconv.ParseFloat(value, 64)
	case "CollisionEnergyUnits":
		d.CollisionEnergyUnits = value
	case "CollisionMethod":
		d.CollisionMethod = value
	case "MsLevel":
		s.MSLevel, _ = strconv.Atoi(value)
	}
}

func (r *Reader) OnText(text string, depth int) error {
	if r.cur == nil {
		return nil
	}
	if r.cur.inMz {
		r.cur.mzText.WriteString(text)
	} else if r.cur.inIntensity {
		r.cur.intenText.WriteString(text)
	}
	return nil
}

func (r *Reader) OnEnd(name string, depth int) error {
	switch strings.ToLower(name) {
	case "supdatadesc":
		if r.inSupDataDesc && depth == r.supDataDepth {
			r.inSupDataDesc = false
		}
	case "data":
		if r.cur == nil {
			return nil
		}
		r.cur.inMz = false
		r.cur.inIntensity = false
	case "mzarraybinary", "intenarraybinary":
		// handled incrementally via inMz/inIntensity; nothing to finalize
		// here beyond what OnEnd("data") already closed.
	case "spectrum":
		if r.cur == nil {
			return nil
		}
		cur := r.cur
		r.cur = nil
		if !r.opts.SkipBinaryData {
			if err := r.decodePeaks(cur); err != nil {
				r.observer.OnError(err)
			}
		}
		if err := cur.spec.Validate(); err != nil {
			r.observer.OnError(err)
		}
		r.spectra = append(r.spectra, cur.spec)
	}
	return nil
}

// decodePeaks decodes the two independent mzData payloads — m/z and
// intensity are separate base64 streams with independent precision and
// endian, unlike mzXML's single interleaved payload.
func (r *Reader) decodePeaks(cur *curSpectrum) error {
	mzText := strings.TrimSpace(cur.mzText.String())
	intenText := strings.TrimSpace(cur.intenText.String())
	if mzText == "" || intenText == "" {
		return nil
	}

	mzType := precisionType(cur.mzPrecision)
	intType := precisionType(cur.intPrecision)
	mzEndian := codec.LittleEndian
	if cur.mzEndianBig {
		mzEndian = codec.BigEndian
	}
	intEndian := codec.LittleEndian
	if cur.intEndianBig {
		intEndian = codec.BigEndian
	}

	cur.details.MZPrecision = cur.mzPrecision
	cur.details.MZBigEndian = cur.mzEndianBig
	cur.details.IntensityPrecision = cur.intPrecision
	cur.details.IntensityBigEndian = cur.intEndianBig

	mzValues, err := codec.Decode(mzText, mzType, false, mzEndian)
	if err != nil {
		return err
	}
	intValues, err := codec.Decode(intenText, intType, false, intEndian)
	if err != nil {
		return err
	}

	n := len(mzValues)
	if len(intValues) < n {
		n = len(intValues)
	}
	peaks := make([]core.Peak, n)
	for i := 0; i < n; i++ {
		peaks[i] = core.Peak{Index: i, MZ: mzValues[i], Intensity: intValues[i]}
	}
	cur.spec.Peaks = peaks
	return nil
}

func precisionType(bits int) codec.ElementType {
	if bits == 64 {
		return codec.Float64
	}
	return codec.Float32
}
