package mzdata

import (
	"strconv"

	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/textio"
	"github.com/msformats/specio/pkg/xmlcommon"
)

// Accessor is the indexed random-access reader (C6) for mzData. Unlike
// mzXML, mzData carries no embedded index trailer convention, so Accessor
// always runs a full build_index pass on open.
type Accessor struct {
	tr       *textio.Reader
	idx      *xmlcommon.SpectrumIndex
	header   []byte
	footer   []byte
	opts     Options
	observer core.Observer
}

// OpenAccessor opens path and builds its index.
func OpenAccessor(path string, opts Options, observer core.Observer) (*Accessor, error) {
	tr, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	a := &Accessor{tr: tr, opts: opts, observer: core.ObserverOrNoop(observer)}
	a.idx, a.header, a.footer = xmlcommon.BuildIndex(tr.Bytes(), "spectrum", true, func(attrs map[string]string) int {
		n, _ := strconv.Atoi(attrs["id"])
		return n
	})
	return a, nil
}

// Close releases the underlying file.
func (a *Accessor) Close() error {
	return a.tr.Close()
}

// GetScanNumberList returns the ordered sequence of indexed scan numbers.
func (a *Accessor) GetScanNumberList() []int {
	return a.idx.ScanNumbers()
}

// CachedSpectrumCount returns the number of indexed entries.
func (a *Accessor) CachedSpectrumCount() int {
	return a.idx.Count()
}

// GetSpectrumByScanNumber fetches and parses the spectrum with a given id.
func (a *Accessor) GetSpectrumByScanNumber(n int) (*core.Spectrum, error) {
	entry, ok := a.idx.ByScanNumber(n)
	if !ok {
		return nil, core.NewError(core.InvalidScanNumber, "scan number not found in index")
	}
	return a.parseEntry(entry)
}

// GetSpectrumByIndex fetches and parses the i-th indexed spectrum.
func (a *Accessor) GetSpectrumByIndex(i int) (*core.Spectrum, error) {
	entry, ok := a.idx.ByOrdinal(i)
	if !ok {
		return nil, core.NewError(core.InvalidScanNumber, "index out of range")
	}
	return a.parseEntry(entry)
}

// GetSourceXMLByScanNumber returns the raw byte slice for a given id.
func (a *Accessor) GetSourceXMLByScanNumber(n int) ([]byte, error) {
	entry, ok := a.idx.ByScanNumber(n)
	if !ok {
		return nil, core.NewError(core.InvalidScanNumber, "scan number not found in index")
	}
	return a.tr.Bytes()[entry.ByteStart : entry.ByteEnd+1], nil
}

func (a *Accessor) parseEntry(entry xmlcommon.IndexEntry) (*core.Spectrum, error) {
	data := a.tr.Bytes()
	slice := data[entry.ByteStart : entry.ByteEnd+1]

	doc := make([]byte, 0, len(a.header)+len(slice)+len(a.footer))
	doc = append(doc, a.header...)
	doc = append(doc, slice...)
	doc = append(doc, a.footer...)

	r := NewReader(doc, a.opts, a.observer)
	spectra, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(spectra) == 0 {
		return nil, core.NewError(core.MalformedXml, "indexed range produced no spectrum")
	}
	return spectra[0], nil
}
