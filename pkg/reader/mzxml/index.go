package mzxml

import (
	"bytes"
	"strconv"

	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/textio"
	"github.com/msformats/specio/pkg/xmlcommon"
)

// Accessor is the indexed random-access reader (C6) for mzXML: it builds a
// scan-number index over the whole file once, then serves individual
// spectrum fetches by slicing a byte range and feeding it through a
// single-shot Reader.
type Accessor struct {
	tr       *textio.Reader
	idx      *xmlcommon.SpectrumIndex
	header   []byte
	footer   []byte
	opts     Options
	observer core.Observer
}

// OpenAccessor opens path and builds its index, preferring an embedded
// <index>/<indexOffset> trailer when present and valid.
func OpenAccessor(path string, opts Options, observer core.Observer) (*Accessor, error) {
	tr, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	a := &Accessor{tr: tr, opts: opts, observer: core.ObserverOrNoop(observer)}

	if idx, header, footer, ok := tryLoadEmbeddedIndex(tr.Bytes()); ok {
		a.idx, a.header, a.footer = idx, header, footer
		return a, nil
	}

	a.buildIndex()
	return a, nil
}

func (a *Accessor) buildIndex() {
	a.idx, a.header, a.footer = xmlcommon.BuildIndex(a.tr.Bytes(), "scan", false, func(attrs map[string]string) int {
		n, _ := strconv.Atoi(attrs["num"])
		return n
	})
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

// GetSpectrumByScanNumber fetches and parses the spectrum at a given scan
// number.
func (a *Accessor) GetSpectrumByScanNumber(n int) (*core.Spectrum, error) {
	entry, ok := a.idx.ByScanNumber(n)
	if !ok {
		return nil, core.NewError(core.InvalidScanNumber, "scan number not found in index")
	}
	return a.parseEntry(entry)
}

// GetSpectrumByIndex fetches and parses the i-th indexed spectrum in
// insertion order.
func (a *Accessor) GetSpectrumByIndex(i int) (*core.Spectrum, error) {
	entry, ok := a.idx.ByOrdinal(i)
	if !ok {
		return nil, core.NewError(core.InvalidScanNumber, "index out of range")
	}
	return a.parseEntry(entry)
}

// GetSourceXMLByScanNumber returns the raw byte slice (without the
// synthetic header/footer wrapper) for a given scan number.
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

// tryLoadEmbeddedIndex looks for a trailing <index>/<indexOffset> section,
// as some mzXML producers append one so a later reader can skip
// build_index entirely. It spot-checks up to two entries before trusting the
// result; on any failure it returns ok=false so the caller falls back to a
// full scan.
func tryLoadEmbeddedIndex(data []byte) (idx *xmlcommon.SpectrumIndex, header, footer []byte, ok bool) {
	offsetTagStart := bytes.LastIndex(data, []byte("<indexOffset>"))
	if offsetTagStart < 0 {
		return nil, nil, nil, false
	}
	valueStart := offsetTagStart + len("<indexOffset>")
	valueEnd := bytes.Index(data[valueStart:], []byte("</indexOffset>"))
	if valueEnd < 0 {
		return nil, nil, nil, false
	}
	offsetStr := string(bytes.TrimSpace(data[valueStart : valueStart+valueEnd]))
	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil || offset < 0 || offset >= int64(len(data)) {
		return nil, nil, nil, false
	}

	indexSection := data[offset:]
	indexEnd := bytes.Index(indexSection, []byte("</index>"))
	if indexEnd < 0 {
		return nil, nil, nil, false
	}
	indexSection = indexSection[:indexEnd+len("</index>")]

	built := xmlcommon.NewSpectrumIndex()
	var entries []xmlcommon.IndexEntry

	// Parse each <offset id="N">BYTE</offset> pair directly with a plain
	// byte search; this trailer section is tiny relative to the file.
	type offsetPair struct {
		id    int
		value int64
	}
	var pairs []offsetPair
	pos := 0
	for {
		start := bytes.Index(indexSection[pos:], []byte("<offset"))
		if start < 0 {
			break
		}
		start += pos
		tagEnd := bytes.IndexByte(indexSection[start:], '>')
		if tagEnd < 0 {
			break
		}
		tagEnd += start
		attrs := xmlcommon.ParseAttrs(string(indexSection[start+len("<offset") : tagEnd]))
		id, _ := strconv.Atoi(attrs["id"])
		closeStart := bytes.Index(indexSection[tagEnd:], []byte("</offset>"))
		if closeStart < 0 {
			break
		}
		closeStart += tagEnd
		value, _ := strconv.ParseInt(string(bytes.TrimSpace(indexSection[tagEnd+1:closeStart])), 10, 64)
		pairs = append(pairs, offsetPair{id: id, value: value})
		pos = closeStart + len("</offset>")
	}

	if len(pairs) == 0 {
		return nil, nil, nil, false
	}

	for _, p := range pairs {
		entries = append(entries, xmlcommon.IndexEntry{ScanNumber: p.id, ByteStart: p.value, ByteEnd: p.value})
	}

	// Spot-check up to two entries: the byte offset must begin with "<scan".
	checked := 0
	for _, e := range entries {
		if checked >= 2 {
			break
		}
		if e.ByteStart >= int64(len(data)) {
			return nil, nil, nil, false
		}
		window := data[e.ByteStart:]
		if len(window) < 5 || string(window[:5]) != "<scan" {
			return nil, nil, nil, false
		}
		checked++
	}

	// We only have start offsets from the trailer, not end offsets; derive
	// end offsets by locating each entry's matching </scan> with the shared
	// depth-aware tag scanner starting at its own start offset.
	for i, e := range entries {
		end := findMatchingScanEnd(data, e.ByteStart)
		if end < 0 {
			return nil, nil, nil, false
		}
		entries[i].ByteEnd = end
		built.Add(entries[i])
	}

	header, footer = xmlcommon.HeaderFooterForFirstTag(data, "scan", false)
	return built, header, footer, true
}

// findMatchingScanEnd scans forward from a known <scan start offset to find
// the byte offset of its matching closing '>' of </scan>, honoring nested
// <scan> elements.
func findMatchingScanEnd(data []byte, start int64) int64 {
	depth := 0
	result := int64(-1)
	xmlcommon.ScanTags(data[start:], func(evt xmlcommon.TagEvent) bool {
		if evt.Name != "scan" {
			return false
		}
		if !evt.IsEnd {
			depth++
			if evt.SelfClosed {
				depth--
				if depth == 0 {
					result = start + evt.EndOffset
					return true
				}
			}
			return false
		}
		depth--
		if depth == 0 {
			result = start + evt.EndOffset
			return true
		}
		return false
	})
	return result
}
