// Package spectrum implements the reader façade (C7): it selects an
// implementation by filename extension and exposes one uniform
// streaming/random-access interface over all four formats.
package spectrum

import (
	"os"
	"strings"

	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/reader/dta"
	"github.com/msformats/specio/pkg/reader/mgf"
	"github.com/msformats/specio/pkg/reader/mzdata"
	"github.com/msformats/specio/pkg/reader/mzxml"
)

// Format identifies which concrete parser a Reader is driving.
type Format int

const (
	FormatUnknown Format = iota
	FormatDTA
	FormatMGF
	FormatMzXML
	FormatMzData
)

// Options configures every format's parser uniformly; format-specific
// options are a subset of this struct's fields.
type Options struct {
	SkipBinaryData          bool
	CombineIdenticalSpectra bool
}

// randomAccessor is satisfied by both mzxml.Accessor and mzdata.Accessor.
type randomAccessor interface {
	GetSpectrumByScanNumber(n int) (*core.Spectrum, error)
	GetSpectrumByIndex(i int) (*core.Spectrum, error)
	GetScanNumberList() []int
	CachedSpectrumCount() int
	Close() error
}

// Reader is the uniform façade over one open file.
type Reader struct {
	format   Format
	path     string
	observer core.Observer

	file      *os.File
	dtaReader *dta.Reader
	mgfReader *mgf.Reader

	accessor randomAccessor

	// xmlCache holds every spectrum of an XML file, fetched once through the
	// accessor in index order on the first ReadNextSpectrum call, since this
	// module's XML readers do not expose a per-element pull API.
	xmlCache  []*core.Spectrum
	xmlCursor int
	xmlLoaded bool

	// streamed counts the spectra returned so far by the DTA/MGF readers.
	streamed int
}

// DetectFormat maps a filename to the format the façade would select for
// it, by case-insensitive suffix match.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".mgf"):
		return FormatMGF
	case strings.HasSuffix(lower, "_dta.txt"):
		return FormatDTA
	case strings.HasSuffix(lower, ".mzxml"):
		return FormatMzXML
	case strings.HasSuffix(lower, ".mzdata"):
		return FormatMzData
	default:
		return FormatUnknown
	}
}

// OpenFile opens path and prepares it for sequential reading.
func OpenFile(path string, opts Options, observer core.Observer) (*Reader, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, core.NewError(core.FileNotOpen, "unrecognized file extension: "+path)
	}

	r := &Reader{format: format, path: path, observer: core.ObserverOrNoop(observer)}

	switch format {
	case FormatDTA:
		f, err := os.Open(path)
		if err != nil {
			return nil, core.Wrap(core.IoError, "failed to open file", err)
		}
		info, _ := f.Stat()
		var size int64
		if info != nil {
			size = info.Size()
		}
		r.file = f
		r.dtaReader = dta.NewReader(f, size, dta.Options{CombineIdenticalSpectra: opts.CombineIdenticalSpectra}, r.observer)
	case FormatMGF:
		f, err := os.Open(path)
		if err != nil {
			return nil, core.Wrap(core.IoError, "failed to open file", err)
		}
		r.file = f
		r.mgfReader = mgf.NewReader(f, r.observer)
	case FormatMzXML:
		acc, err := mzxml.OpenAccessor(path, mzxml.Options{SkipBinaryData: opts.SkipBinaryData}, r.observer)
		if err != nil {
			return nil, err
		}
		r.accessor = acc
	case FormatMzData:
		acc, err := mzdata.OpenAccessor(path, mzdata.Options{SkipBinaryData: opts.SkipBinaryData}, r.observer)
		if err != nil {
			return nil, err
		}
		r.accessor = acc
	}

	return r, nil
}

// CloseFile releases the raw file handle and any parser state, in that
// order; repeated calls are a no-op.
func (r *Reader) CloseFile() error {
	var err error
	if r.accessor != nil {
		err = r.accessor.Close()
		r.accessor = nil
	}
	if r.file != nil {
		cerr := r.file.Close()
		if err == nil {
			err = cerr
		}
		r.file = nil
	}
	r.dtaReader = nil
	r.mgfReader = nil
	return err
}

// SetAbortFlag wires a cooperative cancellation flag into the underlying
// sequential parser, when one is in use.
func (r *Reader) SetAbortFlag(flag *bool) {
	switch {
	case r.dtaReader != nil:
		r.dtaReader.SetAbortFlag(flag)
	case r.mgfReader != nil:
		r.mgfReader.SetAbortFlag(flag)
	}
}

// ReadNextSpectrum advances and returns the next spectrum, or nil, false at
// EOF/error. For mzXML/mzData, the first call runs the full indexed
// accessor's cached sequence through in insertion order.
func (r *Reader) ReadNextSpectrum() (*core.Spectrum, bool, error) {
	switch r.format {
	case FormatDTA:
		if !r.dtaReader.Next() {
			return nil, false, r.dtaReader.Err()
		}
		r.streamed++
		return r.dtaReader.Spectrum(), true, nil
	case FormatMGF:
		if !r.mgfReader.Next() {
			return nil, false, r.mgfReader.Err()
		}
		r.streamed++
		return r.mgfReader.Spectrum(), true, nil
	case FormatMzXML, FormatMzData:
		if !r.xmlLoaded {
			n := r.accessor.CachedSpectrumCount()
			spectra := make([]*core.Spectrum, 0, n)
			for i := 0; i < n; i++ {
				s, err := r.accessor.GetSpectrumByIndex(i)
				if err != nil {
					r.observer.OnError(err)
					continue
				}
				spectra = append(spectra, s)
			}
			r.xmlCache = spectra
			r.xmlLoaded = true
		}
		if r.xmlCursor >= len(r.xmlCache) {
			return nil, false, nil
		}
		s := r.xmlCache[r.xmlCursor]
		r.xmlCursor++
		return s, true, nil
	default:
		return nil, false, core.NewError(core.FileNotOpen, "no file open")
	}
}

// GetSpectrumByScanNumber is a random-access fetch; only mzXML/mzData
// support it, per spec.md §4.6.
func (r *Reader) GetSpectrumByScanNumber(n int) (*core.Spectrum, error) {
	if r.accessor == nil {
		return nil, core.NewError(core.InvalidScanNumber, "random access is only supported for mzXML/mzData")
	}
	return r.accessor.GetSpectrumByScanNumber(n)
}

// GetSpectrumByIndex is a random-access fetch by ordinal position.
func (r *Reader) GetSpectrumByIndex(i int) (*core.Spectrum, error) {
	if r.accessor == nil {
		return nil, core.NewError(core.InvalidScanNumber, "random access is only supported for mzXML/mzData")
	}
	return r.accessor.GetSpectrumByIndex(i)
}

// GetScanNumberList returns the ordered sequence of indexed scan numbers.
func (r *Reader) GetScanNumberList() []int {
	if r.accessor == nil {
		return nil
	}
	return r.accessor.GetScanNumberList()
}

// CachedSpectrumCount returns the number of spectra the façade knows about:
// the index size for XML formats, or the number streamed so far otherwise.
func (r *Reader) CachedSpectrumCount() int {
	if r.accessor != nil {
		return r.accessor.CachedSpectrumCount()
	}
	return r.streamed
}

// Format reports which parser this Reader is driving.
func (r *Reader) Format() Format {
	return r.format
}
