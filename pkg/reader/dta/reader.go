// Package dta implements the sequential parser for concatenated DTA
// ("_dta.txt") files: records separated by "="-prefixed title lines, each
// followed by a parent-ion line and a list of peak lines.
package dta

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/msformats/specio/pkg/core"
)

var titleRe = regexp.MustCompile(`\.(\d+)\.(\d+)\.(\d+)\.dta`)

// Options configures DTA parsing behavior that the format alone doesn't
// determine.
type Options struct {
	// CombineIdenticalSpectra enables the charge-2/charge-3 fusion policy
	// described in SPEC_FULL.md §4.4.
	CombineIdenticalSpectra bool
}

// Reader provides sequential access to the spectra in a concatenated DTA
// file, following the teacher's bufio.Scanner-driven Next/Spectrum/Err
// pull-iterator shape.
type Reader struct {
	scanner     *bufio.Scanner
	opts        Options
	observer    core.Observer
	lineNum     int
	bytesTotal  int64
	bytesRead   int64
	currentSpec *core.Spectrum
	err         error

	// headerLookahead is the single-element buffer the combine policy uses
	// to save a peeked title line that turned out not to match; it must
	// never hold more than one line.
	headerLookahead string
	haveLookahead   bool

	savedScan int
	abort     *bool
}

// NewReader creates a DTA reader. totalBytes is used only for progress
// reporting and may be zero if unknown.
func NewReader(r io.Reader, totalBytes int64, opts Options, observer core.Observer) *Reader {
	return &Reader{
		scanner:    bufio.NewScanner(r),
		opts:       opts,
		observer:   core.ObserverOrNoop(observer),
		bytesTotal: totalBytes,
	}
}

// SetAbortFlag wires a cooperative cancellation flag; Next checks it at the
// top of its loop.
func (r *Reader) SetAbortFlag(flag *bool) {
	r.abort = flag
}

func (r *Reader) aborted() bool {
	return r.abort != nil && *r.abort
}

// Next advances to the next spectrum. Returns false at EOF, on error, or
// when abort was requested.
func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.aborted() {
		r.err = core.NewError(core.AbortRequested, "abort requested")
		return false
	}

	spec, err := r.readRecord()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

func (r *Reader) Spectrum() *core.Spectrum { return r.currentSpec }
func (r *Reader) Err() error               { return r.err }

func (r *Reader) nextLine() (string, bool) {
	if r.haveLookahead {
		line := r.headerLookahead
		r.haveLookahead = false
		return line, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	r.bytesRead += int64(len(r.scanner.Bytes())) + 1
	if r.bytesTotal > 0 && r.lineNum%250 == 0 {
		r.observer.OnProgress(float64(r.bytesRead) / float64(r.bytesTotal))
	}
	return r.scanner.Text(), true
}

func (r *Reader) pushBackLookahead(line string) {
	r.headerLookahead = line
	r.haveLookahead = true
}

// readRecord scans forward to the next "="-title line, reads the parent-ion
// line, then peak lines, and applies the combine-identical-spectra fusion
// policy before returning.
func (r *Reader) readRecord() (*core.Spectrum, error) {
	title, ok := r.findNextTitle()
	if !ok {
		if err := r.scanner.Err(); err != nil {
			return nil, core.Wrap(core.IoError, "scan failure", err)
		}
		return nil, io.EOF
	}

	spec, charge, err := r.parseRecordBody(title)
	if err != nil {
		return nil, err
	}

	if r.opts.CombineIdenticalSpectra && charge == 2 {
		r.tryFuse(spec, title)
	}

	spec.SourceFormat = "dta"
	if err := spec.Validate(); err != nil {
		r.observer.OnError(err)
	}
	return spec, nil
}

func (r *Reader) findNextTitle() (string, bool) {
	for {
		line, ok := r.nextLine()
		if !ok {
			return "", false
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "=") {
			return trimmed, true
		}
	}
}

// parseRecordBody reads the parent-ion line and peak lines following a
// title line, returning the built spectrum and its parsed charge.
func (r *Reader) parseRecordBody(title string) (*core.Spectrum, int, error) {
	scanStart, scanEnd, scanCount := parseScanNumbers(title)

	var parentLine string
	for {
		line, ok := r.nextLine()
		if !ok {
			return nil, 0, io.EOF
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		parentLine = trimmed
		break
	}

	fields := strings.Fields(parentLine)
	if len(fields) < 2 {
		return nil, 0, core.NewError(core.MalformedXml, fmt.Sprintf("line %d: malformed parent-ion line %q", r.lineNum, parentLine))
	}
	mh, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, 0, core.Wrap(core.MalformedXml, fmt.Sprintf("line %d: invalid parent MH", r.lineNum), err)
	}
	charge, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, 0, core.Wrap(core.MalformedXml, fmt.Sprintf("line %d: invalid charge", r.lineNum), err)
	}

	var peaks []core.Peak
	for {
		line, ok := r.nextLine()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "=") {
			r.pushBackLookahead(trimmed)
			break
		}
		peak, err := parsePeakLine(trimmed)
		if err != nil {
			r.observer.OnError(err)
			continue
		}
		peak.Index = len(peaks)
		peaks = append(peaks, peak)
	}

	details := &core.MSMSTextDetails{
		ParentIonLineText: parentLine,
		ParentIonMH:       mh,
		SpectrumTitle:     title,
	}
	details.ParentIonChargeCount = 1
	details.ParentIonCharges[0] = charge

	spec := &core.Spectrum{
		ScanNumber:    scanStart,
		ScanNumberEnd: scanEnd,
		ScanCount:     scanCount,
		MSLevel:       2,
		Peaks:         peaks,
		Details:       details,
		ParentIonMZ:   core.ParentIonMZFromMH(mh, charge),
	}

	return spec, charge, nil
}

// tryFuse implements the DTA charge-2/charge-3 combine policy. It peeks the
// next title; if it names the same record with a trailing charge of 3, the
// duplicate record's peaks are read and discarded — unconditionally, even
// when they differ from the first record's peaks, matching the original
// tool's known-quirk behavior (SPEC_FULL.md §9, item 1).
func (r *Reader) tryFuse(spec *core.Spectrum, title string) {
	peekTitle, ok := r.findNextTitle()
	if !ok {
		return
	}

	if !sameRecordDifferentCharge(title, peekTitle, 3) {
		r.pushBackLookahead(peekTitle)
		return
	}

	// Consume and discard the duplicate record's body.
	if _, _, err := r.parseRecordBody(peekTitle); err != nil {
		r.observer.OnError(core.Wrap(core.MalformedXml, "fusion: failed to consume duplicate record", err))
	}

	details := spec.Details.(*core.MSMSTextDetails)
	details.ParentIonChargeCount = 2
	details.ParentIonCharges[1] = 3
	details.ChargeIs2And3Plus = true
	r.observer.OnError(fmt.Errorf("dta fusion: merged %q with %q, discarding the second record's peaks regardless of whether they match", title, peekTitle))
}

// sameRecordDifferentCharge reports whether a and b are the same DTA title
// except for their trailing ".<charge>.dta" segment, with b's charge equal
// to wantCharge.
func sameRecordDifferentCharge(a, b string, wantCharge int) bool {
	aBase, aCharge, aOK := stripChargeSuffix(a)
	bBase, bCharge, bOK := stripChargeSuffix(b)
	if !aOK || !bOK {
		return false
	}
	return aBase == bBase && bCharge == wantCharge && aCharge != bCharge
}

func stripChargeSuffix(title string) (base string, charge int, ok bool) {
	m := titleRe.FindStringSubmatchIndex(title)
	if m == nil {
		return "", 0, false
	}
	chargeStr := title[m[6]:m[7]]
	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return "", 0, false
	}
	return title[:m[6]], charge, true
}

func parseScanNumbers(title string) (start, end, count int) {
	m := titleRe.FindStringSubmatch(title)
	if m == nil {
		return 0, 0, 0
	}
	start, _ = strconv.Atoi(m[1])
	end, _ = strconv.Atoi(m[2])
	count = 1
	if end != start {
		count = end - start + 1
	}
	return start, end, count
}

func parsePeakLine(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, core.NewError(core.MalformedXml, fmt.Sprintf("malformed peak line %q", line))
	}
	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, core.Wrap(core.MalformedXml, "invalid m/z", err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, core.Wrap(core.MalformedXml, "invalid intensity", err)
	}
	return core.Peak{MZ: mz, Intensity: intensity}, nil
}
