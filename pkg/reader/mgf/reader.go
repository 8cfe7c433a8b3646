// Package mgf implements the sequential parser for Mascot Generic Format
// files: BEGIN IONS/END IONS blocks carrying PEPMASS/CHARGE/TITLE keys and a
// peak list.
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/msformats/specio/pkg/core"
)

var agilentScanRe = regexp.MustCompile(`###MSMS:\s*(\S+)`)

var mgfTitleScanRe = regexp.MustCompile(`\.(\d+)\.(\d+)\.(\d+)\.dta`)

// Reader provides sequential access to the spectra in an MGF file.
type Reader struct {
	scanner     *bufio.Scanner
	observer    core.Observer
	lineNum     int
	currentSpec *core.Spectrum
	err         error

	// savedScan tracks the last scan number seen (explicit via ###MSMS: or
	// synthesized), so a block lacking any scan-number hint can be assigned
	// savedScan+1, matching the original tool's synthesis policy.
	savedScan int
	abort     *bool
}

// NewReader creates an MGF reader.
func NewReader(r io.Reader, observer core.Observer) *Reader {
	return &Reader{
		scanner:  bufio.NewScanner(r),
		observer: core.ObserverOrNoop(observer),
	}
}

// SetAbortFlag wires a cooperative cancellation flag.
func (r *Reader) SetAbortFlag(flag *bool) {
	r.abort = flag
}

func (r *Reader) aborted() bool {
	return r.abort != nil && *r.abort
}

func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.aborted() {
		r.err = core.NewError(core.AbortRequested, "abort requested")
		return false
	}

	spec, err := r.readBlock()
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
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	return strings.TrimSpace(r.scanner.Text()), true
}

// readBlock scans forward to the next BEGIN IONS marker, then reads key
// lines and peak lines through END IONS.
func (r *Reader) readBlock() (*core.Spectrum, error) {
	if !r.skipToBegin() {
		if err := r.scanner.Err(); err != nil {
			return nil, core.Wrap(core.IoError, "scan failure", err)
		}
		return nil, io.EOF
	}

	details := &core.MSMSTextDetails{}
	var pepmass float64
	var peaks []core.Peak
	scanNumber := 0
	scanNumberEnd := 0
	scanCount := 0

	for {
		line, ok := r.nextLine()
		if !ok {
			return nil, core.NewError(core.MalformedXml, fmt.Sprintf("line %d: unterminated MGF block (missing END IONS)", r.lineNum))
		}
		if line == "" {
			continue
		}
		if line == "END IONS" {
			break
		}
		if m := agilentScanRe.FindStringSubmatch(line); m != nil {
			if s, e, c, ok := parseAgilentScanToken(m[1]); ok {
				scanNumber, scanNumberEnd, scanCount = s, e, c
			}
			continue
		}
		if key, val, isKV := splitKeyValue(line); isKV {
			switch strings.ToUpper(key) {
			case "PEPMASS":
				// Only the first whitespace-separated field is the m/z; a
				// trailing intensity value, if present, is ignored.
				fields := strings.Fields(val)
				if len(fields) > 0 {
					pepmass, _ = strconv.ParseFloat(fields[0], 64)
				}
			case "CHARGE":
				details.ParentIonCharges, details.ParentIonChargeCount = parseChargeTokens(val)
			case "TITLE":
				details.SpectrumTitle = val
			}
			continue
		}
		peak, err := parsePeakLine(line)
		if err != nil {
			r.observer.OnError(err)
			continue
		}
		peak.Index = len(peaks)
		peaks = append(peaks, peak)
	}

	if scanNumber == 0 {
		if s, e, c, ok := parseTitleScanNumbers(details.SpectrumTitle); ok {
			scanNumber, scanNumberEnd, scanCount = s, e, c
		}
	}
	if scanNumber == 0 {
		scanNumber = r.savedScan + 1
	}
	r.savedScan = scanNumber

	charge := 0
	if details.ParentIonChargeCount > 0 {
		charge = details.ParentIonCharges[0]
	}
	details.ParentIonMH = core.ParentIonMHFromMZ(pepmass, charge)

	spec := &core.Spectrum{
		ScanNumber:    scanNumber,
		ScanNumberEnd: scanNumberEnd,
		ScanCount:     scanCount,
		MSLevel:       2,
		ParentIonMZ:   pepmass,
		Peaks:         peaks,
		Details:       details,
	}

	spec.SourceFormat = "mgf"
	if err := spec.Validate(); err != nil {
		r.observer.OnError(err)
	}
	return spec, nil
}

// parseTitleScanNumbers applies the DTA title regex to an MGF TITLE value,
// used as the scan-number fallback only when no explicit hint (e.g. an
// Agilent ###MSMS: comment) was found elsewhere in the block.
func parseTitleScanNumbers(title string) (start, end, count int, ok bool) {
	m := mgfTitleScanRe.FindStringSubmatch(title)
	if m == nil {
		return 0, 0, 0, false
	}
	start, _ = strconv.Atoi(m[1])
	end, _ = strconv.Atoi(m[2])
	count = 1
	if end != start {
		count = end - start + 1
	}
	return start, end, count, true
}

// parseAgilentScanToken parses the "<n>[-<m>][/<more>]" token following
// "###MSMS:": n is scan-number-start, m (if present) is scan-number-end, and
// the number of "/"-separated tokens is the scan count.
func parseAgilentScanToken(token string) (start, end, count int, ok bool) {
	parts := strings.Split(token, "/")
	first := parts[0]

	if idx := strings.IndexByte(first, '-'); idx >= 0 {
		s, errS := strconv.Atoi(first[:idx])
		e, errE := strconv.Atoi(first[idx+1:])
		if errS != nil || errE != nil {
			return 0, 0, 0, false
		}
		start, end = s, e
	} else {
		n, err := strconv.Atoi(first)
		if err != nil {
			return 0, 0, 0, false
		}
		start, end = n, n
	}

	return start, end, len(parts), true
}

func (r *Reader) skipToBegin() bool {
	for {
		line, ok := r.nextLine()
		if !ok {
			return false
		}
		if strings.EqualFold(line, "BEGIN IONS") {
			return true
		}
	}
}

func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	key = line[:idx]
	if !isKnownKey(strings.ToUpper(key)) {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

func isKnownKey(key string) bool {
	switch key {
	case "PEPMASS", "CHARGE", "TITLE":
		return true
	default:
		return false
	}
}

// parseChargeTokens parses a CHARGE value such as "2+" or "2+ and 3+" into
// its individual charges: strip "+", split on whitespace, keep numeric
// tokens, up to a cap of 5.
func parseChargeTokens(val string) (charges [5]int, count int) {
	val = strings.ReplaceAll(val, "+", "")
	for _, field := range strings.Fields(val) {
		if count >= len(charges) {
			break
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		charges[count] = n
		count++
	}
	return charges, count
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
