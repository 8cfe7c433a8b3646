package xmlcommon

import "strings"

// IndexEntry is one (scan_number, byte_range) record captured by BuildIndex.
// It holds no separate spectrum ID; entries are keyed by scan number only.
type IndexEntry struct {
	ScanNumber int
	ByteStart  int64
	ByteEnd    int64 // inclusive, the closing '>' of the matching end tag
}

// SpectrumIndex is the insertion-ordered index described in spec §4.5: a
// growing vector of entries plus a scan_number -> vector-index map with
// first-write-wins semantics. The vector is preallocated with a capacity of
// 1000 and Add doubles its capacity whenever it is full.
type SpectrumIndex struct {
	entries []IndexEntry
	byScan  map[int]int
}

// NewSpectrumIndex builds an empty index.
func NewSpectrumIndex() *SpectrumIndex {
	return &SpectrumIndex{
		entries: make([]IndexEntry, 0, 1000),
		byScan:  make(map[int]int),
	}
}

// Add appends e and registers it in the scan-number map only if no entry
// for that scan number has been registered yet.
func (idx *SpectrumIndex) Add(e IndexEntry) {
	if n := len(idx.entries); n > 0 && n == cap(idx.entries) {
		grown := make([]IndexEntry, n, 2*n)
		copy(grown, idx.entries)
		idx.entries = grown
	}
	idx.entries = append(idx.entries, e)
	if _, exists := idx.byScan[e.ScanNumber]; !exists {
		idx.byScan[e.ScanNumber] = len(idx.entries) - 1
	}
}

// ByScanNumber looks up the first-indexed entry for a scan number.
func (idx *SpectrumIndex) ByScanNumber(n int) (IndexEntry, bool) {
	i, ok := idx.byScan[n]
	if !ok {
		return IndexEntry{}, false
	}
	return idx.entries[i], true
}

// ByOrdinal returns the i-th indexed entry in insertion order.
func (idx *SpectrumIndex) ByOrdinal(i int) (IndexEntry, bool) {
	if i < 0 || i >= len(idx.entries) {
		return IndexEntry{}, false
	}
	return idx.entries[i], true
}

// Count returns the number of indexed entries.
func (idx *SpectrumIndex) Count() int {
	return len(idx.entries)
}

// ScanNumbers returns the ordered sequence of scan numbers, one per indexed
// entry (duplicates included, matching the underlying vector).
func (idx *SpectrumIndex) ScanNumbers() []int {
	out := make([]int, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.ScanNumber
	}
	return out
}

// ScanNumberAttr extracts the integer used to key an index entry from a
// parsed attribute map.
type ScanNumberAttr func(attrs map[string]string) int

// BuildIndex performs the single forward scan described in spec §4.5: it
// locates every outermost occurrence of targetTag, recording its byte range
// and the scan number read from its start-tag attributes, and also captures
// the document's header (everything before the first match) and a
// synthetic footer built from whatever ancestor elements were open at that
// point — closing them in reverse order is enough to make a sliced byte
// range plus header plus footer into well-formed-enough XML for the lenient
// decoder, without needing to locate the real closing tags.
func BuildIndex(data []byte, targetTag string, caseInsensitiveTarget bool, scanNum ScanNumberAttr) (idx *SpectrumIndex, header, footer []byte) {
	idx = NewSpectrumIndex()

	var allStack []string
	var targetDepth int
	var curStart int64 = -1
	var curAttrs map[string]string
	haveHeader := false
	var ancestorsAtFirst []string

	matches := func(name string) bool {
		if name == targetTag {
			return true
		}
		return caseInsensitiveTarget && strings.EqualFold(name, targetTag)
	}

	ScanTags(data, func(evt TagEvent) bool {
		if !evt.IsEnd {
			isTarget := matches(evt.Name)
			if isTarget {
				if curStart < 0 {
					curStart = evt.StartOffset
					curAttrs = ParseAttrs(evt.AttrsRaw)
					if !haveHeader {
						header = append([]byte{}, data[:evt.StartOffset]...)
						ancestorsAtFirst = append([]string{}, allStack...)
						haveHeader = true
					}
				}
				targetDepth++
			}
			if !evt.SelfClosed {
				allStack = append(allStack, evt.Name)
			} else if isTarget {
				targetDepth--
				if targetDepth == 0 && curStart >= 0 {
					idx.Add(IndexEntry{ScanNumber: scanNum(curAttrs), ByteStart: curStart, ByteEnd: evt.EndOffset})
					curStart = -1
				}
			}
			return false
		}

		isTarget := matches(evt.Name)
		if isTarget {
			targetDepth--
			if targetDepth == 0 && curStart >= 0 {
				idx.Add(IndexEntry{ScanNumber: scanNum(curAttrs), ByteStart: curStart, ByteEnd: evt.EndOffset})
				curStart = -1
			}
		}
		if len(allStack) > 0 && allStack[len(allStack)-1] == evt.Name {
			allStack = allStack[:len(allStack)-1]
		}
		return false
	})

	footer = closingTags(ancestorsAtFirst)

	return idx, header, footer
}

func closingTags(ancestors []string) []byte {
	var b strings.Builder
	for i := len(ancestors) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(ancestors[i])
		b.WriteString(">")
	}
	return []byte(b.String())
}

// HeaderFooterForFirstTag captures only the header/footer pair for the
// first occurrence of targetTag, without building a full index. It is used
// when an embedded index trailer makes a full BuildIndex pass unnecessary.
func HeaderFooterForFirstTag(data []byte, targetTag string, caseInsensitiveTarget bool) (header, footer []byte) {
	var allStack []string
	matches := func(name string) bool {
		if name == targetTag {
			return true
		}
		return caseInsensitiveTarget && strings.EqualFold(name, targetTag)
	}

	ScanTags(data, func(evt TagEvent) bool {
		if !evt.IsEnd {
			if matches(evt.Name) {
				header = append([]byte{}, data[:evt.StartOffset]...)
				footer = closingTags(allStack)
				return true
			}
			if !evt.SelfClosed {
				allStack = append(allStack, evt.Name)
			}
			return false
		}
		if len(allStack) > 0 && allStack[len(allStack)-1] == evt.Name {
			allStack = allStack[:len(allStack)-1]
		}
		return false
	})

	return header, footer
}
