package textagg

import (
	"errors"
	"fmt"
	"strings"
)

// TagPair delimits a span inside which sentence boundaries are ignored.
type TagPair struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Validate reports whether both markers are non-empty.
func (p TagPair) Validate() error {
	if p.Start == "" || p.End == "" {
		return fmt.Errorf("tag pair %q/%q: %w", p.Start, p.End, ErrEmptyMarker)
	}
	return nil
}

// ErrEmptyMarker is returned when a TagPair has an empty start or end marker.
var ErrEmptyMarker = errors.New("tag marker cannot be empty")

const noTag = -1

// span is a closed tagged region [start, end) of the buffer, markers included.
type span struct {
	start int
	end   int
}

// scanState is the resumable position of the tag scanner over a buffer.
// open is the index of the TagPair currently open or noTag. cursor is the
// first byte not yet proven free of the marker being searched for.
type scanState struct {
	open   int
	openAt int
	cursor int
	closed []span
}

func newScanState() scanState {
	return scanState{open: noTag}
}

// inside reports whether a tag is open.
func (s scanState) inside() bool {
	return s.open != noTag
}

// scanTags advances st over buf. Outside a tag it looks for the nearest start
// marker of any pair; inside pair X it only looks for X.End. When nothing is
// found the cursor stops short of the buffer end by the marker length minus one
// so that a marker split across chunks is found on the next call.
func scanTags(buf string, tags []TagPair, st scanState) scanState {
	for {
		if !st.inside() {
			idx, which := nearestStart(buf[st.cursor:], tags)
			if idx < 0 {
				st.cursor = holdBack(buf, st.cursor, longestStart(tags))
				return st
			}
			st.open = which
			st.openAt = st.cursor + idx
			st.cursor = st.openAt + len(tags[which].Start)
			continue
		}

		end := tags[st.open].End
		idx := strings.Index(buf[st.cursor:], end)
		if idx < 0 {
			st.cursor = holdBack(buf, st.cursor, len(end))
			return st
		}
		st.cursor += idx + len(end)
		st.closed = append(st.closed, span{start: st.openAt, end: st.cursor})
		st.open = noTag
		st.openAt = 0
	}
}

// nearestStart returns the offset and pair index of the earliest start marker
// in s. Ties go to the pair configured first.
func nearestStart(s string, tags []TagPair) (int, int) {
	best, which := -1, noTag
	for i, t := range tags {
		idx := strings.Index(s, t.Start)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best, which = idx, i
		}
	}
	return best, which
}

func longestStart(tags []TagPair) int {
	n := 0
	for _, t := range tags {
		n = max(n, len(t.Start))
	}
	return n
}

// holdBack returns the furthest cursor that cannot skip over the beginning of
// a marker of length markerLen. The cursor never moves backwards.
func holdBack(buf string, cursor, markerLen int) int {
	if markerLen == 0 {
		return max(cursor, len(buf))
	}
	return max(cursor, len(buf)-(markerLen-1))
}

// shift rebases st after the first n bytes of the buffer were emitted.
// Callers only cut outside of closed spans.
func (s scanState) shift(n int) scanState {
	s.cursor = max(0, s.cursor-n)
	if s.inside() {
		s.openAt -= n
	}
	kept := s.closed[:0:0]
	for _, sp := range s.closed {
		if sp.end <= n {
			continue
		}
		kept = append(kept, span{start: sp.start - n, end: sp.end - n})
	}
	s.closed = kept
	return s
}

// spanContaining returns the closed span that a boundary at offset would cut,
// if any. A boundary landing on a span's end, or separated from it only by
// closers, was produced by a terminator inside the span.
func (s scanState) spanContaining(text string, offset int) (span, bool) {
	for _, sp := range s.closed {
		if offset <= sp.start {
			continue
		}
		if offset <= sp.end || skipClosers(text, sp.end) >= offset {
			return sp, true
		}
	}
	return span{}, false
}
