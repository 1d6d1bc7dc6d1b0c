package textagg

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceBoundaryDetector locates the end of the first complete sentence.
type SentenceBoundaryDetector interface {
	// FindBoundary returns the byte offset just past the first sentence
	// terminator in text (closing quotes and brackets included), or false.
	FindBoundary(text string) (int, bool)
}

// BoundaryDetectorFunc adapts a function to SentenceBoundaryDetector.
type BoundaryDetectorFunc func(text string) (int, bool)

// FindBoundary implements SentenceBoundaryDetector.
func (f BoundaryDetectorFunc) FindBoundary(text string) (int, bool) {
	return f(text)
}

// DefaultBoundaryDetector recognizes Latin, CJK and Devanagari terminators.
var DefaultBoundaryDetector SentenceBoundaryDetector = &PunctuationDetector{
	Abbreviations: defaultAbbreviations,
}

// defaultAbbreviations are lower-cased words (without the final period) that
// do not end a sentence.
var defaultAbbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "inc": {}, "ltd": {}, "co": {}, "no": {},
	"mt": {}, "approx": {}, "dept": {}, "est": {}, "fig": {}, "gen": {}, "gov": {},
}

// PunctuationDetector is a rule-based SentenceBoundaryDetector.
//
// A Latin terminator (. ! ? ;) ends a sentence when it is followed by
// whitespace or sits at the very end of the text. A period does not end a
// sentence after a digit at the end of the text (the number may continue),
// directly before a non-space character (3.14, example.com), after a known
// abbreviation, or after a single-letter initial. Full-width and Devanagari
// terminators end a sentence immediately.
type PunctuationDetector struct {
	Abbreviations map[string]struct{}
}

// FindBoundary implements SentenceBoundaryDetector.
func (d *PunctuationDetector) FindBoundary(text string) (int, bool) {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case isWideTerminator(r):
			end := skipClosers(text, skipTerminators(text, i))
			return end, true
		case isLatinTerminator(r):
			runEnd := skipTerminators(text, i)
			end := skipClosers(text, runEnd)
			if d.endsSentence(text, i, runEnd, end) {
				return end, true
			}
			i = runEnd
			continue
		}
		i += size
	}
	return 0, false
}

// endsSentence decides whether the terminator run text[at:runEnd], followed by
// closers up to end, finishes a sentence.
func (d *PunctuationDetector) endsSentence(text string, at, runEnd, end int) bool {
	atEnd := end == len(text)
	if !atEnd {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(next) {
			return false
		}
	}

	// Only a lone period is ambiguous.
	if runEnd-at != 1 || text[at] != '.' {
		return true
	}

	prev, _ := utf8.DecodeLastRuneInString(text[:at])
	if atEnd && unicode.IsDigit(prev) {
		return false
	}

	word := lastWord(text[:at])
	if word == "" {
		return true
	}
	if _, ok := d.Abbreviations[strings.ToLower(word)]; ok {
		return false
	}
	return !isInitial(word)
}

// lastWord returns the run of non-space characters before s ends.
func lastWord(s string) string {
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	return strings.TrimLeft(s[idx+1:], "\"'([{")
}

// isInitial matches single upper-case letters and dotted initials like "U.S".
func isInitial(word string) bool {
	parts := strings.Split(word, ".")
	for _, p := range parts {
		if utf8.RuneCountInString(p) != 1 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(p)
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func skipTerminators(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLatinTerminator(r) && !isWideTerminator(r) {
			break
		}
		i += size
	}
	return i
}

func skipClosers(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isCloser(r) {
			break
		}
		i += size
	}
	return i
}

func isLatinTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}

func isWideTerminator(r rune) bool {
	switch r {
	case '…', '。', '？', '！', '；', '।', '॥':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '」', '』', '）':
		return true
	}
	return false
}
