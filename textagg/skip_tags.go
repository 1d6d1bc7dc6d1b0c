package textagg

// SkipTagsAggregator emits sentences but never splits inside a tagged span.
//
// Once a start marker is seen, text is buffered unconditionally until the
// matching end marker arrives; an unterminated span is buffered forever.
// Spans do not nest: while pair X is open only X.End closes it, and any other
// marker is ordinary text.
type SkipTagsAggregator struct {
	text     string
	tags     []TagPair
	state    scanState
	detector SentenceBoundaryDetector
}

// NewSkipTagsAggregator creates an aggregator for the given tag pairs.
// Pairs with an empty marker are dropped.
func NewSkipTagsAggregator(tags []TagPair, opts ...Option) *SkipTagsAggregator {
	o := buildOptions(opts)
	valid := make([]TagPair, 0, len(tags))
	for _, t := range tags {
		if t.Validate() == nil {
			valid = append(valid, t)
		}
	}
	return &SkipTagsAggregator{
		tags:     valid,
		state:    newScanState(),
		detector: o.detector,
	}
}

// Aggregate implements Aggregator.
func (a *SkipTagsAggregator) Aggregate(chunk string) (string, bool) {
	a.text += chunk
	a.state = scanTags(a.text, a.tags, a.state)
	if a.state.inside() {
		return "", false
	}

	eos, ok := a.findBoundary()
	if !ok {
		return "", false
	}
	unit := a.text[:eos]
	a.text = a.text[eos:]
	a.state = a.state.shift(eos)
	return unit, true
}

// findBoundary asks the detector for the first boundary that does not come
// from inside a closed span, resuming at the end of each span it would cut.
func (a *SkipTagsAggregator) findBoundary() (int, bool) {
	from := 0
	for from < len(a.text) {
		rel, ok := a.detector.FindBoundary(a.text[from:])
		if !ok || rel <= 0 {
			return 0, false
		}
		eos := from + rel
		sp, inSpan := a.state.spanContaining(a.text, eos)
		if !inSpan {
			return eos, true
		}
		from = max(sp.end, eos)
	}
	return 0, false
}

// Text implements Aggregator.
func (a *SkipTagsAggregator) Text() string { return a.text }

// HandleInterruption implements Aggregator.
func (a *SkipTagsAggregator) HandleInterruption() { a.Reset() }

// Reset implements Aggregator.
func (a *SkipTagsAggregator) Reset() {
	a.text = ""
	a.state = newScanState()
}
