package textagg

// Aggregator buffers text fragments and releases complete units.
type Aggregator interface {
	// Aggregate appends chunk and returns the next complete unit, if any.
	// The returned unit is removed from the buffer.
	Aggregate(chunk string) (string, bool)

	// Text returns the buffered text that has not been emitted yet.
	Text() string

	// HandleInterruption discards the buffer after an interruption.
	HandleInterruption()

	// Reset discards the buffer.
	Reset()
}

// Option configures an aggregator.
type Option func(*options)

type options struct {
	detector SentenceBoundaryDetector
}

// WithBoundaryDetector replaces DefaultBoundaryDetector.
func WithBoundaryDetector(d SentenceBoundaryDetector) Option {
	return func(o *options) {
		if d != nil {
			o.detector = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{detector: DefaultBoundaryDetector}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SentenceAggregator emits text up to each sentence boundary.
type SentenceAggregator struct {
	text     string
	detector SentenceBoundaryDetector
}

// NewSentenceAggregator creates a SentenceAggregator.
func NewSentenceAggregator(opts ...Option) *SentenceAggregator {
	o := buildOptions(opts)
	return &SentenceAggregator{detector: o.detector}
}

// Aggregate implements Aggregator.
func (a *SentenceAggregator) Aggregate(chunk string) (string, bool) {
	a.text += chunk
	eos, ok := a.detector.FindBoundary(a.text)
	if !ok || eos <= 0 {
		return "", false
	}
	unit := a.text[:eos]
	a.text = a.text[eos:]
	return unit, true
}

// Text implements Aggregator.
func (a *SentenceAggregator) Text() string { return a.text }

// HandleInterruption implements Aggregator.
func (a *SentenceAggregator) HandleInterruption() { a.text = "" }

// Reset implements Aggregator.
func (a *SentenceAggregator) Reset() { a.text = "" }

var (
	_ Aggregator = (*SentenceAggregator)(nil)
	_ Aggregator = (*SkipTagsAggregator)(nil)
)
