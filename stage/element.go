// Package stage connects a sentence aggregator to a streaming synthesis
// session as a channel-based pipeline stage.
//
// Text elements are aggregated into sentences and sent for synthesis; audio
// and turn events coming back from the session are emitted on the same
// output channel.
package stage

import (
	"time"
)

// Control marks elements that carry a session event rather than content.
type Control int

// Control signals.
const (
	ControlNone Control = iota
	ControlTurnStarted
	ControlTurnStopped
)

// String returns the control name.
func (c Control) String() string {
	switch c {
	case ControlTurnStarted:
		return "turn_started"
	case ControlTurnStopped:
		return "turn_stopped"
	default:
		return "none"
	}
}

// Element is the unit of data flowing through a stage.
type Element struct {
	// Content (at most one is set).
	Text  *string
	Audio *AudioData

	// Metadata.
	Sequence  int64
	Timestamp time.Time
	Source    string
	Metadata  map[string]any

	// Control signals.
	Control      Control
	Interruption bool  // the listener barged in; drop pending speech
	EndOfStream  bool  // no more elements after this
	Error        error // error propagation
}

// AudioData carries synthesized audio.
type AudioData struct {
	Samples    []byte
	SampleRate int
	Channels   int
	Format     string
}

// NewTextElement creates a text element.
func NewTextElement(text string) Element {
	return Element{Text: &text, Timestamp: time.Now()}
}

// NewInterruptionElement creates an interruption signal.
func NewInterruptionElement() Element {
	return Element{Interruption: true, Timestamp: time.Now()}
}

// NewEndOfStreamElement creates an end-of-stream marker.
func NewEndOfStreamElement() Element {
	return Element{EndOfStream: true, Timestamp: time.Now()}
}

// NewErrorElement creates an error element.
func NewErrorElement(err error) Element {
	return Element{Error: err, Timestamp: time.Now()}
}
