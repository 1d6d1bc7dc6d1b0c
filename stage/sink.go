package stage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AltairaLabs/speechkit/tts"
)

const defaultSinkBuffer = 64

// ErrConnection wraps connection failures reported by the session.
var ErrConnection = errors.New("tts connection error")

// ChannelSink is a tts.EventSink that turns session events into Elements.
//
// Sends block while the buffer is full, until Close is called. Events
// arriving after Close are dropped.
type ChannelSink struct {
	source string
	format string
	ch     chan Element
	done   chan struct{}
	once   sync.Once
	seq    atomic.Int64
}

var _ tts.EventSink = (*ChannelSink)(nil)

// NewChannelSink creates a sink. format labels audio elements; buffer sizes
// the element channel and defaults to 64.
func NewChannelSink(format string, buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	return &ChannelSink{
		source: "tts",
		format: format,
		ch:     make(chan Element, buffer),
		done:   make(chan struct{}),
	}
}

// Elements returns the event stream. It is never closed.
func (s *ChannelSink) Elements() <-chan Element {
	return s.ch
}

// Close stops delivery and releases blocked senders. Safe to call multiple
// times.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *ChannelSink) send(e Element) {
	select {
	case <-s.done:
		return
	default:
	}
	e.Sequence = s.seq.Add(1)
	e.Timestamp = time.Now()
	e.Source = s.source
	select {
	case s.ch <- e:
	case <-s.done:
	}
}

// TurnStarted implements tts.EventSink.
func (s *ChannelSink) TurnStarted() {
	s.send(Element{Control: ControlTurnStarted})
}

// TurnStopped implements tts.EventSink.
func (s *ChannelSink) TurnStopped() {
	s.send(Element{Control: ControlTurnStopped})
}

// AudioOutput implements tts.EventSink.
func (s *ChannelSink) AudioOutput(audio []byte, sampleRate, channels int) {
	s.send(Element{Audio: &AudioData{
		Samples:    audio,
		SampleRate: sampleRate,
		Channels:   channels,
		Format:     s.format,
	}})
}

// ConnectionError implements tts.EventSink.
func (s *ChannelSink) ConnectionError(detail string) {
	s.send(Element{Error: fmt.Errorf("%w: %s", ErrConnection, detail)})
}

// ReportableError implements tts.EventSink.
func (s *ChannelSink) ReportableError(err error) {
	s.send(Element{Error: err})
}
