package tts

import "context"

// Message is one inbound frame from the speech service.
type Message struct {
	// Binary marks raw audio frames; text frames carry JSON.
	Binary bool
	Data   []byte
}

// Transport opens connections to the speech service.
type Transport interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

// Connection is a single bidirectional message stream.
type Connection interface {
	// SendJSON encodes v and writes it as a text frame.
	SendJSON(v any) error

	// Receive blocks for the next frame. It returns io.EOF once the peer has
	// closed the stream normally.
	Receive(ctx context.Context) (Message, error)

	// Close releases the connection.
	Close() error

	// IsOpen reports whether the connection can still carry messages.
	IsOpen() bool
}

// EventSink receives session events for downstream delivery. Methods are
// called from both the caller's goroutine and the receive loop, so
// implementations must be safe for concurrent use.
type EventSink interface {
	TurnStarted()
	TurnStopped()
	AudioOutput(audio []byte, sampleRate, channels int)
	ConnectionError(detail string)
	ReportableError(err error)
}

// MetricsSink meters latency and usage.
type MetricsSink interface {
	// StartTTFB starts the time-to-first-byte timer for a new turn.
	StartTTFB()
	// StopTTFB stops the timer; calls without a running timer are ignored.
	StopTTFB()
	// RecordUsage records text sent for synthesis.
	RecordUsage(text string)
	// StopAll stops every in-flight measurement.
	StopAll()
}

type noopEventSink struct{}

func (noopEventSink) TurnStarted()                 {}
func (noopEventSink) TurnStopped()                 {}
func (noopEventSink) AudioOutput([]byte, int, int) {}
func (noopEventSink) ConnectionError(string)       {}
func (noopEventSink) ReportableError(error)        {}

type noopMetrics struct{}

func (noopMetrics) StartTTFB()         {}
func (noopMetrics) StopTTFB()          {}
func (noopMetrics) RecordUsage(string) {}
func (noopMetrics) StopAll()           {}

// MultiEventSink fans every event out to sinks in order. Nil sinks are
// skipped.
func MultiEventSink(sinks ...EventSink) EventSink {
	out := make(multiEventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multiEventSink []EventSink

func (m multiEventSink) TurnStarted() {
	for _, s := range m {
		s.TurnStarted()
	}
}

func (m multiEventSink) TurnStopped() {
	for _, s := range m {
		s.TurnStopped()
	}
}

func (m multiEventSink) AudioOutput(audio []byte, sampleRate, channels int) {
	for _, s := range m {
		s.AudioOutput(audio, sampleRate, channels)
	}
}

func (m multiEventSink) ConnectionError(detail string) {
	for _, s := range m {
		s.ConnectionError(detail)
	}
}

func (m multiEventSink) ReportableError(err error) {
	for _, s := range m {
		s.ReportableError(err)
	}
}
