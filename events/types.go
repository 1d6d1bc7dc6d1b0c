package events

import "time"

// EventType identifies the type of event emitted by a synthesis session.
type EventType string

const (
	// EventTurnStarted marks the first text of a new synthesis turn.
	EventTurnStarted EventType = "tts.turn.started"
	// EventTurnStopped marks the end of a turn (error, interruption or send failure).
	EventTurnStopped EventType = "tts.turn.stopped"
	// EventAudioOutput carries one chunk of synthesized audio.
	EventAudioOutput EventType = "audio.output"
	// EventConnectionError marks a failed or dropped connection.
	EventConnectionError EventType = "tts.connection.error"
	// EventError carries an error reported by the speech service.
	EventError EventType = "tts.error"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a session event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	// TurnID is empty for events outside a turn.
	TurnID string
	Data   EventData
}

type baseEventData struct{}

func (baseEventData) eventData() {}

// TurnStartedData contains data for turn start events.
type TurnStartedData struct {
	baseEventData
	Voice string
}

// TurnStoppedData summarizes a finished turn.
type TurnStoppedData struct {
	baseEventData
	Duration   time.Duration
	AudioBytes int
	Chunks     int
}

// AudioOutputData contains one audio chunk.
type AudioOutputData struct {
	baseEventData
	Chunk      []byte
	SampleRate int
	Channels   int
	// Sequence counts chunks within the turn, starting at 0.
	Sequence int
}

// ConnectionErrorData describes a connection failure.
type ConnectionErrorData struct {
	baseEventData
	Detail string
}

// ErrorData carries a reportable error.
type ErrorData struct {
	baseEventData
	Error error
}
