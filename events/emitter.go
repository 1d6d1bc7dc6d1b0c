package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/speechkit/tts"
)

// Emitter turns session callbacks into bus events that share a session ID
// and, inside a turn, a generated turn ID. It implements tts.EventSink.
type Emitter struct {
	bus       *EventBus
	sessionID string
	voice     string
	now       func() time.Time

	mu         sync.Mutex
	turnID     string
	turnStart  time.Time
	audioBytes int
	chunks     int
}

var _ tts.EventSink = (*Emitter)(nil)

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, sessionID, voice string) *Emitter {
	return &Emitter{
		bus:       bus,
		sessionID: sessionID,
		voice:     voice,
		now:       time.Now,
	}
}

// TurnID returns the current turn ID, or "" between turns.
func (e *Emitter) TurnID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turnID
}

func (e *Emitter) emit(eventType EventType, turnID string, data EventData) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: e.now(),
		SessionID: e.sessionID,
		TurnID:    turnID,
		Data:      data,
	})
}

// TurnStarted opens a new turn and emits tts.turn.started.
func (e *Emitter) TurnStarted() {
	e.mu.Lock()
	e.turnID = uuid.NewString()
	e.turnStart = e.now()
	e.audioBytes, e.chunks = 0, 0
	id := e.turnID
	e.mu.Unlock()

	e.emit(EventTurnStarted, id, TurnStartedData{Voice: e.voice})
}

// TurnStopped closes the current turn and emits tts.turn.stopped.
func (e *Emitter) TurnStopped() {
	e.mu.Lock()
	id := e.turnID
	data := TurnStoppedData{AudioBytes: e.audioBytes, Chunks: e.chunks}
	if !e.turnStart.IsZero() {
		data.Duration = e.now().Sub(e.turnStart)
	}
	e.turnID, e.turnStart = "", time.Time{}
	e.mu.Unlock()

	e.emit(EventTurnStopped, id, data)
}

// AudioOutput emits audio.output for one chunk.
func (e *Emitter) AudioOutput(audio []byte, sampleRate, channels int) {
	e.mu.Lock()
	id := e.turnID
	seq := e.chunks
	e.chunks++
	e.audioBytes += len(audio)
	e.mu.Unlock()

	e.emit(EventAudioOutput, id, AudioOutputData{
		Chunk:      audio,
		SampleRate: sampleRate,
		Channels:   channels,
		Sequence:   seq,
	})
}

// ConnectionError emits tts.connection.error.
func (e *Emitter) ConnectionError(detail string) {
	e.emit(EventConnectionError, e.TurnID(), ConnectionErrorData{Detail: detail})
}

// ReportableError emits tts.error.
func (e *Emitter) ReportableError(err error) {
	e.emit(EventError, e.TurnID(), ErrorData{Error: err})
}
