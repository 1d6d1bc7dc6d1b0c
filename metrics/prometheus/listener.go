package prometheus

import (
	"sync"

	"github.com/AltairaLabs/speechkit/events"
)

// MetricsListener records session events as Prometheus metrics.
// Register Handle with an EventBus using SubscribeAll.
type MetricsListener struct {
	provider string

	mu   sync.Mutex
	open map[string]struct{}
}

// NewMetricsListener creates a listener that labels metrics with provider.
func NewMetricsListener(provider string) *MetricsListener {
	return &MetricsListener{provider: provider, open: make(map[string]struct{})}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventTurnStarted:
		l.mu.Lock()
		l.open[event.TurnID] = struct{}{}
		l.mu.Unlock()
		RecordTurnStart(l.provider)
	case events.EventTurnStopped:
		l.handleTurnStopped(event)
	case events.EventAudioOutput:
		if data, ok := event.Data.(events.AudioOutputData); ok {
			RecordAudio(l.provider, len(data.Chunk))
		}
	case events.EventConnectionError:
		RecordError(l.provider, kindConnection)
	case events.EventError:
		RecordError(l.provider, kindRemote)
	default:
	}
}

func (l *MetricsListener) handleTurnStopped(event *events.Event) {
	l.mu.Lock()
	_, wasOpen := l.open[event.TurnID]
	delete(l.open, event.TurnID)
	l.mu.Unlock()

	var seconds float64
	if data, ok := event.Data.(events.TurnStoppedData); ok {
		seconds = data.Duration.Seconds()
	}
	RecordTurnEnd(l.provider, wasOpen && event.TurnID != "", seconds)
}
