package prometheus

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/AltairaLabs/speechkit/tts"
)

// SessionMetrics implements tts.MetricsSink on top of the package collectors.
type SessionMetrics struct {
	provider string
	voice    string
	now      func() time.Time

	mu        sync.Mutex
	ttfbStart time.Time
}

var _ tts.MetricsSink = (*SessionMetrics)(nil)

// NewSessionMetrics creates a meter labeled with provider and voice.
func NewSessionMetrics(provider, voice string) *SessionMetrics {
	return &SessionMetrics{provider: provider, voice: voice, now: time.Now}
}

// StartTTFB starts the time-to-first-byte timer.
func (m *SessionMetrics) StartTTFB() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttfbStart = m.now()
}

// StopTTFB records the elapsed time once per started timer.
func (m *SessionMetrics) StopTTFB() {
	m.mu.Lock()
	start := m.ttfbStart
	m.ttfbStart = time.Time{}
	m.mu.Unlock()

	if start.IsZero() {
		return
	}
	RecordTTFB(m.provider, m.voice, m.now().Sub(start).Seconds())
}

// RecordUsage counts text characters.
func (m *SessionMetrics) RecordUsage(text string) {
	RecordUsage(m.provider, m.voice, utf8.RuneCountInString(text))
}

// StopAll discards a running TTFB timer without recording it.
func (m *SessionMetrics) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttfbStart = time.Time{}
}
