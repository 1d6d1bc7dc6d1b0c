// Package prometheus provides Prometheus metrics for streaming synthesis
// sessions: a tts.MetricsSink implementation, an event listener and an HTTP
// exporter.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "speechkit"

var (
	// ttfbSeconds is the time from a turn's first text to its first audio.
	ttfbSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_ttfb_seconds",
			Help:      "Time from first text of a turn to first audio byte, in seconds",
			Buckets:   []float64{.05, .1, .15, .2, .3, .5, .75, 1, 2, 5},
		},
		[]string{"provider", "voice"},
	)

	// charactersTotal counts characters sent for synthesis.
	charactersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_characters_total",
			Help:      "Total characters sent for synthesis",
		},
		[]string{"provider", "voice"},
	)

	// synthesisRequestsTotal counts successful text sends.
	synthesisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Total text segments sent for synthesis",
		},
		[]string{"provider", "voice"},
	)

	// turnsTotal counts turn lifecycle events.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_turns_total",
			Help:      "Total synthesis turns by lifecycle event",
		},
		[]string{"provider", "event"}, // event: started, stopped
	)

	// turnsActive is the number of open turns.
	turnsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tts_turns_active",
			Help:      "Number of currently open synthesis turns",
		},
		[]string{"provider"},
	)

	// turnDuration is the wall time of finished turns.
	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_turn_duration_seconds",
			Help:      "Duration of synthesis turns in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// audioBytesTotal counts audio received.
	audioBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_audio_bytes_total",
			Help:      "Total bytes of synthesized audio received",
		},
		[]string{"provider"},
	)

	// errorsTotal counts failures by kind.
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_errors_total",
			Help:      "Total synthesis errors by kind",
		},
		[]string{"provider", "kind"}, // kind: connection, remote
	)
)

// allMetrics lists every collector registered by NewExporter.
var allMetrics = []prometheus.Collector{
	ttfbSeconds,
	charactersTotal,
	synthesisRequestsTotal,
	turnsTotal,
	turnsActive,
	turnDuration,
	audioBytesTotal,
	errorsTotal,
}

// Error kinds.
const (
	kindConnection = "connection"
	kindRemote     = "remote"
)

// RecordTTFB observes a time-to-first-byte measurement.
func RecordTTFB(provider, voice string, seconds float64) {
	ttfbSeconds.WithLabelValues(provider, voice).Observe(seconds)
}

// RecordUsage counts one text segment of n characters.
func RecordUsage(provider, voice string, n int) {
	synthesisRequestsTotal.WithLabelValues(provider, voice).Inc()
	charactersTotal.WithLabelValues(provider, voice).Add(float64(n))
}

// RecordTurnStart counts a started turn.
func RecordTurnStart(provider string) {
	turnsTotal.WithLabelValues(provider, "started").Inc()
	turnsActive.WithLabelValues(provider).Inc()
}

// RecordTurnEnd counts a stopped turn. wasOpen reports whether a matching
// start was recorded; durationSeconds is only observed when it was.
func RecordTurnEnd(provider string, wasOpen bool, durationSeconds float64) {
	turnsTotal.WithLabelValues(provider, "stopped").Inc()
	if wasOpen {
		turnsActive.WithLabelValues(provider).Dec()
		turnDuration.WithLabelValues(provider).Observe(durationSeconds)
	}
}

// RecordAudio counts received audio bytes.
func RecordAudio(provider string, n int) {
	audioBytesTotal.WithLabelValues(provider).Add(float64(n))
}

// RecordError counts an error of the given kind.
func RecordError(provider, kind string) {
	errorsTotal.WithLabelValues(provider, kind).Inc()
}
