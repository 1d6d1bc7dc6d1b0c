package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/telemetry"
)

// SpanSynthesize is the span name recorded for every Synthesize call.
const SpanSynthesize = "tts.synthesize"

// audioChannels is fixed: the service only produces mono audio.
const audioChannels = 1

// State is the connection state of a StreamingSession.
type State int

// Session states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTurnActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateTurnActive:
		return "turn_active"
	default:
		return "unknown"
	}
}

// SessionOption configures a StreamingSession.
type SessionOption func(*StreamingSession)

// WithTransport replaces the default WebSocket transport.
func WithTransport(t Transport) SessionOption {
	return func(s *StreamingSession) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithEventSink sets where session events are delivered.
func WithEventSink(sink EventSink) SessionOption {
	return func(s *StreamingSession) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithMetrics sets the latency and usage meter.
func WithMetrics(m MetricsSink) SessionOption {
	return func(s *StreamingSession) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracerProvider sets the provider for Synthesize spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) SessionOption {
	return func(s *StreamingSession) {
		s.tracer = telemetry.Tracer(tp)
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *StreamingSession) {
		if id != "" {
			s.id = id
		}
	}
}

// StreamingSession is a long-lived synthesis connection for one voice.
//
// Start, Stop, Cancel, Synthesize and Flush are expected to be called from a
// single goroutine. A background receive loop delivers audio and errors to the
// EventSink. Send failures tear the connection down and redial; there is no
// backoff and no attempt limit.
type StreamingSession struct {
	id        string
	cfg       SessionConfig
	transport Transport
	events    EventSink
	metrics   MetricsSink
	tracer    trace.Tracer

	mu         sync.Mutex
	conn       Connection
	connecting bool
	started    bool
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// NewStreamingSession validates cfg and creates a disconnected session.
//
//nolint:gocritic // hugeParam: config is copied into the session
func NewStreamingSession(cfg SessionConfig, opts ...SessionOption) (*StreamingSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, skerrors.New(skerrors.ComponentTTS, "NewStreamingSession", err)
	}

	s := &StreamingSession{
		id:        uuid.NewString(),
		cfg:       cfg.withDefaults(),
		transport: &WebSocketTransport{},
		events:    noopEventSink{},
		metrics:   noopMetrics{},
		tracer:    telemetry.Tracer(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *StreamingSession) ID() string {
	return s.id
}

// Config returns the resolved session configuration.
func (s *StreamingSession) Config() SessionConfig {
	return s.cfg
}

// State reports the current connection state.
func (s *StreamingSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.connecting:
		return StateConnecting
	case s.conn == nil || !s.conn.IsOpen():
		return StateDisconnected
	case s.started:
		return StateTurnActive
	default:
		return StateConnected
	}
}

// Start connects to the service. Connection failures are reported through
// the EventSink; only a done ctx produces an error.
func (s *StreamingSession) Start(ctx context.Context) error {
	s.connect(ctx)
	return ctx.Err()
}

// Stop ends the session and closes the connection.
func (s *StreamingSession) Stop(ctx context.Context) error {
	s.disconnect(ctx)
	return nil
}

// Cancel abandons the session immediately. It tears down exactly like Stop.
func (s *StreamingSession) Cancel(ctx context.Context) error {
	s.disconnect(ctx)
	return nil
}

// Synthesize appends text to the service buffer and asks for it to be
// rendered. It connects first when needed and opens a turn if none is
// active. A failed send closes the turn and redials; that failure is
// logged and reported through the EventSink, not returned.
func (s *StreamingSession) Synthesize(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyText
	}

	ctx = s.logContext(ctx)
	ctx, span := s.tracer.Start(ctx, SpanSynthesize, trace.WithAttributes(
		attribute.String("tts.provider", ProviderName),
		attribute.String("tts.voice", s.cfg.Voice),
		attribute.String("tts.model", s.cfg.Model),
		attribute.Int("tts.characters", utf8.RuneCountInString(text)),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if s.needsConnect() {
		span.AddEvent("connect")
		s.reconnect(ctx)
	}

	if s.beginTurn() {
		s.metrics.StartTTFB()
		s.events.TurnStarted()
		span.AddEvent("turn_started")
	}

	if err := s.sendText(text); err != nil {
		logger.SessionError(ctx, ProviderName, "synthesize", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")

		s.turnStopped()
		s.disconnect(ctx)
		s.connect(ctx)
		return nil
	}

	s.metrics.RecordUsage(text)
	return nil
}

// Flush asks the service to render everything buffered so far. It does
// nothing when the session is not connected.
func (s *StreamingSession) Flush(ctx context.Context) error {
	conn := s.currentConn()
	if conn == nil || !conn.IsOpen() {
		return nil
	}
	if err := conn.SendJSON(flush); err != nil {
		logger.WarnContext(s.logContext(ctx), "TTS flush failed", "error", err)
		return skerrors.New(skerrors.ComponentTTS, "flush", err)
	}
	return nil
}

// Interrupt marks the current turn as finished so that the next Synthesize
// announces a new one.
func (s *StreamingSession) Interrupt() {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

func (s *StreamingSession) logContext(ctx context.Context) context.Context {
	return logger.WithLoggingContext(ctx, &logger.LoggingFields{
		SessionID: s.id,
		Provider:  ProviderName,
		Model:     s.cfg.Model,
		Voice:     s.cfg.Voice,
	})
}

func (s *StreamingSession) currentConn() Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// needsConnect reports whether the connection is missing, closed, or has
// lost its receive loop after a remote error.
func (s *StreamingSession) needsConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.conn.IsOpen() {
		return true
	}
	return !loopRunning(s.loopDone)
}

func loopRunning(done chan struct{}) bool {
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// reconnect drops a stale connection, if any, and dials again.
func (s *StreamingSession) reconnect(ctx context.Context) {
	if s.currentConn() != nil {
		s.disconnect(ctx)
	}
	s.connect(ctx)
}

// beginTurn flips started to true and reports whether it was false.
func (s *StreamingSession) beginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	return true
}

// turnStopped emits TurnStopped and resets started.
func (s *StreamingSession) turnStopped() {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.events.TurnStopped()
}

func (s *StreamingSession) sendText(text string) error {
	conn := s.currentConn()
	if conn == nil {
		return skerrors.New(skerrors.ComponentTTS, "send", ErrNotConnected)
	}
	if err := conn.SendJSON(textMessage{Text: text}); err != nil {
		return skerrors.New(skerrors.ComponentTTS, "send", err)
	}
	if err := conn.SendJSON(flush); err != nil {
		return skerrors.New(skerrors.ComponentTTS, "send", err)
	}
	return nil
}

// connect dials the service and sends the init message. It is a no-op when
// already connected. Failures are reported and leave the session disconnected.
func (s *StreamingSession) connect(ctx context.Context) {
	ctx = s.logContext(ctx)

	s.mu.Lock()
	live := s.conn != nil && s.conn.IsOpen()
	stale := s.conn != nil && !live
	s.mu.Unlock()
	if live {
		return
	}
	if stale {
		s.disconnect(ctx)
	}

	s.mu.Lock()
	s.connecting = true
	s.mu.Unlock()

	conn, err := s.dial(ctx)

	s.mu.Lock()
	s.connecting = false
	if err == nil {
		s.conn = conn
	}
	s.mu.Unlock()

	if err != nil {
		logger.WarnContext(ctx, "TTS connection failed", "error", err, "url", logger.RedactSensitiveData(s.cfg.URL))
		s.events.ConnectionError(err.Error())
		return
	}

	s.startReceiveLoop(ctx, conn)
	logger.SessionConnect(ctx, ProviderName, s.cfg.Voice, s.cfg.SampleRate)
}

func (s *StreamingSession) dial(ctx context.Context) (Connection, error) {
	conn, err := s.transport.Dial(ctx, s.cfg.URL)
	if err != nil {
		return nil, skerrors.New(skerrors.ComponentTTS, "connect", err).WithRetryable(true)
	}

	hello := s.cfg.initMessage()
	logger.DebugContext(ctx, "sending TTS init message",
		"format", hello.Format, "sample_rate", hello.SampleRate, "language", hello.Language)

	if err := conn.SendJSON(hello); err != nil {
		_ = conn.Close()
		return nil, skerrors.New(skerrors.ComponentTTS, "connect", err).WithRetryable(true)
	}
	return conn, nil
}

// disconnect tears the connection down. It is idempotent and always leaves
// the session disconnected with no active turn.
func (s *StreamingSession) disconnect(ctx context.Context) {
	ctx = s.logContext(ctx)
	s.metrics.StopAll()

	s.mu.Lock()
	cancel, done, conn := s.loopCancel, s.loopDone, s.conn
	s.loopCancel, s.loopDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// The service expects the socket to simply close; no end-of-stream
	// message is sent first.
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.WarnContext(ctx, "TTS connection close failed",
				"error", skerrors.New(skerrors.ComponentTTS, "close", err))
		}
		logger.DebugContext(ctx, "TTS session disconnected")
	}

	s.mu.Lock()
	s.started = false
	s.conn = nil
	s.mu.Unlock()
}

// startReceiveLoop starts a loop for conn unless one is still running.
func (s *StreamingSession) startReceiveLoop(ctx context.Context, conn Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loopRunning(s.loopDone) {
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.loopCancel, s.loopDone = cancel, done
	go s.receiveLoop(loopCtx, conn, done)
}

// receiveLoop delivers inbound frames until the stream ends, the loop is
// canceled, or the service reports an error.
func (s *StreamingSession) receiveLoop(ctx context.Context, conn Connection, done chan<- struct{}) {
	defer close(done)
	logger.DebugContext(ctx, "TTS receive loop started")

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				logger.DebugContext(ctx, "TTS receive loop canceled")
			case errors.Is(err, io.EOF):
				logger.DebugContext(ctx, "TTS stream ended")
			default:
				logger.WarnContext(ctx, "TTS receive failed", "error", err)
				s.events.ConnectionError(err.Error())
			}
			// no turn outlives its connection
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
			return
		}

		if msg.Binary {
			s.metrics.StopTTFB()
			s.events.AudioOutput(msg.Data, s.cfg.SampleRate, audioChannels)
			continue
		}

		var in inboundMessage
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			logger.WarnContext(ctx, "ignoring malformed TTS message", "error", err, "size", len(msg.Data))
			continue
		}
		if text, ok := in.remoteError(); ok {
			remote := &RemoteError{Provider: ProviderName, Message: text}
			logger.SessionError(ctx, ProviderName, "receive", remote)
			s.turnStopped()
			s.metrics.StopAll()
			s.events.ReportableError(remote)
			return
		}
		logger.DebugContext(ctx, "ignoring TTS message", "data", logger.RedactSensitiveData(string(msg.Data)))
	}
}
