package stage

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/textagg"
)

// DefaultDrainTimeout is how long Process keeps forwarding session output
// after its input ends without anything new arriving.
const DefaultDrainTimeout = 2 * time.Second

// Session is the part of tts.StreamingSession the stage drives.
type Session interface {
	Synthesize(ctx context.Context, text string) error
	Flush(ctx context.Context) error
	Interrupt()
}

// Config configures a TTSStage.
type Config struct {
	// SkipTags are spans that are never split across sentences.
	SkipTags []textagg.TagPair

	// Detector overrides textagg.DefaultBoundaryDetector.
	Detector textagg.SentenceBoundaryDetector

	// DrainTimeout defaults to DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// TTSStage turns streamed text into synthesized audio.
//
// Text elements are buffered until a sentence is complete, then sent to the
// session. Interruption elements discard buffered text, end the session's
// turn and are forwarded. On end of input the remaining text is synthesized
// and flushed. Session output keeps being forwarded until it goes quiet for
// DrainTimeout.
type TTSStage struct {
	name    string
	session Session
	sink    *ChannelSink
	agg     textagg.Aggregator
	drain   time.Duration
}

// NewTTSStage creates a stage. sink must be the EventSink the session was
// built with.
func NewTTSStage(session Session, sink *ChannelSink, cfg Config) *TTSStage {
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	return &TTSStage{
		name:    "tts",
		session: session,
		sink:    sink,
		agg:     textagg.NewSkipTagsAggregator(cfg.SkipTags, textagg.WithBoundaryDetector(cfg.Detector)),
		drain:   drain,
	}
}

// Name returns the stage name.
func (s *TTSStage) Name() string { return s.name }

// Process reads input until it is closed or an EndOfStream element arrives,
// while a second goroutine forwards session output. A received EndOfStream
// element is forwarded last. Process closes output and the sink when it
// returns, so a stage handles a single stream.
func (s *TTSStage) Process(ctx context.Context, input <-chan Element, output chan<- Element) error {
	defer close(output)
	defer s.sink.Close()
	ctx = logger.WithStage(ctx, s.name)

	g, gctx := errgroup.WithContext(ctx)
	inputDone := make(chan struct{})

	g.Go(func() error {
		return s.pump(gctx, output, inputDone)
	})

	var eos *Element
	g.Go(func() error {
		defer close(inputDone)
		var err error
		eos, err = s.consume(gctx, input, output)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if eos != nil {
		return forward(ctx, *eos, output)
	}
	return nil
}

// consume handles input elements, then synthesizes and flushes the remainder.
func (s *TTSStage) consume(ctx context.Context, input <-chan Element, output chan<- Element) (*Element, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case elem, ok := <-input:
			if !ok {
				return nil, s.finish(ctx, output)
			}
			if elem.EndOfStream {
				return &elem, s.finish(ctx, output)
			}
			if err := s.processElement(ctx, &elem, output); err != nil {
				return nil, err
			}
		}
	}
}

// pump forwards session output. Once inputDone is closed it returns after
// nothing has arrived for s.drain.
func (s *TTSStage) pump(ctx context.Context, output chan<- Element, inputDone <-chan struct{}) error {
	var (
		timer *time.Timer
		idle  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.sink.Elements():
			if err := forward(ctx, ev, output); err != nil {
				return err
			}
			if timer != nil {
				timer.Reset(s.drain)
			}
		case <-inputDone:
			inputDone = nil
			timer = time.NewTimer(s.drain)
			idle = timer.C
		case <-idle:
			return nil
		}
	}
}

func (s *TTSStage) processElement(ctx context.Context, elem *Element, output chan<- Element) error {
	switch {
	case elem.Interruption:
		logger.DebugContext(ctx, "TTSStage: interrupted", "discarded_chars", len(s.agg.Text()))
		s.agg.HandleInterruption()
		s.session.Interrupt()
		return forward(ctx, *elem, output)
	case elem.Text != nil:
		return s.aggregate(ctx, *elem.Text, output)
	default:
		return forward(ctx, *elem, output)
	}
}

// aggregate feeds chunk to the aggregator and synthesizes every sentence it
// completes.
func (s *TTSStage) aggregate(ctx context.Context, chunk string, output chan<- Element) error {
	for {
		unit, ok := s.agg.Aggregate(chunk)
		if !ok {
			return nil
		}
		chunk = ""
		if err := s.synthesize(ctx, unit, output); err != nil {
			return err
		}
	}
}

// synthesize sends text to the session. Only context errors are fatal;
// anything else is emitted as an error element.
func (s *TTSStage) synthesize(ctx context.Context, text string, output chan<- Element) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	err := s.session.Synthesize(ctx, text)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.WarnContext(ctx, "TTSStage: synthesis failed", "error", err)
	return forward(ctx, NewErrorElement(skerrors.New(skerrors.ComponentStage, "synthesize", err)), output)
}

// finish synthesizes whatever is still buffered, including an unterminated
// tagged span, and flushes the session.
func (s *TTSStage) finish(ctx context.Context, output chan<- Element) error {
	rest := s.agg.Text()
	s.agg.Reset()
	if err := s.synthesize(ctx, rest, output); err != nil {
		return err
	}
	if err := s.session.Flush(ctx); err != nil {
		return forward(ctx, NewErrorElement(skerrors.New(skerrors.ComponentStage, "flush", err)), output)
	}
	return nil
}

//nolint:gocritic // hugeParam: Element is passed by value so callers keep their copy
func forward(ctx context.Context, elem Element, output chan<- Element) error {
	select {
	case output <- elem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
