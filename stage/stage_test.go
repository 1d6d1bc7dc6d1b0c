package stage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/textagg"
)

const drainForTest = 50 * time.Millisecond

// periodDetector ends a sentence after every '.'.
var periodDetector = textagg.BoundaryDetectorFunc(func(text string) (int, bool) {
	i := strings.IndexByte(text, '.')
	if i < 0 {
		return 0, false
	}
	return i + 1, true
})

// fakeSession echoes each text back as audio through the sink.
type fakeSession struct {
	sink *ChannelSink

	mu         sync.Mutex
	texts      []string
	flushes    int
	interrupts int
	started    bool
	failOn     string
	flushErr   error
}

func (f *fakeSession) Synthesize(_ context.Context, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	if text == f.failOn {
		f.mu.Unlock()
		return errors.New("boom")
	}
	begin := !f.started
	f.started = true
	f.mu.Unlock()

	if begin {
		f.sink.TurnStarted()
	}
	f.sink.AudioOutput([]byte(text), 24000, 1)
	return nil
}

func (f *fakeSession) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return f.flushErr
}

func (f *fakeSession) Interrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
	f.started = false
}

func (f *fakeSession) synthesized() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func newTestStage(cfg Config) (*TTSStage, *fakeSession) {
	sink := NewChannelSink("raw", 0)
	sess := &fakeSession{sink: sink}
	if cfg.Detector == nil {
		cfg.Detector = periodDetector
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = drainForTest
	}
	return NewTTSStage(sess, sink, cfg), sess
}

// run feeds elems to the stage, closes the input and collects the output.
func run(t *testing.T, st *TTSStage, elems ...Element) ([]Element, error) {
	t.Helper()
	in := make(chan Element, len(elems))
	for _, e := range elems {
		in <- e
	}
	close(in)

	out := make(chan Element, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- st.Process(context.Background(), in, out) }()

	var got []Element
	for e := range out {
		got = append(got, e)
	}
	return got, <-errCh
}

func audioTexts(elems []Element) []string {
	var out []string
	for _, e := range elems {
		if e.Audio != nil {
			out = append(out, string(e.Audio.Samples))
		}
	}
	return out
}

func TestTTSStage_SentencesAndFlush(t *testing.T) {
	st, sess := newTestStage(Config{})

	got, err := run(t, st,
		NewTextElement("Hello wor"),
		NewTextElement("ld. How"),
		NewTextElement(" are you?"),
		NewEndOfStreamElement(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello world.", " How are you?"}, sess.synthesized())
	assert.Equal(t, 1, sess.flushes)
	assert.Equal(t, []string{"Hello world.", " How are you?"}, audioTexts(got))

	require.NotEmpty(t, got)
	assert.Equal(t, ControlTurnStarted, got[0].Control)
	assert.True(t, got[len(got)-1].EndOfStream, "end of stream is forwarded last")

	for _, e := range got {
		if e.Audio != nil {
			assert.Equal(t, 24000, e.Audio.SampleRate)
			assert.Equal(t, "raw", e.Audio.Format)
			assert.Equal(t, "tts", e.Source)
		}
	}
}

func TestTTSStage_MultipleSentencesInOneChunk(t *testing.T) {
	st, sess := newTestStage(Config{})

	_, err := run(t, st, NewTextElement("One. Two. Three"))
	require.NoError(t, err)

	assert.Equal(t, []string{"One.", " Two.", " Three"}, sess.synthesized())
}

func TestTTSStage_SkipTagsKeepSpanWhole(t *testing.T) {
	st, sess := newTestStage(Config{
		SkipTags: []textagg.TagPair{{Start: "<spell>", End: "</spell>"}},
	})

	_, err := run(t, st,
		NewTextElement("Code <spell>A. B."),
		NewTextElement(" C.</spell> done. Next"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Code <spell>A. B. C.</spell> done.", " Next"}, sess.synthesized())
}

func TestTTSStage_UnterminatedSpanFlushedAtEnd(t *testing.T) {
	st, sess := newTestStage(Config{
		SkipTags: []textagg.TagPair{{Start: "<spell>", End: "</spell>"}},
	})

	_, err := run(t, st, NewTextElement("<spell>A. B."))
	require.NoError(t, err)

	assert.Equal(t, []string{"<spell>A. B."}, sess.synthesized())
}

func TestTTSStage_Interruption(t *testing.T) {
	st, sess := newTestStage(Config{})

	got, err := run(t, st,
		NewTextElement("Partial sentence"),
		NewInterruptionElement(),
		NewTextElement("New."),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"New."}, sess.synthesized(), "buffered text is discarded")
	assert.Equal(t, 1, sess.interrupts)

	var interruptions, eos int
	for _, e := range got {
		if e.Interruption {
			interruptions++
		}
		if e.EndOfStream {
			eos++
		}
	}
	assert.Equal(t, 1, interruptions)
	assert.Zero(t, eos, "no end of stream without one on input")
}

func TestTTSStage_SynthesisErrorIsNotFatal(t *testing.T) {
	st, sess := newTestStage(Config{})
	sess.failOn = "Bad."

	got, err := run(t, st, NewTextElement("Bad. Good."))
	require.NoError(t, err)

	assert.Equal(t, []string{"Bad.", " Good."}, sess.synthesized())
	assert.Equal(t, []string{" Good."}, audioTexts(got))

	var errs []error
	for _, e := range got {
		if e.Error != nil {
			errs = append(errs, e.Error)
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, skerrors.ComponentStage, skerrors.ComponentOf(errs[0]))
}

func TestTTSStage_FlushError(t *testing.T) {
	st, sess := newTestStage(Config{})
	sess.flushErr = errors.New("socket gone")

	got, err := run(t, st, NewTextElement("Hi."))
	require.NoError(t, err)

	var found bool
	for _, e := range got {
		if e.Error != nil {
			found = true
			assert.Contains(t, e.Error.Error(), "socket gone")
		}
	}
	assert.True(t, found)
}

func TestTTSStage_PassesOtherElements(t *testing.T) {
	st, _ := newTestStage(Config{})

	upstream := errors.New("upstream")
	got, err := run(t, st, NewErrorElement(upstream))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, upstream, got[0].Error)
}

func TestTTSStage_WhitespaceNotSynthesized(t *testing.T) {
	st, sess := newTestStage(Config{})

	_, err := run(t, st, NewTextElement("Done.   "))
	require.NoError(t, err)

	assert.Equal(t, []string{"Done."}, sess.synthesized())
}

func TestTTSStage_ContextCancel(t *testing.T) {
	st, _ := newTestStage(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Element)
	out := make(chan Element)
	errCh := make(chan error, 1)
	go func() { errCh <- st.Process(ctx, in, out) }()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return after cancel")
	}
	_, open := <-out
	assert.False(t, open, "output is closed")
}

func TestTTSStage_DrainWaitsForLateAudio(t *testing.T) {
	sink := NewChannelSink("raw", 0)
	st := NewTTSStage(&fakeSession{sink: sink}, sink, Config{
		Detector:     periodDetector,
		DrainTimeout: 200 * time.Millisecond,
	})

	in := make(chan Element)
	close(in)
	out := make(chan Element, 4)

	go func() {
		time.Sleep(50 * time.Millisecond)
		sink.AudioOutput([]byte("late"), 24000, 1)
	}()

	require.NoError(t, st.Process(context.Background(), in, out))

	var got []Element
	for e := range out {
		got = append(got, e)
	}
	assert.Equal(t, []string{"late"}, audioTexts(got))
}

func TestControl_String(t *testing.T) {
	assert.Equal(t, "turn_started", ControlTurnStarted.String())
	assert.Equal(t, "turn_stopped", ControlTurnStopped.String())
	assert.Equal(t, "none", ControlNone.String())
}
