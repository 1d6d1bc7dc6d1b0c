package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/speechkit/audiocache"
	"github.com/AltairaLabs/speechkit/config"
	"github.com/AltairaLabs/speechkit/events"
	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/metrics/prometheus"
	"github.com/AltairaLabs/speechkit/stage"
	"github.com/AltairaLabs/speechkit/telemetry"
	"github.com/AltairaLabs/speechkit/tts"
)

type speakOptions struct {
	configPath  string
	outPath     string
	useCache    bool
	metricsAddr string
	drain       time.Duration
	verbose     bool
}

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Synthesize text read from stdin",
	Long: `Read text from stdin line by line, split it into sentences and stream it
through an LMNT session. Audio frames are written to --out as they arrive.

With --cache, the rendition of the whole input is looked up in redis first
and stored there afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := speakOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runSpeak(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().StringP("config", "c", "speechkit.yaml", "SpeechConfig manifest")
	speakCmd.Flags().StringP("out", "o", "-", "Audio output file, - for stdout")
	speakCmd.Flags().Bool("cache", false, "Use the redis audio cache from spec.cache")
	speakCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics while speaking (overrides spec.metrics.addr)")
	speakCmd.Flags().Duration("drain", stage.DefaultDrainTimeout, "How long to wait for trailing audio after the input ends")
}

func speakOptionsFromFlags(cmd *cobra.Command) (speakOptions, error) {
	var (
		opts speakOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.configPath, err = flags.GetString("config"); err != nil {
		return opts, fmt.Errorf("failed to get config flag: %w", err)
	}
	if opts.outPath, err = flags.GetString("out"); err != nil {
		return opts, fmt.Errorf("failed to get out flag: %w", err)
	}
	if opts.useCache, err = flags.GetBool("cache"); err != nil {
		return opts, fmt.Errorf("failed to get cache flag: %w", err)
	}
	if opts.metricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return opts, fmt.Errorf("failed to get metrics-addr flag: %w", err)
	}
	if opts.drain, err = flags.GetDuration("drain"); err != nil {
		return opts, fmt.Errorf("failed to get drain flag: %w", err)
	}
	if opts.verbose, err = cmd.InheritedFlags().GetBool("verbose"); err != nil {
		return opts, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	return opts, nil
}

// speakRun holds everything one speak invocation wires together.
type speakRun struct {
	cfg     *config.Config
	session tts.SessionConfig
	tp      trace.TracerProvider
	cache   *audiocache.Cache
	key     string
}

func runSpeak(ctx context.Context, opts speakOptions, in io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := configureLogging(cfg, opts.verbose); err != nil {
		return err
	}
	sc, err := cfg.SessionConfig()
	if err != nil {
		return err
	}

	lines, err := readLines(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	run := &speakRun{cfg: cfg, session: sc, tp: noop.NewTracerProvider()}

	if cfg.Tracing.Endpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.Settings{
			Endpoint:       cfg.Tracing.Endpoint,
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: GetVersion(),
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := telemetry.Shutdown(context.WithoutCancel(ctx), tp); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
		telemetry.SetupPropagation()
		run.tp = tp
	}

	if opts.useCache {
		cache, closeCache, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer closeCache()
		run.cache = cache
		run.key = cache.Key(sc, strings.Join(lines, "\n"))

		entry, err := cache.Get(ctx, run.key)
		switch {
		case err == nil:
			logger.InfoContext(ctx, "serving audio from cache", "bytes", len(entry.Audio))
			return writeAudio(opts.outPath, stdout, entry.Audio)
		case !errors.Is(err, audiocache.ErrNotFound):
			logger.WarnContext(ctx, "audio cache unavailable", "error", err)
		}
	}

	w, closeOut, err := openOutput(opts.outPath, stdout)
	if err != nil {
		return err
	}

	metricsAddr := opts.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}

	audio, err := run.synthesize(ctx, lines, w, metricsAddr, opts.drain)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if run.cache != nil && len(audio) > 0 {
		if err := run.cache.Put(ctx, run.key, &audiocache.Entry{
			Audio:      audio,
			Format:     sc.Format.Name,
			SampleRate: sc.SampleRate,
			Voice:      sc.Voice,
		}); err != nil {
			logger.WarnContext(ctx, "failed to cache audio", "error", err)
		}
	}
	return nil
}

// configureLogging applies the manifest's logging section; -v then wins over
// whatever level it set.
func configureLogging(cfg *config.Config, verbose bool) error {
	if err := logger.Configure(cfg.LoggingSpec()); err != nil {
		return err
	}
	if verbose {
		logger.SetVerbose(true)
	}
	return nil
}

// synthesize streams lines through a session and writes audio to w as it
// arrives. It returns the audio when caching is enabled.
func (r *speakRun) synthesize(
	ctx context.Context, lines []string, w io.Writer, metricsAddr string, drain time.Duration,
) ([]byte, error) {
	sessionID := uuid.NewString()

	bus := events.NewEventBus()
	bus.SubscribeAll(prometheus.NewMetricsListener(tts.ProviderName).Handle)
	emitter := events.NewEmitter(bus, sessionID, r.session.Voice)

	sink := stage.NewChannelSink(r.session.Format.Name, 0)
	session, err := tts.NewStreamingSession(r.session,
		tts.WithSessionID(sessionID),
		tts.WithEventSink(tts.MultiEventSink(sink, emitter)),
		tts.WithMetrics(prometheus.NewSessionMetrics(tts.ProviderName, r.session.Voice)),
		tts.WithTracerProvider(r.tp),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Stop(context.WithoutCancel(ctx)) }()

	if metricsAddr != "" {
		exp := prometheus.NewExporter(metricsAddr).WithTracerProvider(r.tp)
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		metricsDone := make(chan error, 1)
		go func() { metricsDone <- serveMetrics(metricsCtx, exp) }()
		defer func() {
			stopMetrics()
			if err := <-metricsDone; err != nil {
				logger.Warn("metrics exporter stopped", "error", err)
			}
		}()
	}

	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	st := stage.NewTTSStage(session, sink, stage.Config{
		SkipTags:     r.cfg.SkipTags(),
		DrainTimeout: drain,
	})

	input := make(chan stage.Element)
	output := make(chan stage.Element)

	var audio bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed(gctx, lines, input)
	})
	g.Go(func() error {
		return st.Process(gctx, input, output)
	})
	g.Go(func() error {
		return drainOutput(gctx, output, w, &audio, r.cache != nil)
	})

	err = g.Wait()
	return audio.Bytes(), err
}

// feed sends one text element per line, then end of stream.
func feed(ctx context.Context, lines []string, input chan<- stage.Element) error {
	defer close(input)
	for _, line := range lines {
		select {
		case input <- stage.NewTextElement(line + "\n"):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case input <- stage.NewEndOfStreamElement():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainOutput writes audio elements to w and logs everything else.
func drainOutput(ctx context.Context, output <-chan stage.Element, w io.Writer, keep *bytes.Buffer, keepAudio bool) error {
	for elem := range output {
		switch {
		case elem.Audio != nil:
			if _, err := w.Write(elem.Audio.Samples); err != nil {
				return fmt.Errorf("failed to write audio: %w", err)
			}
			if keepAudio {
				keep.Write(elem.Audio.Samples)
			}
		case elem.Error != nil:
			logger.WarnContext(ctx, "synthesis error", "error", elem.Error)
		case elem.Control != stage.ControlNone:
			logger.DebugContext(ctx, "turn event", "event", elem.Control.String())
		}
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func openCache(cfg *config.Config) (*audiocache.Cache, func(), error) {
	if cfg.Cache.RedisAddr == "" {
		return nil, nil, fmt.Errorf("--cache requires spec.cache.redisAddr")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	cache := audiocache.New(client, audiocache.WithTTL(cfg.Cache.TTL))
	return cache, func() { _ = client.Close() }, nil
}

// createOutput opens the --out file.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// openOutput returns the audio destination and a func that closes it.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := createOutput(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
		return nil
	}, nil
}

func writeAudio(path string, stdout io.Writer, audio []byte) error {
	w, closeOut, err := openOutput(path, stdout)
	if err != nil {
		return err
	}
	_, err = w.Write(audio)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}
