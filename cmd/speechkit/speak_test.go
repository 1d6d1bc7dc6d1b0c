package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/speechkit/config"
	"github.com/AltairaLabs/speechkit/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// echoService answers every flush with the text received since the last
// one, as a binary frame.
type echoService struct {
	mu    sync.Mutex
	dials int
	inits []map[string]any
}

func (e *echoService) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	e.mu.Lock()
	e.dials++
	e.mu.Unlock()

	var pending strings.Builder
	first := true
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if first {
			first = false
			e.mu.Lock()
			e.inits = append(e.inits, msg)
			e.mu.Unlock()
			continue
		}
		if text, ok := msg["text"].(string); ok {
			pending.WriteString(text)
		}
		if flush, _ := msg["flush"].(bool); flush && pending.Len() > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, []byte(pending.String())); err != nil {
				return
			}
			pending.Reset()
		}
	}
}

func (e *echoService) dialCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dials
}

func writeManifest(t *testing.T, url, extra string) string {
	t.Helper()
	manifest := fmt.Sprintf(`
apiVersion: %s
kind: %s
spec:
  tts:
    apiKey: test-key
    voice: leah
    url: %s
%s`, config.APIVersion, config.Kind, url, extra)
	path := filepath.Join(t.TempDir(), "speechkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvVoice, "")
	t.Setenv(config.EnvLogLevel, "")
}

func startEchoService(t *testing.T) (*echoService, string) {
	t.Helper()
	svc := &echoService{}
	srv := httptest.NewServer(http.HandlerFunc(svc.handler))
	t.Cleanup(srv.Close)
	return svc, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunSpeak_WritesAudio(t *testing.T) {
	clearEnv(t)
	svc, url := startEchoService(t)

	out := filepath.Join(t.TempDir(), "out.pcm")
	opts := speakOptions{
		configPath: writeManifest(t, url, ""),
		outPath:    out,
		drain:      300 * time.Millisecond,
	}

	input := strings.NewReader("Hello world.\n\nSecond line here.\n")
	require.NoError(t, runSpeak(context.Background(), opts, input, &bytes.Buffer{}))

	audio, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(audio), "Hello world.")
	assert.Contains(t, string(audio), "Second line here.")

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.NotEmpty(t, svc.inits)
	assert.Equal(t, "test-key", svc.inits[0]["X-API-Key"])
	assert.Equal(t, "leah", svc.inits[0]["voice"])
	assert.Equal(t, "raw", svc.inits[0]["format"])
}

func TestRunSpeak_Stdout(t *testing.T) {
	clearEnv(t)
	_, url := startEchoService(t)

	var stdout bytes.Buffer
	opts := speakOptions{
		configPath: writeManifest(t, url, ""),
		outPath:    "-",
		drain:      300 * time.Millisecond,
	}
	require.NoError(t, runSpeak(context.Background(), opts, strings.NewReader("Just one.\n"), &stdout))
	assert.Contains(t, stdout.String(), "Just one.")
}

func TestRunSpeak_CacheServesSecondRun(t *testing.T) {
	clearEnv(t)
	svc, url := startEchoService(t)
	mr := miniredis.RunT(t)

	cfgPath := writeManifest(t, url, fmt.Sprintf(`  cache:
    redisAddr: %s
    ttl: 1h
`, mr.Addr()))
	opts := speakOptions{configPath: cfgPath, outPath: "-", useCache: true, drain: 300 * time.Millisecond}

	var first bytes.Buffer
	require.NoError(t, runSpeak(context.Background(), opts, strings.NewReader("Cache me.\n"), &first))
	require.Contains(t, first.String(), "Cache me.")
	dials := svc.dialCount()
	assert.Len(t, mr.Keys(), 1)

	var second bytes.Buffer
	require.NoError(t, runSpeak(context.Background(), opts, strings.NewReader("Cache me.\n"), &second))
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, dials, svc.dialCount(), "cache hit does not dial")
}

func TestRunSpeak_CacheWithoutRedis(t *testing.T) {
	clearEnv(t)
	_, url := startEchoService(t)

	opts := speakOptions{configPath: writeManifest(t, url, ""), outPath: "-", useCache: true}
	err := runSpeak(context.Background(), opts, strings.NewReader("x.\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redisAddr")
}

func TestRunSpeak_BadConfig(t *testing.T) {
	clearEnv(t)

	opts := speakOptions{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	err := runSpeak(context.Background(), opts, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("  a  \n\n b\n   \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestSpeakCommand_Flags(t *testing.T) {
	opts, err := speakOptionsFromFlags(speakCmd)
	require.NoError(t, err)
	assert.Equal(t, "speechkit.yaml", opts.configPath)
	assert.Equal(t, "-", opts.outPath)
	assert.False(t, opts.useCache)
	assert.False(t, opts.verbose)
}

func TestConfigureLogging_VerboseOverridesManifest(t *testing.T) {
	t.Cleanup(func() { logger.SetVerbose(false) })
	cfg := &config.Config{Logging: config.LoggingConfig{DefaultLevel: "warn"}}
	ctx := context.Background()

	require.NoError(t, configureLogging(cfg, false))
	assert.False(t, logger.Default().Enabled(ctx, slog.LevelInfo))

	require.NoError(t, configureLogging(cfg, true))
	assert.True(t, logger.Default().Enabled(ctx, slog.LevelDebug))
}

// failingFile accepts writes and fails on Close.
type failingFile struct{ bytes.Buffer }

func (*failingFile) Close() error { return errors.New("disk full") }

func TestWriteAudio_ReportsCloseError(t *testing.T) {
	orig := createOutput
	t.Cleanup(func() { createOutput = orig })
	f := &failingFile{}
	createOutput = func(string) (io.WriteCloser, error) { return f, nil }

	err := writeAudio("out.pcm", &bytes.Buffer{}, []byte{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close output file")
	assert.Equal(t, []byte{1, 2}, f.Bytes())

	assert.NoError(t, writeAudio("-", &bytes.Buffer{}, []byte{3}), "stdout is never closed")
}

func TestGetVersionInfo(t *testing.T) {
	assert.Contains(t, GetVersionInfo(), "speechkit version")
	assert.Contains(t, GetVersionInfo(), runtime.Version())
}

func TestVersionCommand_JSON(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var bi buildInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &bi))
	assert.Equal(t, GetVersion(), bi.Version)
	assert.Equal(t, runtime.Version(), bi.GoVersion)
}
