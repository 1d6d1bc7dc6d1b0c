package audiocache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/tts"
)

func setupCache(t *testing.T, opts ...Option) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), mr
}

func sessionConfig() tts.SessionConfig {
	cfg := tts.DefaultSessionConfig()
	cfg.APIKey = "k"
	cfg.Voice = "leah"
	return cfg
}

func TestCache_Key(t *testing.T) {
	c, _ := setupCache(t)
	cfg := sessionConfig()

	k := c.Key(cfg, "Hello there.")
	assert.Equal(t, k, c.Key(cfg, "Hello there."))
	assert.Regexp(t, `^speechkit:audio:[0-9a-f]{64}$`, k)

	assert.NotEqual(t, k, c.Key(cfg, "Hello there!"))

	other := cfg
	other.Voice = "morgan"
	assert.NotEqual(t, k, c.Key(other, "Hello there."))

	other = cfg
	other.Format = tts.FormatMP3
	assert.NotEqual(t, k, c.Key(other, "Hello there."))

	other = cfg
	other.APIKey = "different"
	assert.Equal(t, k, c.Key(other, "Hello there."), "credentials do not affect audio")

	prefixed := New(c.client, WithPrefix("app"))
	assert.Regexp(t, `^app:audio:`, prefixed.Key(cfg, "Hello there."))
}

func TestCache_PutGet(t *testing.T) {
	c, mr := setupCache(t, WithTTL(time.Hour))
	ctx := context.Background()
	key := c.Key(sessionConfig(), "Hi.")

	created := time.Unix(1700000000, 0)
	audio := []byte{0x00, 0xff, 0x10, 0x00, 0x7f}
	require.NoError(t, c.Put(ctx, key, &Entry{
		Audio:      audio,
		Format:     "raw",
		SampleRate: 24000,
		Voice:      "leah",
		CreatedAt:  created,
	}))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, audio, got.Audio)
	assert.Equal(t, "raw", got.Format)
	assert.Equal(t, 24000, got.SampleRate)
	assert.Equal(t, "leah", got.Voice)
	assert.True(t, created.Equal(got.CreatedAt))

	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestCache_PutOverwrites(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", &Entry{Audio: []byte("first"), Voice: "leah"}))
	require.NoError(t, c.Put(ctx, "k", &Entry{Audio: []byte("second")}))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got.Audio)
	assert.Empty(t, got.Voice, "stale fields are not carried over")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCache_Expiry(t *testing.T) {
	c, mr := setupCache(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", &Entry{Audio: []byte("pcm")}))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_NoTTL(t *testing.T) {
	c, mr := setupCache(t, WithTTL(0))

	require.NoError(t, c.Put(context.Background(), "k", &Entry{Audio: []byte("pcm")}))
	assert.Zero(t, mr.TTL("k"))
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := setupCache(t)

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_PutEmpty(t *testing.T) {
	c, _ := setupCache(t)

	assert.ErrorIs(t, c.Put(context.Background(), "k", nil), ErrEmptyAudio)
	assert.ErrorIs(t, c.Put(context.Background(), "k", &Entry{}), ErrEmptyAudio)
}

func TestCache_Delete(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", &Entry{Audio: []byte("pcm")}))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_ServerDown(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	mr.Close()

	err := c.Ping(ctx)
	require.Error(t, err)
	assert.True(t, skerrors.IsRetryable(err))

	_, err = c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, skerrors.ComponentCache, skerrors.ComponentOf(err))

	err = c.Put(ctx, "k", &Entry{Audio: []byte("pcm")})
	require.Error(t, err)
	assert.True(t, skerrors.IsRetryable(err))
}
