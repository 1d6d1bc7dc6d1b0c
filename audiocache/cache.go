// Package audiocache stores synthesized audio in redis, keyed by the text and
// the session settings that shaped it.
package audiocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/tts"
)

const (
	defaultTTL    = 24 * time.Hour
	defaultPrefix = "speechkit"
)

// Hash fields.
const (
	fieldAudio      = "audio"
	fieldFormat     = "format"
	fieldSampleRate = "sample_rate"
	fieldVoice      = "voice"
	fieldCreatedAt  = "created_at"
)

// Errors returned by the cache.
var (
	ErrNotFound   = errors.New("audio not cached")
	ErrEmptyAudio = errors.New("refusing to cache empty audio")
)

// Entry is one cached rendition.
type Entry struct {
	Audio      []byte
	Format     string
	SampleRate int
	Voice      string
	CreatedAt  time.Time
}

// Cache is a redis-backed audio cache.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Zero keeps entries forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "speechkit".
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache over client.
//
//	cache := audiocache.New(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    audiocache.WithTTL(time.Hour),
//	)
func New(client redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		ttl:    defaultTTL,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key for text rendered with cfg. Any setting that
// changes the audio changes the key.
//
//nolint:gocritic // hugeParam
func (c *Cache) Key(cfg tts.SessionConfig, text string) string {
	h := sha256.New()
	for _, part := range []string{
		cfg.Voice, cfg.Model, cfg.Language, cfg.Format.Name,
		strconv.Itoa(cfg.SampleRate), text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:audio:%s", c.prefix, hex.EncodeToString(h.Sum(nil)))
}

// Get returns the entry stored under key, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, skerrors.New(skerrors.ComponentCache, "get",
			fmt.Errorf("redis hgetall failed: %w", err)).WithRetryable(true)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	entry := &Entry{
		Audio:  []byte(fields[fieldAudio]),
		Format: fields[fieldFormat],
		Voice:  fields[fieldVoice],
	}
	entry.SampleRate, _ = strconv.Atoi(fields[fieldSampleRate])
	if unix, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64); err == nil {
		entry.CreatedAt = time.Unix(0, unix)
	}

	logger.DebugContext(ctx, "audio cache hit", "key", key, "bytes", len(entry.Audio))
	return entry, nil
}

// Put stores entry under key with the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil || len(entry.Audio) == 0 {
		return ErrEmptyAudio
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		fieldAudio, entry.Audio,
		fieldFormat, entry.Format,
		fieldSampleRate, entry.SampleRate,
		fieldVoice, entry.Voice,
		fieldCreatedAt, created.UnixNano(),
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return skerrors.New(skerrors.ComponentCache, "put",
			fmt.Errorf("redis pipeline failed: %w", err)).WithRetryable(true)
	}

	logger.DebugContext(ctx, "audio cached", "key", key, "bytes", len(entry.Audio), "ttl", c.ttl)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return skerrors.New(skerrors.ComponentCache, "delete",
			fmt.Errorf("redis del failed: %w", err))
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return skerrors.New(skerrors.ComponentCache, "ping", err).WithRetryable(true)
	}
	return nil
}
