package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is used when CacheOpts.TTL is zero.
const DefaultCacheTTL = 24 * time.Hour

// redisClient is the subset of *goredis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// CacheOpts configures a Cached embedder.
type CacheOpts struct {
	// Model scopes keys so vectors from different models never mix.
	Model     string
	TTL       time.Duration
	KeyPrefix string
	Logger    *slog.Logger
}

// Cached is a read-through Redis cache in front of an Embedder. Redis
// failures are logged and bypassed; they never fail an Embed call.
type Cached struct {
	next   Embedder
	rdb    redisClient
	opts   CacheOpts
	logger *slog.Logger
}

// NewCached wraps next with a cache backed by rdb.
func NewCached(next Embedder, rdb redisClient, opts CacheOpts) *Cached {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "emb:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, rdb: rdb, opts: opts, logger: logger}
}

// Key returns the cache key for text.
func (c *Cached) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.opts.KeyPrefix + c.opts.Model + ":" + hex.EncodeToString(sum[:])
}

// Embed serves cached vectors and embeds only the misses, in one call to
// the wrapped embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if v, ok := c.lookup(ctx, text); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		c.logger.Debug("embedding cache hit", "texts", len(texts))
		return out, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, ErrCountMismatch
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
		c.store(ctx, missTexts[j], fresh[j])
	}
	c.logger.Debug("embedding cache fill", "texts", len(texts), "misses", len(missTexts))
	return out, nil
}

func (c *Cached) lookup(ctx context.Context, text string) ([]float32, bool) {
	key := c.Key(text)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("embedding cache get failed", "err", err)
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(data, &v); err != nil || len(v) == 0 {
		c.logger.Warn("dropping corrupt cached embedding", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false
	}
	return v, true
}

func (c *Cached) store(ctx context.Context, text string, v []float32) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.Key(text), data, c.opts.TTL).Err(); err != nil {
		c.logger.Warn("embedding cache set failed", "err", err)
	}
}
