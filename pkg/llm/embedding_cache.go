package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/clinrag/pkg/utils/json"
)

// EmbeddingCacheStore Embedding 缓存使用的 Redis 命令子集。
type EmbeddingCacheStore interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间，小于等于 0 时不写入缓存。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// CachedEmbeddingProvider 以文本 SHA-256 为键缓存向量的 Embedding 包装器。
// 缓存读写失败只记录日志，不影响嵌入结果。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	store    EmbeddingCacheStore
	config   EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding 供应商。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, store EmbeddingCacheStore, config EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "emb:"
	}
	return &CachedEmbeddingProvider{provider: provider, store: store, config: config}
}

func (c *CachedEmbeddingProvider) key(text string) string {
	sum := sha256.Sum256([]byte(c.provider.Name() + "\x00" + text))
	return c.config.KeyPrefix + hex.EncodeToString(sum[:])
}

// Name 返回底层供应商名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name()
}

// EmbedSingle 生成单个文本的向量（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Embed 批量生成向量：一次 MGET 读取命中项，其余交给底层供应商并回写缓存。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	missing := c.lookup(ctx, keys, out)
	if len(missing) == 0 {
		logger.Debugw("embeddings served from cache", "count", len(texts))
		return out, nil
	}

	pending := make([]string, len(missing))
	for i, idx := range missing {
		pending[i] = texts[idx]
	}
	fresh, err := c.provider.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, stderrors.New("embedding provider returned a mismatched batch")
	}

	for i, idx := range missing {
		out[idx] = fresh[i]
		c.save(ctx, keys[idx], fresh[i])
	}
	logger.Debugw("embedding cache batch", "total", len(texts), "missed", len(missing))
	return out, nil
}

// lookup 填充命中项，返回未命中的下标。
func (c *CachedEmbeddingProvider) lookup(ctx context.Context, keys []string, out [][]float32) []int {
	all := func() []int {
		idx := make([]int, len(keys))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	vals, err := c.store.MGet(ctx, keys...).Result()
	if err != nil || len(vals) != len(keys) {
		if err != nil {
			logger.Warnw("embedding cache read failed, falling back to provider", "error", err.Error())
		}
		return all()
	}

	var missing []int
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil || len(vec) == 0 {
			_ = c.store.Del(ctx, keys[i]).Err()
			missing = append(missing, i)
			continue
		}
		out[i] = vec
	}
	return missing
}

func (c *CachedEmbeddingProvider) save(ctx context.Context, key string, vec []float32) {
	if c.config.TTL <= 0 {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "key", key, "error", err.Error())
	}
}
