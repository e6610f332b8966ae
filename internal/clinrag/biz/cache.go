package biz

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/clinrag/internal/model"
	"github.com/kart-io/clinrag/internal/pkg/rag/textutil"
	ctxlog "github.com/kart-io/clinrag/pkg/infra/logger"
	"github.com/kart-io/clinrag/pkg/utils/json"
)

// RedisClient 答案缓存使用的 Redis 命令子集。
type RedisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// AnswerCacheConfig 答案缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 以问题与文档 ID 为键缓存问答结果。
type AnswerCache struct {
	redis  RedisClient
	config *AnswerCacheConfig

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// NewAnswerCache 创建答案缓存实例。
func NewAnswerCache(redis RedisClient, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{TTL: time.Hour, KeyPrefix: "clinrag:answer:"}
	}
	return &AnswerCache{redis: redis, config: config}
}

func (c *AnswerCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

// Key 返回缓存键：前缀加问题与文档 ID 的 SHA-256 摘要。
func (c *AnswerCache) Key(question, documentID string) string {
	return c.config.KeyPrefix + textutil.HashStrings(question, documentID)
}

// Get 读取缓存，未命中返回 nil。
func (c *AnswerCache) Get(ctx context.Context, question, documentID string) (*model.AskResult, error) {
	if !c.enabled() {
		return nil, nil
	}

	key := c.Key(question, documentID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			c.misses.Add(1)
			ctxlog.From(ctx).Debugw("answer cache miss", "key", key)
			return nil, nil
		}
		c.errors.Add(1)
		ctxlog.Warn(ctx, "failed to read answer cache", err, "key", key)
		return nil, err
	}

	var result model.AskResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.errors.Add(1)
		ctxlog.Warn(ctx, "dropping corrupt cache entry", err, "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	c.hits.Add(1)
	ctxlog.From(ctx).Infow("answer cache hit", "key", key)
	return &result, nil
}

// Set 写入缓存。
func (c *AnswerCache) Set(ctx context.Context, documentID string, result *model.AskResult) error {
	if !c.enabled() {
		return nil
	}

	key := c.Key(result.Question, documentID)
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		c.errors.Add(1)
		ctxlog.Warn(ctx, "failed to write answer cache", err, "key", key)
		return err
	}
	return nil
}

// Stats 返回缓存统计。
func (c *AnswerCache) Stats() map[string]any {
	if !c.enabled() {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":    true,
		"hits":       c.hits.Load(),
		"misses":     c.misses.Load(),
		"errors":     c.errors.Load(),
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}
}
