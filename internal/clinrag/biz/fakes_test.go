package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/internal/clinrag/store"
	"github.com/kart-io/clinrag/pkg/infra/pool"
	"github.com/kart-io/clinrag/pkg/llm"
)

// 接口实现验证（编译时检查）
var (
	_ llm.EmbeddingProvider  = (*fakeEmbedder)(nil)
	_ llm.ChatProvider       = (*fakeChat)(nil)
	_ llm.ClassifierProvider = (*fakeClassifier)(nil)
	_ RedisClient            = (*fakeRedis)(nil)
	_ CodeRetriever          = (*fakeCodes)(nil)
)

// fakeEmbedder 按关键词计数生成向量。
type fakeEmbedder struct {
	err   error
	calls int
	mu    sync.Mutex
}

var keywords = []string{"diabetes", "hypertension", "insulin"}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(keywords)+1)
	for i, k := range keywords {
		v[i] = float32(strings.Count(lower, k))
	}
	v[len(keywords)] = 1
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

// fakeChat 记录最后一次提示词并返回固定答案。
type fakeChat struct {
	answer     string
	err        error
	lastPrompt string
	delay      time.Duration
}

func (f *fakeChat) Chat(ctx context.Context, _ []llm.Message) (string, error) {
	return f.Generate(ctx, "", "")
}

func (f *fakeChat) Generate(ctx context.Context, prompt, _ string) (string, error) {
	f.lastPrompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

type fakeClassifier struct {
	labels []llm.Label
	err    error
	delay  time.Duration
}

func (f *fakeClassifier) Classify(ctx context.Context, _ string) ([]llm.Label, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]llm.Label, len(f.labels))
	copy(out, f.labels)
	return out, nil
}

func (f *fakeClassifier) Name() string { return "fake-nli" }

type fakeCodes struct {
	context string
	err     error
	gotK    int
}

func (f *fakeCodes) Context(_ string, k int) (string, error) {
	f.gotK = k
	return f.context, f.err
}

// failingInsertStore 在 insertErr 非空时拒绝插入。
type failingInsertStore struct {
	store.VectorStore
	insertErr error
}

func (s *failingInsertStore) Insert(ctx context.Context, collection string, chunks []*store.Chunk) ([]string, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	return s.VectorStore.Insert(ctx, collection, chunks)
}

// fakeRedis 内存实现的 Redis 命令子集。
type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (r *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return goredis.NewStringResult("", r.getErr)
	}
	v, ok := r.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (r *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		r.data[key] = string(v)
	case string:
		r.data[key] = v
	default:
		return goredis.NewStatusResult("", errors.New("unsupported value"))
	}
	r.ttl[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (r *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := r.data[k]; ok {
			delete(r.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New("biz-test", pool.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

const testCollection = "test_chunks"

func newTestIndexer(t *testing.T, vs store.VectorStore, embed llm.EmbeddingProvider) *Indexer {
	t.Helper()
	return NewIndexer(vs, embed, newTestPool(t), &IndexerConfig{
		ChunkSize:     60,
		ChunkOverlap:  0,
		MinChunkRunes: 5,
		BatchSize:     2,
		Collection:    testCollection,
	})
}
