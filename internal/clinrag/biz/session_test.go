package biz

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/internal/model"
)

func appendTurn(s *Session, q string, latency float64, label string) {
	now := time.Now()
	s.Append(
		model.ChatMessage{Role: model.RoleUser, Content: q, CreatedAt: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: "answer to " + q, CreatedAt: now},
		model.TurnMetrics{
			Question:          q,
			LatencySec:        latency,
			AnswerLength:      3,
			Faithfulness:      label,
			FaithfulnessScore: 0.5,
			RelevanceScore:    0,
		},
	)
}

func TestSession_Recent(t *testing.T) {
	s := NewSession()
	assert.Empty(t, s.Recent(5))

	for _, q := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		appendTurn(s, q, 1, "ENTAILMENT")
	}

	recent := s.Recent(5)
	require.Len(t, recent, 5)
	assert.Equal(t, "q2", recent[0].Question)
	assert.Equal(t, "q6", recent[4].Question)
	assert.Len(t, s.Recent(100), 6)
	assert.Empty(t, s.Recent(0))
	assert.Len(t, s.History(), 12)

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.History())
}

func TestSession_ExportCSV(t *testing.T) {
	s := NewSession()
	appendTurn(s, "What is PheCode:250, exactly?", 1.25, "ENTAILMENT")
	appendTurn(s, "plain", 2, "UNKNOWN")

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf))
	assert.Equal(t,
		"question,latency_sec,answer_length,faithfulness,faithfulness_score,relevance_score\n"+
			"\"What is PheCode:250, exactly?\",1.25,3,ENTAILMENT,0.5,0.0\n"+
			"plain,2.0,3,UNKNOWN,0.5,0.0\n",
		buf.String())
}

func TestSession_ExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSession().ExportCSV(&buf))
	assert.Equal(t, "question,latency_sec,answer_length,faithfulness,faithfulness_score,relevance_score\n", buf.String())
}

func TestAnswerCache(t *testing.T) {
	r := newFakeRedis()
	c := NewAnswerCache(r, &AnswerCacheConfig{Enabled: true, TTL: time.Minute, KeyPrefix: "p:"})
	ctx := context.Background()

	got, err := c.Get(ctx, "q", "doc")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "doc", &model.AskResult{Question: "q", Answer: "a"}))
	key := c.Key("q", "doc")
	assert.Equal(t, time.Minute, r.ttl[key])
	assert.NotEqual(t, key, c.Key("q", "other"))

	got, err = c.Get(ctx, "q", "doc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Answer)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats["hits"])
	assert.Equal(t, uint64(1), stats["misses"])
}

func TestAnswerCache_CorruptEntry(t *testing.T) {
	r := newFakeRedis()
	c := NewAnswerCache(r, &AnswerCacheConfig{Enabled: true, TTL: time.Minute, KeyPrefix: "p:"})
	r.data[c.Key("q", "doc")] = "{not json"

	_, err := c.Get(context.Background(), "q", "doc")
	require.Error(t, err)
	assert.Empty(t, r.data)
}

func TestAnswerCache_Errors(t *testing.T) {
	r := newFakeRedis()
	r.getErr = errors.New("connection refused")
	c := NewAnswerCache(r, &AnswerCacheConfig{Enabled: true, KeyPrefix: "p:"})

	_, err := c.Get(context.Background(), "q", "doc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, goredis.Nil)
	assert.Equal(t, uint64(1), c.Stats()["errors"])
}

func TestAnswerCache_Disabled(t *testing.T) {
	c := NewAnswerCache(nil, &AnswerCacheConfig{Enabled: true})
	got, err := c.Get(context.Background(), "q", "doc")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Set(context.Background(), "doc", &model.AskResult{Question: "q"}))
	assert.Equal(t, map[string]any{"enabled": false}, c.Stats())

	var nilCache *AnswerCache
	assert.Equal(t, false, nilCache.Stats()["enabled"])
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t,
		"Answer the question based on the context.\nContext: ctx {question}\nQuestion: why?",
		BuildPrompt("why?", "ctx {question}"))
	assert.Equal(t, "a\n", FuseContext("a", ""))
	assert.Equal(t, "\nb", FuseContext("", "b"))
}
