package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// ants keeps a ticker goroutine per pool until Release returns.
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	)
}

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	p, err := New("test", &Config{Capacity: capacity, ExpiryDuration: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.ReleaseTimeout(2 * time.Second) })
	return p
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New("bad", &Config{Capacity: 0})
	assert.Error(t, err)
}

func TestRun_AllTasks(t *testing.T) {
	p := newTestPool(t, 4)

	results := make([]int, 20)
	err := p.Run(context.Background(), len(results), func(_ context.Context, i int) error {
		results[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
	assert.Equal(t, int64(20), p.Stats().Submitted)
}

func TestRun_FirstError(t *testing.T) {
	p := newTestPool(t, 2)
	boom := errors.New("boom")

	var ran atomic.Int32
	err := p.Run(context.Background(), 10, func(_ context.Context, i int) error {
		ran.Add(1)
		if i == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, ran.Load(), int32(10))
}

func TestRun_Panic(t *testing.T) {
	p := newTestPool(t, 2)

	err := p.Run(context.Background(), 1, func(context.Context, int) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRun_ZeroTasks(t *testing.T) {
	p := newTestPool(t, 1)
	assert.NoError(t, p.Run(context.Background(), 0, nil))
}

func TestRun_CancelledContext(t *testing.T) {
	p := newTestPool(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := p.Run(ctx, 5, func(context.Context, int) error {
		ran.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ran.Load())
}

func TestSubmit_AfterRelease(t *testing.T) {
	p, err := New("closed", &Config{Capacity: 1})
	require.NoError(t, err)
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestSubmit_Overload(t *testing.T) {
	p, err := New("overload", &Config{Capacity: 1, Nonblocking: true})
	require.NoError(t, err)
	defer p.Release()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolOverload)
	assert.Equal(t, int64(1), p.Stats().Rejected)
	close(block)
}
