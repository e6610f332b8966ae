package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_NoFiles(t *testing.T) {
	_, err := NewWatcher(time.Millisecond)
	assert.Error(t, err)
}

func TestWatcher_DebouncedNotify(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "ClinVec_phecode.csv")
	other := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(watched, []byte("a\n1\n"), 0o600))

	w, err := NewWatcher(50*time.Millisecond, watched)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	var calls atomic.Int32
	got := make(chan []string, 4)
	w.Subscribe("clinvec", func(_ context.Context, changed []string) error {
		calls.Add(1)
		got <- changed
		return nil
	})
	assert.Equal(t, 1, w.HandlerCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte("a\n2\n"), 0o600))
	}

	select {
	case changed := <-got:
		require.Len(t, changed, 1)
		assert.Equal(t, "ClinVec_phecode.csv", filepath.Base(changed[0]))
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_Unsubscribe(t *testing.T) {
	f := filepath.Join(t.TempDir(), "nodes.tsv")
	require.NoError(t, os.WriteFile(f, nil, 0o600))

	w, err := NewWatcher(time.Millisecond, f)
	require.NoError(t, err)
	defer w.Close()

	w.Subscribe("a", func(context.Context, []string) error { return nil })
	w.Unsubscribe("a")
	assert.Zero(t, w.HandlerCount())
}
