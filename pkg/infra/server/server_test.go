package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/kart-io/clinrag/pkg/infra/server/http"
	httpopts "github.com/kart-io/clinrag/pkg/options/http"
)

type recordingServer struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
	mu       *sync.Mutex
}

func (s *recordingServer) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.log = append(*s.log, event+":"+s.name)
}

func (s *recordingServer) Start(context.Context) error {
	s.record("start")
	return s.startErr
}

func (s *recordingServer) Stop(context.Context) error {
	s.record("stop")
	return s.stopErr
}

func (s *recordingServer) Name() string { return s.name }

func newRecorders(names ...string) ([]*recordingServer, *[]string) {
	log := &[]string{}
	mu := &sync.Mutex{}
	out := make([]*recordingServer, len(names))
	for i, n := range names {
		out[i] = &recordingServer{name: n, log: log, mu: mu}
	}
	return out, log
}

func TestManager_StartStopOrder(t *testing.T) {
	servers, log := newRecorders("a", "b")
	m := NewManager(time.Second)
	for _, s := range servers {
		m.AddServer(s)
	}

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()), "second start is rejected")
	require.NoError(t, m.Stop(context.Background()))
	require.NoError(t, m.Stop(context.Background()), "stop is idempotent")

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, *log)
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	servers, log := newRecorders("a", "b", "c")
	servers[1].startErr = errors.New("bind failed")
	m := NewManager(time.Second)
	for _, s := range servers {
		m.AddServer(s)
	}

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, *log)
}

func TestManager_StopCollectsErrors(t *testing.T) {
	servers, _ := newRecorders("a", "b")
	servers[0].stopErr = errors.New("a stuck")
	servers[1].stopErr = errors.New("b stuck")
	m := NewManager(time.Second)
	for _, s := range servers {
		m.AddServer(s)
	}

	require.NoError(t, m.Start(context.Background()))
	err := m.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a stuck")
	assert.Contains(t, err.Error(), "b stuck")
}

func TestManager_RunStopsOnContextCancel(t *testing.T) {
	servers, log := newRecorders("a")
	m := NewManager(time.Second)
	m.AddServer(servers[0])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		servers[0].mu.Lock()
		defer servers[0].mu.Unlock()
		return len(*log) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"start:a", "stop:a"}, *log)
}

func TestManager_HTTPServer(t *testing.T) {
	opts := httpopts.NewOptions()
	opts.Addr = "127.0.0.1:0"
	opts.Mode = "test"
	srv := httpserver.NewServer(opts)

	m := NewManager(time.Second)
	m.AddServer(srv)
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop(context.Background()) }()

	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/nope")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "route GET /nope not found")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
