package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/utils/httpclient"
)

const testOpenTimeout = 50 * time.Millisecond

func newTestBreaker(max int) *Breaker {
	return NewBreaker("test", &Config{MaxFailures: max, OpenTimeout: testOpenTimeout})
}

var errUpstream = &httpclient.StatusError{StatusCode: 503, Body: "loading"}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := newTestBreaker(2)

	assert.Error(t, b.Do(func() error { return errUpstream }))
	assert.Equal(t, StateClosed, b.State())
	assert.Error(t, b.Do(func() error { return errUpstream }))
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := newTestBreaker(2)

	_ = b.Do(func() error { return errUpstream })
	require.NoError(t, b.Do(func() error { return nil }))
	_ = b.Do(func() error { return errUpstream })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := newTestBreaker(1)
	badRequest := &httpclient.StatusError{StatusCode: 400}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return badRequest }), badRequest)
	}
	_ = b.Do(func() error { return context.Canceled })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := newTestBreaker(1)
	_ = b.Do(func() error { return errUpstream })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(2 * testOpenTimeout)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		_ = b.Do(func() error { return errUpstream })
	}
	time.Sleep(2 * testOpenTimeout)

	_ = b.Do(func() error { return errUpstream })
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenAdmitsOneRequest(t *testing.T) {
	b := newTestBreaker(1)
	_ = b.Do(func() error { return errUpstream })
	time.Sleep(2 * testOpenTimeout)

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrCircuitOpen)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestIsUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"bad request", &httpclient.StatusError{StatusCode: 400}, false},
		{"throttled", &httpclient.StatusError{StatusCode: 429}, true},
		{"server", errUpstream, true},
		{"transport", errors.New("dial tcp: connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUpstreamFailure(tt.err))
		})
	}
}

type failingClassifier struct{ calls int }

func (f *failingClassifier) Name() string { return "fake" }

func (f *failingClassifier) Classify(context.Context, string) ([]llm.Label, error) {
	f.calls++
	return nil, errUpstream
}

func TestWrapClassifier(t *testing.T) {
	inner := &failingClassifier{}
	c := WrapClassifier(inner, &Config{MaxFailures: 1, OpenTimeout: time.Hour})

	_, err := c.Classify(context.Background(), "x")
	assert.Error(t, err)
	_, err = c.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "fake", c.Name())
}
