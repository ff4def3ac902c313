package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"price-relay/src/logger"
	"price-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream fails immediately unless block is set, in which case it stays
// connected until ctx ends.
type fakeUpstream struct {
	block bool
	state atomic.Int32

	mu    sync.Mutex
	calls []time.Time
}

func (f *fakeUpstream) Run(ctx context.Context) error {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.mu.Unlock()

	if f.block {
		f.state.Store(int32(models.Connected))
		<-ctx.Done()
		f.state.Store(int32(models.Disconnected))
		return nil
	}
	return errors.New("connection refused")
}

func (f *fakeUpstream) State() models.UpstreamState {
	return models.UpstreamState(f.state.Load())
}

func (f *fakeUpstream) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func runSupervisor(t *testing.T, s *Supervisor) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Run(ctx))
	}()
	return cancel, done
}

func TestSupervisorOneAttemptPerDelay(t *testing.T) {
	up := &fakeUpstream{}
	delay := 60 * time.Millisecond
	s := NewSupervisor(up, delay, logger.NewNopLogger())

	cancel, done := runSupervisor(t, s)
	time.Sleep(330 * time.Millisecond)
	cancel()
	<-done

	calls := up.callTimes()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.LessOrEqual(t, len(calls), 6)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), delay)
	}
	assert.Equal(t, int64(len(calls)), s.Attempts())
}

func TestSupervisorStaysWhileConnected(t *testing.T) {
	up := &fakeUpstream{block: true}
	s := NewSupervisor(up, 10*time.Millisecond, logger.NewNopLogger())

	cancel, done := runSupervisor(t, s)
	require.Eventually(t, func() bool { return s.State() == models.Connected }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.False(t, s.Reconnect())
	cancel()
	<-done
	assert.Len(t, up.callTimes(), 1)
}

func TestSupervisorReconnectSkipsWait(t *testing.T) {
	up := &fakeUpstream{}
	s := NewSupervisor(up, time.Hour, logger.NewNopLogger())

	cancel, done := runSupervisor(t, s)
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return s.Attempts() == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Reconnect())
	require.Eventually(t, func() bool { return s.Attempts() == 2 }, time.Second, time.Millisecond)
}

func TestSupervisorStopsDuringWait(t *testing.T) {
	up := &fakeUpstream{}
	s := NewSupervisor(up, time.Hour, logger.NewNopLogger())

	cancel, done := runSupervisor(t, s)
	require.Eventually(t, func() bool { return s.Attempts() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestNewSupervisorDefaultDelay(t *testing.T) {
	s := NewSupervisor(&fakeUpstream{}, 0, logger.NewNopLogger())
	assert.Equal(t, 5*time.Second, s.Delay)
}
