package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/clock"
)

// flushingSink wraps captureSink with an explicit Flush that can fail.
type flushingSink struct {
	captureSink
	flushCalls     int
	failFirstFlush int
}

func (s *flushingSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushCalls++
	if s.flushCalls <= s.failFirstFlush {
		return errors.New("flush failed")
	}
	return nil
}

func TestDeliver_FlushRunsAfterSuccessfulPass(t *testing.T) {
	s := &flushingSink{}
	p := New(s, Config{})

	require.NoError(t, p.deliver(context.Background(), testRecords(3)))
	assert.Equal(t, 3, s.sentCount())
	assert.Equal(t, 1, s.flushCalls)
}

func TestDeliver_FlushFailureFailsThePass(t *testing.T) {
	testClock := clock.NewFakeClock(time.Now())
	s := &flushingSink{failFirstFlush: 1}
	p := New(s, Config{})
	p.clock = testClock

	done := make(chan error)
	go func() {
		done <- p.deliver(context.Background(), testRecords(2))
	}()

	// The first pass sends both records but fails at flush time, so deliver
	// must back off and resend the whole batch.
	assert.Eventually(t, func() bool { return s.flushCallCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, testClock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	testClock.Step(100 * time.Millisecond)

	require.NoError(t, <-done)
	assert.Equal(t, 4, s.callCount())
	assert.Equal(t, 2, s.flushCallCount())
}

func (s *flushingSink) flushCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushCalls
}

func TestDeliver_CancelledContextAbandonsBatch(t *testing.T) {
	testClock := clock.NewFakeClock(time.Now())
	s := &captureSink{failFirst: 1000}
	p := New(s, Config{})
	p.clock = testClock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- p.deliver(ctx, testRecords(1))
	}()

	assert.Eventually(t, func() bool { return s.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, s.sentCount())
}
