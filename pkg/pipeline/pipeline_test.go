package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/logsink-io/logsink/pkg/record"
)

// captureSink records everything it is sent and can be told to fail its
// first n Send calls.
type captureSink struct {
	mu        sync.Mutex
	sent      []record.Record
	calls     int
	failFirst int
}

func (s *captureSink) Send(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFirst {
		return errors.New("transient backend failure")
	}
	s.sent = append(s.sent, rec)
	return nil
}

func (s *captureSink) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *captureSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *captureSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, r := range s.sent {
		out[i] = r.Message
	}
	return out
}

func testRecord(msg string) record.Record {
	rec := record.New("ERROR", "pipeline_test")
	rec.Message = msg
	return rec
}

func testRecords(n int) []record.Record {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = testRecord(fmt.Sprintf("r%d", i+1))
	}
	return recs
}

// Every record offered within capacity is delivered exactly once, in
// submission order.
func TestPipeline_DeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &captureSink{}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 4, FlushInterval: time.Hour})
	go p.Run(ctx)

	for _, rec := range testRecords(4) {
		require.True(t, p.Offer(rec))
	}

	assert.Eventually(t, func() bool { return s.sentCount() == 4 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, s.messages())
	assert.Equal(t, 4, s.callCount())
}

// Once the queue is at capacity the next Offer is rejected, the drop counter
// increments by exactly one per rejection, and seen == enqueued + dropped.
func TestPipeline_Overflow(t *testing.T) {
	// No consumer is started, so the queue can never drain.
	p := New(&captureSink{}, Config{QueueCapacity: 16, BatchSize: 4, FlushInterval: time.Hour})

	for i := 0; i < 16; i++ {
		assert.True(t, p.Offer(testRecord(fmt.Sprintf("r%d", i))))
	}
	assert.False(t, p.Offer(testRecord("overflow")))

	c := p.Counters()
	assert.Equal(t, uint64(17), c.Seen)
	assert.Equal(t, uint64(16), c.Enqueued)
	assert.Equal(t, uint64(1), c.Dropped)
}

// A burst of BatchSize records is flushed by the size trigger without
// waiting for the interval.
func TestPipeline_SizeTriggeredFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testClock := clock.NewFakeClock(time.Now())
	s := &captureSink{}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 4, FlushInterval: time.Hour})
	p.clock = testClock
	go p.Run(ctx)

	for _, rec := range testRecords(6) {
		require.True(t, p.Offer(rec))
	}

	// The clock never advances, so only the first 4 records (one full
	// batch) can have been delivered.
	assert.Eventually(t, func() bool { return s.sentCount() == 4 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 4, s.sentCount())
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, s.messages())
}

// Fewer than BatchSize records are flushed when the interval elapses, and an
// empty interval tick delivers nothing.
func TestPipeline_TimeTriggeredFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testClock := clock.NewFakeClock(time.Now())
	s := &captureSink{}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 8, FlushInterval: time.Second})
	p.clock = testClock
	go p.Run(ctx)

	for _, rec := range testRecords(3) {
		require.True(t, p.Offer(rec))
	}
	// Give the consumer a chance to drain the queue into its batch before
	// firing the timer.
	time.Sleep(100 * time.Millisecond)
	testClock.Step(time.Second)

	assert.Eventually(t, func() bool { return s.sentCount() == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2", "r3"}, s.messages())

	// An interval with an empty batch must not touch the sink.
	time.Sleep(100 * time.Millisecond)
	testClock.Step(time.Second)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, s.callCount())
}

// A sink that fails its first two calls sees the whole batch retried with
// doubling backoff, and nothing is cleared before full success.
func TestPipeline_RetryWithBackoff(t *testing.T) {
	testClock := clock.NewFakeClock(time.Now())
	s := &captureSink{failFirst: 2}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 4, FlushInterval: time.Hour})
	p.clock = testClock

	done := make(chan error)
	go func() {
		done <- p.deliver(context.Background(), testRecords(2))
	}()

	// First pass fails on its first Send; deliver is now waiting out the
	// initial 100ms backoff.
	assert.Eventually(t, func() bool { return s.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, testClock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.sentCount())

	// Half the backoff is not enough.
	testClock.Step(50 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, s.callCount())

	// Completing the first backoff triggers the second pass, which fails
	// again; the backoff doubles to 200ms.
	testClock.Step(50 * time.Millisecond)
	assert.Eventually(t, func() bool { return s.callCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, testClock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.sentCount())

	testClock.Step(100 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, s.callCount())

	// Completing the doubled backoff lets the third pass run; it succeeds
	// and delivers the full batch in order.
	testClock.Step(100 * time.Millisecond)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"r1", "r2"}, s.messages())
}

// End-to-end: four records through a small config are delivered in order by
// the size trigger, with counters matching.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &captureSink{}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 4, FlushInterval: 50 * time.Millisecond})
	go p.Run(ctx)

	for _, rec := range testRecords(4) {
		require.True(t, p.Offer(rec))
	}

	assert.Eventually(t, func() bool { return s.sentCount() == 4 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, s.messages())

	c := p.Counters()
	assert.Equal(t, uint64(4), c.Seen)
	assert.Equal(t, uint64(4), c.Enqueued)
	assert.Equal(t, uint64(0), c.Dropped)
}

// Offer remains safe and accurate under heavy concurrent producers.
func TestPipeline_ConcurrentOffer(t *testing.T) {
	p := New(&captureSink{}, Config{QueueCapacity: 64, BatchSize: 4, FlushInterval: time.Hour})

	const producers = 8
	const perProducer = 100

	wg := sync.WaitGroup{}
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				p.Offer(testRecord("m"))
			}
		}()
	}
	wg.Wait()

	c := p.Counters()
	assert.Equal(t, uint64(producers*perProducer), c.Seen)
	assert.Equal(t, c.Seen, c.Enqueued+c.Dropped)
	assert.Equal(t, uint64(64), c.Enqueued)
}

// Start is idempotent: a second call must not spawn a second consumer.
func TestPipeline_StartOnce(t *testing.T) {
	s := &captureSink{}
	p := New(s, Config{QueueCapacity: 16, BatchSize: 1, FlushInterval: time.Hour})
	p.Start()
	p.Start()

	require.True(t, p.Offer(testRecord("only")))
	assert.Eventually(t, func() bool { return s.sentCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, s.callCount())
}
