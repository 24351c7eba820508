package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	evt := sampleEvent(StageCycleStart)
	hub.Emit(evt)
	hub.Emit(evt)
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageCycleStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageCycleStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains any buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	evt := sampleEvent(StageCycleStart)
	hub.Emit(evt)

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]Event(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func sampleEvent(stage Stage) Event {
	return Event{
		Source: "Loker.id",
		TS:     time.Now(),
		Stage:  stage,
		Page:   1,
		Key:    "Loker.id/1",
	}
}

func TestHubDropsInvalidEventsAndStampsTime(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 100, MaxBatchWait: time.Minute}, sink)

	hub.Emit(Event{Stage: StageCycleStart})
	hub.Emit(Event{Source: "Glints", Stage: StagePageFetched})
	hub.Emit(Event{Source: "Glints", Stage: StageCycleDone})

	require.NoError(t, hub.Close(context.Background()))
	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	require.Equal(t, StageCycleDone, batches[0][0].Stage)
	require.False(t, batches[0][0].TS.IsZero())
}

func TestHubCountsDroppedEvents(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:         Config{},
		events:      make(chan Event),
		logger:      zap.NewNop(),
		dropLimiter: rateLimiter{interval: time.Hour},
	}
	hub.Emit(sampleEvent(StageCycleStart))
	hub.Emit(sampleEvent(StageCycleDone))
	require.Equal(t, int64(2), hub.Dropped())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{name: "cycle", evt: Event{Source: "a", TS: now, Stage: StageCycleDone}},
		{name: "page", evt: Event{Source: "a", TS: now, Stage: StagePageFetched, Page: 2}},
		{name: "record", evt: Event{Source: "a", TS: now, Stage: StageRecordStored, Key: "a/1"}},
		{name: "no source", evt: Event{TS: now, Stage: StageCycleDone}, wantErr: true},
		{name: "no page", evt: Event{Source: "a", TS: now, Stage: StagePageFailed}, wantErr: true},
		{name: "no key", evt: Event{Source: "a", TS: now, Stage: StageRecordSkipped}, wantErr: true},
		{name: "unknown stage", evt: Event{Source: "a", TS: now, Stage: "NOPE"}, wantErr: true},
		{name: "negative dur", evt: Event{Source: "a", TS: now, Stage: StageCycleDone, Dur: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.evt.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
