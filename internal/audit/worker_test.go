package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerDeliversInOrder(t *testing.T) {
	sink := NewMemory()
	w := NewWorker(sink, 16, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Emit(ctx, Event{ID: string(rune('a' + i)), Action: ActionNameRegistered}))
	}

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 5
	}, time.Second, 5*time.Millisecond)

	events := sink.Events()
	for i, ev := range events {
		require.Equal(t, string(rune('a'+i)), ev.ID)
	}

	cancel()
	require.NoError(t, w.Close())
}

func TestWorkerFlushesOnShutdown(t *testing.T) {
	sink := NewMemory()
	w := NewWorker(sink, 16, nil)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Emit(ctx, Event{Action: ActionNameRenewed}))
	}

	go w.Run(ctx)
	cancel()
	require.NoError(t, w.Close())
	require.Len(t, sink.Events(), 10)
}

func TestWorkerDropsWhenFull(t *testing.T) {
	sink := NewMemory()
	w := NewWorker(sink, 2, nil)

	// Run not started: inbox fills and overflow is dropped, never blocking.
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Emit(ctx, Event{Action: ActionProfileUpdated}))
	}
	require.Equal(t, int64(3), w.Dropped())
}
