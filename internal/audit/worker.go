package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Worker decouples request handling from the downstream sink with a bounded
// inbox. Emit never blocks the caller: when the inbox is full the event is
// dropped and counted, because a mutation must not wait on telemetry.
type Worker struct {
	sink   Publisher
	inbox  chan Event
	logger *slog.Logger

	once sync.Once
	done chan struct{}

	mu      sync.Mutex
	dropped int64
}

func NewWorker(sink Publisher, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		sink:   sink,
		inbox:  make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run drains the inbox until ctx is cancelled, then flushes what remains.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.inbox:
			w.publish(event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.publish(event)
		default:
			return
		}
	}
}

func (w *Worker) publish(event Event) {
	if err := w.sink.Emit(context.Background(), event); err != nil && w.logger != nil {
		w.logger.Error("audit sink emit failed", "action", event.Action, "error", err)
	}
}

func (w *Worker) Emit(ctx context.Context, event Event) error {
	select {
	case w.inbox <- event:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		if w.logger != nil {
			w.logger.WarnContext(ctx, "audit inbox full, event dropped", "action", event.Action)
		}
	}
	return nil
}

// Dropped reports how many events were discarded due to a full inbox.
func (w *Worker) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close waits for Run to finish flushing, then closes the sink.
func (w *Worker) Close() error {
	<-w.done
	return w.sink.Close()
}
