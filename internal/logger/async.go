package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records on shutdown.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// entry pairs a record with the handler that owns its accumulated attrs and
// groups, so a record logged through a With() clone keeps them when a worker
// picks it up.
type entry struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler decouples log emission from log I/O: Handle enqueues and
// returns, workers write. When the queue is full the record is dropped
// rather than blocking the request path.
type AsyncHandler struct {
	next  slog.Handler
	state *asyncState
}

// asyncState is shared by all With() clones of one AsyncHandler.
type asyncState struct {
	queue   chan entry
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewAsyncHandler starts workers goroutines draining a queue of queueLen
// records in front of next.
func NewAsyncHandler(next slog.Handler, queueLen, workers int) *AsyncHandler {
	st := &asyncState{queue: make(chan entry, queueLen)}
	for range workers {
		st.wg.Add(1)
		go func() {
			defer st.wg.Done()
			for e := range st.queue {
				_ = e.h.Handle(context.Background(), e.rec)
			}
		}()
	}
	return &AsyncHandler{next: next, state: st}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error {
	select {
	case h.state.queue <- entry{h: h.next, rec: rec}:
	default:
		h.state.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), state: h.state}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), state: h.state}
}

// Dropped returns how many records were discarded on queue overflow.
func (h *AsyncHandler) Dropped() int64 {
	return h.state.dropped.Load()
}

// Close stops accepting records and waits for the workers to finish writing.
func (h *AsyncHandler) Close() {
	close(h.state.queue)
	h.state.wg.Wait()
}
