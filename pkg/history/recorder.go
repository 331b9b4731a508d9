package history

import (
	"go.uber.org/zap"
)

// Recorder queues executed queries for persistence.
type Recorder interface {
	// Record queues one entry. It never blocks the caller.
	Record(e Entry)
}

// AsyncRecorder writes history entries off the query path.
type AsyncRecorder struct {
	store  *Store
	logger *zap.Logger
	queue  chan Entry
	done   chan struct{}
}

// NewAsyncRecorder creates a recorder backed by the given store.
// queueSize controls the buffer size - if full, entries are dropped with a warning.
func NewAsyncRecorder(store *Store, logger *zap.Logger, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 100
	}

	r := &AsyncRecorder{
		store:  store,
		logger: logger.Named("query-history"),
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}

	go r.processQueue()

	return r
}

// Record queues an entry for async persistence.
// Non-blocking - if the queue is full, the entry is dropped with a warning.
func (r *AsyncRecorder) Record(e Entry) {
	select {
	case r.queue <- e:
		// Queued successfully
	default:
		r.logger.Warn("Query history queue full, dropping entry",
			zap.String("language", string(e.Language)))
	}
}

// Close stops the recorder and waits for queued entries to be saved.
func (r *AsyncRecorder) Close() {
	close(r.queue)
	<-r.done
}

// processQueue drains queued entries into the store.
func (r *AsyncRecorder) processQueue() {
	defer close(r.done)

	for e := range r.queue {
		if err := r.store.Record(e); err != nil {
			r.logger.Error("Failed to record query history entry",
				zap.String("language", string(e.Language)),
				zap.Error(err))
		}
	}
}

var _ Recorder = (*AsyncRecorder)(nil)
