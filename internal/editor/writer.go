package editor

import (
	"context"
	"sync"

	"pocketpages/internal/domain"
)

// saveRequest is one queued write. A nil page is a barrier: it only
// reports that every write queued before it has been attempted.
type saveRequest struct {
	page *domain.Page
	done chan error // optional, buffered
}

// saveQueue persists pages on a single background goroutine, in the order
// they were queued. Enqueue never blocks the caller.
type saveQueue struct {
	store  domain.PageStore
	onDone func(p *domain.Page, err error)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []saveRequest
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func newSaveQueue(store domain.PageStore, onDone func(*domain.Page, error)) *saveQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &saveQueue{
		store:   store,
		onDone:  onDone,
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// enqueue schedules a write of p. When done is non-nil it receives the result.
func (q *saveQueue) enqueue(p *domain.Page, done chan error) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if done != nil {
			done <- ErrClosed
		}
		return false
	}
	q.pending = append(q.pending, saveRequest{page: p, done: done})
	q.mu.Unlock()

	q.signal()
	return true
}

func (q *saveQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *saveQueue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		req := q.pending[0]
		q.pending[0] = saveRequest{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		var err error
		if req.page != nil {
			err = q.store.SavePage(q.ctx, req.page)
			if q.onDone != nil {
				q.onDone(req.page, err)
			}
		}
		if req.done != nil {
			req.done <- err
		}
	}
}

// close stops accepting writes and waits for the queue to drain. If ctx
// expires first, in-flight and remaining writes are cancelled.
func (q *saveQueue) close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()

	select {
	case <-q.stopped:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}
