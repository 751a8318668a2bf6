package selector

import (
	"context"
	"fmt"
	"sync"
)

// DefaultQueueDepth is how many prompts may wait behind the one on screen.
const DefaultQueueDepth = 64

// Queue serializes prompts onto one terminal. Requests are shown one at a
// time in the order they arrive.
type Queue struct {
	selector Selector
	requests chan promptRequest
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

type promptRequest struct {
	ctx        context.Context
	filename   string
	candidates []string
	reply      chan promptReply
}

type promptReply struct {
	path string
	err  error
}

// NewQueue starts the goroutine that owns the terminal.
func NewQueue(selector Selector, depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	q := &Queue{
		selector: selector,
		requests: make(chan promptRequest, depth),
		done:     make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Select waits for the terminal, then delegates to the wrapped Selector.
func (q *Queue) Select(ctx context.Context, filename string, candidates []string) (string, error) {
	req := promptRequest{
		ctx:        ctx,
		filename:   filename,
		candidates: candidates,
		reply:      make(chan promptReply, 1),
	}

	select {
	case q.requests <- req:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-q.done:
		return "", fmt.Errorf("%w: prompt queue closed", ErrCancelled)
	}

	select {
	case r := <-req.reply:
		return r.path, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-q.done:
		return "", fmt.Errorf("%w: prompt queue closed", ErrCancelled)
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case req := <-q.requests:
			if err := req.ctx.Err(); err != nil {
				req.reply <- promptReply{err: fmt.Errorf("%w: %w", ErrCancelled, err)}
				continue
			}
			path, err := q.selector.Select(req.ctx, req.filename, req.candidates)
			req.reply <- promptReply{path: path, err: err}
		}
	}
}

// Close stops accepting prompts and waits for the one on screen to finish.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}
