package watcher

import (
	"sync"
	"time"
)

// ChangeEvent is a local file change after debouncing.
type ChangeEvent struct {
	Path string
	Op   EventOp
}

// EventOp represents the type of file system operation.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects file system events and emits batched events after a quiet period.
// Multiple events for the same path within the window collapse into one that keeps
// the position of the first event and the operation of the last.
type Debouncer struct {
	interval time.Duration
	events   map[string]int // path -> index in order
	order    []ChangeEvent
	mu       sync.Mutex
	timer    *time.Timer
	output   chan []ChangeEvent
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]int),
		output:   make(chan []ChangeEvent, 16),
	}
}

// Output returns the channel that receives batched events in arrival order.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// Add adds an event to the debounce window.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i, ok := d.events[path]; ok {
		d.order[i].Op = op
	} else {
		d.events[path] = len(d.order)
		d.order = append(d.order, ChangeEvent{Path: path, Op: op})
	}

	// Reset the timer each time a new event arrives
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// flush sends the accumulated events to the output channel and resets the buffer.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.order) == 0 {
		return
	}

	batch := d.order
	d.order = nil
	d.events = make(map[string]int)
	d.output <- batch
}
