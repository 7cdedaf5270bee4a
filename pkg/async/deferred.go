package async

import "sync"

// Deferred buffers tasks until Drain and then hands every task, old and new,
// to the drain handler in submission order.
type Deferred[T any] struct {
	mu      sync.Mutex
	pending []T
	handler func(T)
	running bool
	detach  bool
}

// NewDeferred creates a queue, optionally pre-filled with tasks that were
// submitted before the queue existed.
func NewDeferred[T any](initial ...T) *Deferred[T] {
	return &Deferred[T]{pending: append([]T(nil), initial...)}
}

// Submit queues task, or hands it to the handler right away when the queue
// has already been drained.
func (d *Deferred[T]) Submit(task T) {
	d.mu.Lock()
	d.pending = append(d.pending, task)
	if d.handler == nil || d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	detach := d.detach
	d.mu.Unlock()
	if detach {
		go d.flush()
		return
	}
	d.flush()
}

// Drain installs handler and runs every buffered task through it. It can be
// called only once.
func (d *Deferred[T]) Drain(handler func(T)) error {
	return d.drain(handler, false)
}

// Start is Drain on a background goroutine. Neither Start nor later Submit
// calls wait for the handler; tasks still run one at a time in submission
// order.
func (d *Deferred[T]) Start(handler func(T)) error {
	return d.drain(handler, true)
}

func (d *Deferred[T]) drain(handler func(T), detach bool) error {
	if handler == nil {
		return nil
	}
	d.mu.Lock()
	if d.handler != nil {
		d.mu.Unlock()
		return ErrAlreadyDrained
	}
	d.handler = handler
	d.detach = detach
	d.running = true
	d.mu.Unlock()
	if detach {
		go d.flush()
		return nil
	}
	d.flush()
	return nil
}

// Drained reports whether Drain has been called.
func (d *Deferred[T]) Drained() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler != nil
}

// Len returns the number of tasks waiting for Drain.
func (d *Deferred[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// flush runs pending tasks one at a time. Tasks submitted by a handler while
// flushing are appended and picked up by the same loop, which keeps order.
func (d *Deferred[T]) flush() {
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		task := d.pending[0]
		d.pending = d.pending[1:]
		handler := d.handler
		d.mu.Unlock()

		handler(task)
	}
}
