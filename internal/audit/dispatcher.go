package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Options tunes a Dispatcher. Buffer is the queue depth; values below one
// are raised to one. Lossy makes Emit non-blocking: a full queue drops the
// event and bumps the drop counter.
type Options struct {
	Buffer int
	Lossy  bool
}

// Dispatcher moves events off the request path. A single worker goroutine
// delivers queued events to the sink in arrival order.
//
// A nil *Dispatcher is valid and discards everything, which is how the
// engine represents disabled auditing.
type Dispatcher struct {
	sink  Sink
	lossy bool
	queue chan Event

	// mu serialises Emit against Close so nothing is queued after the
	// worker has started its final drain.
	mu     sync.RWMutex
	closed bool

	stop     chan struct{}
	finished chan struct{}
	once     sync.Once

	dropped atomic.Uint64
}

// NewDispatcher starts the worker. A nil sink is replaced with NoOpSink.
func NewDispatcher(sink Sink, opts Options) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}

	d := &Dispatcher{
		sink:     sink,
		lossy:    opts.Lossy,
		queue:    make(chan Event, opts.Buffer),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.finished)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver isolates the worker from a panicking sink. The event is counted
// as dropped and the worker keeps running.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues ev. In lossy mode it returns immediately; otherwise it waits
// for queue space or ctx cancellation. Events emitted after Close are
// ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.lossy {
		select {
		case d.queue <- ev:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- ev:
	case <-ctx.Done():
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// worker to exit. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.stop)
		<-d.finished
	})
}

// Dropped counts events lost to a full lossy queue or a panicking sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
