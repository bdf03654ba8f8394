package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Keep reports event types that must not be dropped. They wait for
	// buffer space even when DropIfFull is set.
	Keep func(eventType string) bool
}

// envelope is one queue slot: an event, or a flush barrier when ack is set.
type envelope struct {
	event Event
	ack   chan struct{}
}

// Dispatcher forwards audit events to a sink on its own goroutine so the
// scheduler tick and verification paths never wait on sink I/O.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan envelope
	done chan struct{}
	wg   sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64

	dropMu     sync.Mutex
	droppedFor map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled; a
// nil dispatcher accepts every call and does nothing.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:        cfg,
		sink:       sink,
		ch:         make(chan envelope, cfg.BufferSize),
		done:       make(chan struct{}),
		droppedFor: make(map[string]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case env := <-d.ch:
			d.handle(env)
		case <-d.done:
			// Drain what was queued before Close.
			for {
				select {
				case env := <-d.ch:
					d.handle(env)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(env envelope) {
	if env.ack != nil {
		close(env.ack)
		return
	}
	defer func() {
		if recover() != nil {
			d.panics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), env.event)
	d.delivered.Add(1)
}

// Emit queues event for delivery. With DropIfFull a full buffer drops the
// event unless Keep claims its type; otherwise Emit waits until the event is
// queued, ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	env := envelope{event: event}

	if d.cfg.DropIfFull && (d.cfg.Keep == nil || !d.cfg.Keep(event.EventType)) {
		select {
		case d.ch <- env:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- env:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.droppedFor[eventType]++
	d.dropMu.Unlock()
}

// Flush waits until every event queued before the call has reached the sink.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ack := make(chan struct{})
	select {
	case d.ch <- envelope{ack: ack}:
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// worker to exit. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType breaks Dropped down by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for k, v := range d.droppedFor {
		out[k] = v
	}
	return out
}

// Delivered reports how many events reached the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// SinkPanics reports how many sink calls panicked. Such events count as
// neither delivered nor dropped.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}
