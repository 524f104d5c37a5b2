package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// TypeStats records what became of the events of one type.
type TypeStats struct {
	// Delivered events reached the sink.
	Delivered uint64
	// Dropped events were discarded because the buffer was full.
	Dropped uint64
	// Abandoned events were given up on because the producer's context ended
	// or the dispatcher closed while Emit was waiting for room.
	Abandoned uint64
}

type typeCounters struct {
	delivered atomic.Uint64
	dropped   atomic.Uint64
	abandoned atomic.Uint64
}

// Dispatcher asynchronously forwards audit events to a sink and keeps
// per-type delivery accounting. A nil *Dispatcher accepts and discards
// events.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	now       func() time.Time

	// byType maps an event type to its *typeCounters.
	byType sync.Map
}

// NewDispatcher returns nil when auditing is disabled.
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
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
		now:  time.Now,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	d.sink.Emit(context.Background(), event)
	d.counters(event.EventType).delivered.Add(1)
}

func (d *Dispatcher) counters(eventType string) *typeCounters {
	if c, ok := d.byType.Load(eventType); ok {
		return c.(*typeCounters)
	}
	c, _ := d.byType.LoadOrStore(eventType, &typeCounters{})
	return c.(*typeCounters)
}

// Emit queues event. A zero Timestamp is stamped with the current time. With
// DropIfFull a full buffer drops the event and bumps Dropped; otherwise Emit
// blocks until there is room, ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
			d.counters(event.EventType).abandoned.Add(1)
		default:
			d.dropped.Add(1)
			d.counters(event.EventType).dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.counters(event.EventType).abandoned.Add(1)
	case <-d.done:
		d.counters(event.EventType).abandoned.Add(1)
	}
}

// Close drains buffered events into the sink and stops the worker.
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

// Dropped returns how many events were discarded on a full buffer, across
// all types.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Stats returns per-type accounting for every event type seen so far.
func (d *Dispatcher) Stats() map[string]TypeStats {
	out := map[string]TypeStats{}
	if d == nil {
		return out
	}
	d.byType.Range(func(k, v any) bool {
		c := v.(*typeCounters)
		out[k.(string)] = TypeStats{
			Delivered: c.delivered.Load(),
			Dropped:   c.dropped.Load(),
			Abandoned: c.abandoned.Load(),
		}
		return true
	})
	return out
}
