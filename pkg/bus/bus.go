// Package bus multiplexes every widget's update stream, the display
// server's native events, and a periodic tick into one totally ordered
// sequence consumed by the engine loop. Per-widget updates are coalesced:
// each widget owns a single pending slot, and a newer update replaces an
// unconsumed older one, so the bus never falls behind a fast-updating
// widget while still always delivering its latest state.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Event is the closed set of things the engine loop reacts to.
type Event interface{ event() }

// WidgetUpdated carries a widget's freshly shaped content. Exactly one of
// these is applied atomically by the composer per loop iteration.
type WidgetUpdated struct {
	ID      string
	Runs    []render.Run
	Width   int
	Actions map[render.Button]string
	Time    time.Time
}

// Tick fires periodically to coalesce bursts and drive staleness checks.
type Tick struct {
	Time time.Time
}

// Expose reports a region of the bar uncovered by the display server that
// must be repainted from the last frame.
type Expose struct {
	Area render.Rect
}

// ButtonPress is a pointer button press in bar-local coordinates.
type ButtonPress struct {
	X, Y   int
	Button render.Button
	Time   time.Time
}

// Resize reports a geometry change negotiated with the window manager.
type Resize struct {
	Width, Height int
}

// DisplayClosed signals that the display-server connection is gone. This
// is fatal: the engine tears down when it sees one.
type DisplayClosed struct {
	Err error
}

func (WidgetUpdated) event() {}
func (Tick) event()          {}
func (Expose) event()        {}
func (ButtonPress) event()   {}
func (Resize) event()        {}
func (DisplayClosed) event() {}

// slot holds at most one pending update for a widget. queued tracks
// whether an index for this slot is sitting in the notify queue.
type slot struct {
	mu     sync.Mutex
	queued bool
	update WidgetUpdated
}

// Bus is the single-consumer event multiplexer. Publish and Inject may be
// called from any goroutine; Next and TryNext must be called from the one
// consuming loop.
type Bus struct {
	index  map[string]int
	slots  []*slot
	notify chan int

	external chan Event
	ticker   *time.Ticker
}

// externalBuffer bounds the display-event queue. The consumer drains far
// faster than an X server produces, so the pump only blocks under
// pathological load instead of dropping input.
const externalBuffer = 64

// New creates a bus for the given widget IDs. A positive tickEvery starts
// the periodic tick. Duplicate IDs are rejected.
func New(ids []string, tickEvery time.Duration) (*Bus, error) {
	b := &Bus{
		index:    make(map[string]int, len(ids)),
		slots:    make([]*slot, len(ids)),
		notify:   make(chan int, len(ids)),
		external: make(chan Event, externalBuffer),
	}
	for i, id := range ids {
		if _, dup := b.index[id]; dup {
			return nil, fmt.Errorf("duplicate widget id %q", id)
		}
		b.index[id] = i
		b.slots[i] = &slot{}
	}
	if tickEvery > 0 {
		b.ticker = time.NewTicker(tickEvery)
	}
	return b, nil
}

// Publish stores u as the widget's pending update, replacing any
// unconsumed previous one. It never blocks: the notify queue holds at most
// one entry per widget. Updates for unknown widget IDs are rejected.
func (b *Bus) Publish(u WidgetUpdated) error {
	i, ok := b.index[u.ID]
	if !ok {
		return fmt.Errorf("unknown widget id %q", u.ID)
	}
	s := b.slots[i]
	s.mu.Lock()
	s.update = u
	if s.queued {
		s.mu.Unlock()
		return nil
	}
	s.queued = true
	s.mu.Unlock()
	b.notify <- i
	return nil
}

// Inject queues a display-server event. It blocks only if the consumer has
// fallen more than externalBuffer events behind.
func (b *Bus) Inject(ev Event) {
	b.external <- ev
}

// take drains the pending slot for widget index i.
func (b *Bus) take(i int) WidgetUpdated {
	s := b.slots[i]
	s.mu.Lock()
	u := s.update
	s.queued = false
	s.mu.Unlock()
	return u
}

// Next blocks until an event is available or ctx is done. Widget updates
// are delivered FIFO across widgets; no source class can starve another
// because all classes share one select.
func (b *Bus) Next(ctx context.Context) (Event, error) {
	var tickC <-chan time.Time
	if b.ticker != nil {
		tickC = b.ticker.C
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case i := <-b.notify:
		return b.take(i), nil
	case ev := <-b.external:
		return ev, nil
	case t := <-tickC:
		return Tick{Time: t}, nil
	}
}

// TryNext returns an immediately available widget update or display event
// without blocking. The engine uses it to batch a burst of updates into a
// single repaint. Ticks are never returned here.
func (b *Bus) TryNext() (Event, bool) {
	select {
	case i := <-b.notify:
		return b.take(i), true
	default:
	}
	select {
	case ev := <-b.external:
		return ev, true
	default:
	}
	return nil, false
}

// Close stops the periodic tick. Pending events remain drainable.
func (b *Bus) Close() {
	if b.ticker != nil {
		b.ticker.Stop()
	}
}
