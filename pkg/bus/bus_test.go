package bus

import (
	"context"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

func newTestBus(t *testing.T, ids ...string) *Bus {
	t.Helper()
	b, err := New(ids, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func update(id string, width int) WidgetUpdated {
	return WidgetUpdated{ID: id, Width: width, Time: time.Now()}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	if _, err := New([]string{"a", "a"}, 0); err == nil {
		t.Fatal("duplicate widget ids should be rejected")
	}
}

func TestPublishUnknownWidget(t *testing.T) {
	b := newTestBus(t, "a")
	if err := b.Publish(update("ghost", 1)); err == nil {
		t.Fatal("publish for unknown widget should fail")
	}
}

func TestCoalescingKeepsLatest(t *testing.T) {
	b := newTestBus(t, "w")

	// Three updates land before the consumer drains: only the last
	// survives, delivered exactly once.
	for i := 1; i <= 3; i++ {
		if err := b.Publish(update("w", i)); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	u, ok := ev.(WidgetUpdated)
	if !ok || u.Width != 3 {
		t.Fatalf("got %+v, want coalesced update with width 3", ev)
	}

	if ev, ok := b.TryNext(); ok {
		t.Fatalf("coalesced update delivered twice: %+v", ev)
	}
}

func TestDeliveryOrderWithoutCoalescing(t *testing.T) {
	b := newTestBus(t, "w")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Consuming between publishes must observe every value in emission
	// order.
	for i := 1; i <= 3; i++ {
		if err := b.Publish(update("w", i)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		ev, err := b.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if u := ev.(WidgetUpdated); u.Width != i {
			t.Fatalf("step %d delivered width %d", i, u.Width)
		}
	}
}

func TestFIFOAcrossWidgets(t *testing.T) {
	b := newTestBus(t, "a", "b", "c")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, id := range []string{"c", "a", "b"} {
		if err := b.Publish(update(id, 1)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	var got []string
	for i := 0; i < 3; i++ {
		ev, err := b.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, ev.(WidgetUpdated).ID)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", got, want)
		}
	}
}

func TestInjectDeliversDisplayEvents(t *testing.T) {
	b := newTestBus(t, "w")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	b.Inject(ButtonPress{X: 5, Y: 5, Button: render.ButtonLeft})
	ev, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	press, ok := ev.(ButtonPress)
	if !ok || press.X != 5 || press.Button != render.ButtonLeft {
		t.Fatalf("got %+v, want injected button press", ev)
	}
}

func TestTick(t *testing.T) {
	b, err := New([]string{"w"}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, ok := ev.(Tick); !ok {
		t.Fatalf("got %T, want Tick", ev)
	}
}

func TestNextHonorsCancellation(t *testing.T) {
	b := newTestBus(t, "w")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Next(ctx); err == nil {
		t.Fatal("Next on canceled context should fail")
	}
}

func TestTryNextEmpty(t *testing.T) {
	b := newTestBus(t, "w")
	if ev, ok := b.TryNext(); ok {
		t.Fatalf("TryNext on empty bus returned %+v", ev)
	}
}

func TestConcurrentPublishers(t *testing.T) {
	b := newTestBus(t, "a", "b")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = b.Publish(update("a", i))
			_ = b.Publish(update("b", i))
		}
	}()

	// Drain until both widgets have reported their terminal value. The
	// consumer must always end on the last emitted state.
	last := map[string]int{}
	for last["a"] != 99 || last["b"] != 99 {
		ev, err := b.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed with last=%v: %v", last, err)
		}
		if u, ok := ev.(WidgetUpdated); ok {
			if u.Width < last[u.ID] {
				t.Fatalf("widget %s went backwards: %d after %d", u.ID, u.Width, last[u.ID])
			}
			last[u.ID] = u.Width
		}
	}
	<-done
}
