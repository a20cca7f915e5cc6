// Package widget defines the stream contract data sources implement and
// the Adapter that wraps each source uniformly: shaping its content into
// runs, publishing updates onto the bus, applying bounded backoff when the
// source fails, and accepting routed click actions. Sources themselves
// (clock, command, sysmetrics, ...) live in pkg/sources and only need to
// satisfy the interfaces here.
package widget

import (
	"context"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// Content is one item of a source's update stream: an ordered list of
// colored text/icon segments. Segment colors left unset are filled in
// from the theme by the Adapter.
type Content struct {
	Segments []render.Segment
}

// Text is a convenience constructor for single-segment content.
func Text(s string) Content {
	return Content{Segments: []render.Segment{{Text: s}}}
}

// Capabilities is a source's fixed click descriptor: which pointer
// buttons it supports and the action name delivered for each. It never
// changes after the source is constructed.
type Capabilities struct {
	Buttons map[render.Button]string
}

// Action is a routed click delivered back to a source as plain data:
// the owning widget, the pressed button, and the bound action name.
type Action struct {
	Widget string
	Button render.Button
	Name   string
}

// Source is implemented by every data-source collaborator. Stream pushes
// content items onto out until ctx is canceled; it owns whatever I/O
// resources it needs and must release them before returning.
//
// Return semantics:
//   - nil: the stream is exhausted. The widget freezes on an
//     "unavailable" placeholder and is never restarted.
//   - non-nil: a transient failure. The Adapter shows an error
//     placeholder, waits out a backoff interval, and calls Stream again
//     (a fresh invocation is a full re-creation of the source's state).
type Source interface {
	// Name returns the stable widget identifier (e.g. "clock").
	Name() string

	// Capabilities returns the source's fixed click descriptor.
	Capabilities() Capabilities

	// Stream produces content items until ctx is done or the source ends.
	Stream(ctx context.Context, out chan<- Content) error
}

// Actionable is optionally implemented by sources that react to routed
// clicks (e.g. "play-pause"). Do is invoked off the engine loop and its
// error is logged, never propagated.
type Actionable interface {
	Do(ctx context.Context, action Action) error
}
