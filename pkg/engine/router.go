package engine

import (
	"context"
	"log/slog"

	"gitlab.com/tinyland/lab/ledgebar/pkg/bus"
	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
	"gitlab.com/tinyland/lab/ledgebar/pkg/widget"
)

// Router maps pointer presses onto the current frame's click regions and
// delivers bound actions to the owning widget adapter. Presses that land
// outside every region, or on a button with no bound action, are silently
// discarded.
type Router struct {
	adapters map[string]*widget.Adapter
	log      *slog.Logger
}

// NewRouter creates a router over the engine's adapter set.
func NewRouter(adapters map[string]*widget.Adapter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{adapters: adapters, log: logger}
}

// Route resolves one button press against frame. Regions belong to the
// frame that produced them, so a press is only ever matched against the
// layout currently on screen.
func (r *Router) Route(ctx context.Context, frame *render.Frame, ev bus.ButtonPress) {
	region, ok := frame.RegionAt(ev.X, ev.Y)
	if !ok {
		return
	}
	name, ok := region.Actions[ev.Button]
	if !ok {
		return
	}
	adapter, ok := r.adapters[region.Widget]
	if !ok {
		r.log.Warn("click region references unknown widget", "widget", region.Widget)
		return
	}
	r.log.Debug("routing click",
		"widget", region.Widget, "button", ev.Button.String(), "action", name)
	adapter.Deliver(ctx, widget.Action{
		Widget: region.Widget,
		Button: ev.Button,
		Name:   name,
	})
}
