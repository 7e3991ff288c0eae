// Package approval routes approval requests raised by nested agent threads
// through the primary event stream and back. While any nested approval is
// outstanding, primary-stream events are buffered so an operator never acts
// on events that causally follow an undecided request.
package approval

import (
	"context"
	"sync"

	"xcodex.io/hookcore/envelope"
	"xcodex.io/hookcore/logging"
)

// Decision is the operator's answer to a routed approval request.
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionDenied    Decision = "denied"
	DecisionCancelled Decision = "cancelled"
)

// Event is one primary-stream item: either a pass-through payload or a
// re-keyed approval request.
type Event struct {
	Payload *envelope.Payload
	// ApprovalID is set on re-keyed approval requests; it is the synthetic
	// identifier decisions must carry back.
	ApprovalID string
}

// EventSink receives primary-stream events in delivery order.
type EventSink interface {
	Send(ev Event)
}

// DecisionSink receives resolved decisions for the originating thread,
// keyed by the request's original identifier.
type DecisionSink interface {
	Decide(threadID, originalID string, decision Decision)
}

// route is one outstanding Routed mapping.
type route struct {
	threadID   string
	originalID string
}

// Router owns the approval route map and the paused event queue. All
// transitions hold the router mutex, so a route's creation and its
// lookup-and-remove on resolve can never interleave into a lost update.
type Router struct {
	events    EventSink
	decisions DecisionSink

	mu     sync.Mutex
	routes map[string]route
	paused []Event
	// draining holds Deliver in buffering mode while the last Resolve is
	// still replaying the queue, so a racing event cannot overtake
	// buffered ones.
	draining bool
	closed   bool
}

// NewRouter wires a router between the primary stream and the nested
// threads' decision path.
func NewRouter(events EventSink, decisions DecisionSink) *Router {
	return &Router{
		events:    events,
		decisions: decisions,
		routes:    make(map[string]route),
	}
}

// SyntheticID derives the routing identifier for a nested request. The
// thread prefix keeps identifiers from colliding across threads that reuse
// original identifiers.
func SyntheticID(threadID, originalID string) string {
	return threadID + ":" + originalID
}

// RouteRequest registers a nested thread's approval request and forwards a
// re-keyed copy into the primary stream. It returns the synthetic
// identifier the eventual decision must carry.
func (r *Router) RouteRequest(ctx context.Context, threadID, originalID string, p *envelope.Payload) string {
	id := SyntheticID(threadID, originalID)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.decisions.Decide(threadID, originalID, DecisionCancelled)
		return id
	}
	r.routes[id] = route{threadID: threadID, originalID: originalID}
	r.mu.Unlock()

	logging.Debug(logging.WithThread(ctx, threadID), "routed nested approval",
		"approval_id", id)
	r.events.Send(Event{Payload: p, ApprovalID: id})
	return id
}

// Deliver passes a primary-stream event through, or buffers it while any
// route is outstanding. Buffered events replay in arrival order once the
// last route resolves.
func (r *Router) Deliver(ev Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if len(r.routes) > 0 || r.draining {
		r.paused = append(r.paused, ev)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.events.Send(ev)
}

// Resolve applies a decision to the synthetic identifier's route: the
// mapping is removed, the decision is forwarded under the original
// identifier, and the paused queue drains in FIFO order once no route
// remains outstanding. Events delivered while the drain is in progress
// queue behind the buffered ones, so arrival order is preserved end to
// end. A decision for an unknown identifier is logged and dropped; races
// between teardown and in-flight decisions are expected.
func (r *Router) Resolve(ctx context.Context, syntheticID string, decision Decision) {
	r.mu.Lock()
	rt, ok := r.routes[syntheticID]
	if !ok {
		r.mu.Unlock()
		logging.Warn(ctx, "decision for unknown approval dropped",
			"approval_id", syntheticID)
		return
	}
	delete(r.routes, syntheticID)

	// Claim the drain before unlocking: events delivered from here until
	// the queue empties keep buffering behind it.
	shouldDrain := len(r.routes) == 0 && !r.draining
	if shouldDrain {
		r.draining = true
	}
	r.mu.Unlock()

	r.decisions.Decide(rt.threadID, rt.originalID, decision)

	if !shouldDrain {
		return
	}
	for {
		r.mu.Lock()
		if len(r.paused) == 0 || len(r.routes) > 0 || r.closed {
			r.draining = false
			r.mu.Unlock()
			return
		}
		ev := r.paused[0]
		r.paused = r.paused[1:]
		r.mu.Unlock()
		r.events.Send(ev)
	}
}

// Outstanding returns the number of routes still awaiting a decision.
func (r *Router) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}

// Shutdown cancels every outstanding route so originating threads are not
// left waiting, and discards buffered events. The router accepts nothing
// after Shutdown.
func (r *Router) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	routes := r.routes
	r.routes = make(map[string]route)
	dropped := len(r.paused)
	r.paused = nil
	r.mu.Unlock()

	for id, rt := range routes {
		logging.Debug(logging.WithThread(ctx, rt.threadID),
			"cancelling approval on shutdown", "approval_id", id)
		r.decisions.Decide(rt.threadID, rt.originalID, DecisionCancelled)
	}
	if dropped > 0 {
		logging.Debug(ctx, "discarding buffered events on shutdown", "count", dropped)
	}
}
