package approval

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcodex.io/hookcore/envelope"
)

type recordingEventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingEventSink) Send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingEventSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type recordedDecision struct {
	threadID   string
	originalID string
	decision   Decision
}

type recordingDecisionSink struct {
	mu        sync.Mutex
	decisions []recordedDecision
}

func (s *recordingDecisionSink) Decide(threadID, originalID string, decision Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, recordedDecision{threadID, originalID, decision})
}

func (s *recordingDecisionSink) all() []recordedDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedDecision(nil), s.decisions...)
}

func approvalEvent(id string) Event {
	p := envelope.New(envelope.EventApprovalRequested, "PermissionRequest")
	p.CallID = id
	return Event{Payload: p}
}

func newTestRouter() (*Router, *recordingEventSink, *recordingDecisionSink) {
	events := &recordingEventSink{}
	decisions := &recordingDecisionSink{}
	return NewRouter(events, decisions), events, decisions
}

func TestDeliverPassesThroughWithNoRoutes(t *testing.T) {
	r, events, _ := newTestRouter()
	r.Deliver(approvalEvent("e1"))
	assert.Len(t, events.all(), 1)
}

func TestRouteRequestForwardsReKeyedRequest(t *testing.T) {
	r, events, _ := newTestRouter()
	ctx := context.Background()

	id := r.RouteRequest(ctx, "thread-1", "call-9", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	assert.Equal(t, "thread-1:call-9", id)
	assert.Equal(t, 1, r.Outstanding())

	got := events.all()
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ApprovalID)
}

func TestPauseAndResumeOrdering(t *testing.T) {
	r, events, decisions := newTestRouter()
	ctx := context.Background()

	id := r.RouteRequest(ctx, "thread-1", "call-1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))

	e1 := approvalEvent("e1")
	e2 := approvalEvent("e2")
	r.Deliver(e1)
	r.Deliver(e2)

	// Both buffered while the route is outstanding.
	require.Len(t, events.all(), 1, "only the routed request itself is delivered")

	r.Resolve(ctx, id, DecisionApproved)

	got := events.all()
	require.Len(t, got, 3)
	assert.Equal(t, "e1", got[1].Payload.CallID)
	assert.Equal(t, "e2", got[2].Payload.CallID)

	dec := decisions.all()
	require.Len(t, dec, 1)
	assert.Equal(t, recordedDecision{"thread-1", "call-1", DecisionApproved}, dec[0])
}

func TestQueueHeldUntilAllRoutesResolve(t *testing.T) {
	r, events, _ := newTestRouter()
	ctx := context.Background()

	a := r.RouteRequest(ctx, "t1", "c1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	b := r.RouteRequest(ctx, "t2", "c2", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))

	r.Deliver(approvalEvent("held"))
	r.Resolve(ctx, a, DecisionApproved)
	assert.Len(t, events.all(), 2, "queue must stay held while a route remains")

	r.Resolve(ctx, b, DecisionDenied)
	got := events.all()
	require.Len(t, got, 3)
	assert.Equal(t, "held", got[2].Payload.CallID)
}

// gatedDecisionSink parks Decide until released, holding Resolve open so
// tests can race deliveries against the tail of a resolution.
type gatedDecisionSink struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedDecisionSink() *gatedDecisionSink {
	return &gatedDecisionSink{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *gatedDecisionSink) Decide(string, string, Decision) {
	s.entered <- struct{}{}
	<-s.release
}

func TestDeliverDuringResolveDrainStaysOrdered(t *testing.T) {
	events := &recordingEventSink{}
	gate := newGatedDecisionSink()
	r := NewRouter(events, gate)
	ctx := context.Background()

	id := r.RouteRequest(ctx, "t1", "c1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	r.Deliver(approvalEvent("e1"))
	r.Deliver(approvalEvent("e2"))

	done := make(chan struct{})
	go func() {
		r.Resolve(ctx, id, DecisionApproved)
		close(done)
	}()

	// Resolve has removed the route and is parked in the decision sink;
	// e1 and e2 are still undelivered.
	<-gate.entered
	r.Deliver(approvalEvent("e3"))

	close(gate.release)
	<-done

	got := events.all()
	require.Len(t, got, 4)
	assert.Equal(t, "e1", got[1].Payload.CallID)
	assert.Equal(t, "e2", got[2].Payload.CallID)
	assert.Equal(t, "e3", got[3].Payload.CallID, "racing event must not overtake buffered ones")
}

func TestResolveUnknownIDIsDropped(t *testing.T) {
	r, _, decisions := newTestRouter()
	r.Resolve(context.Background(), "no-such-id", DecisionApproved)
	assert.Empty(t, decisions.all())
}

func TestResolveTwiceIsNoop(t *testing.T) {
	r, _, decisions := newTestRouter()
	ctx := context.Background()

	id := r.RouteRequest(ctx, "t1", "c1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	r.Resolve(ctx, id, DecisionApproved)
	r.Resolve(ctx, id, DecisionDenied)

	dec := decisions.all()
	require.Len(t, dec, 1, "second resolution must not double-deliver")
	assert.Equal(t, DecisionApproved, dec[0].decision)
}

func TestShutdownCancelsOutstandingRoutes(t *testing.T) {
	r, events, decisions := newTestRouter()
	ctx := context.Background()

	r.RouteRequest(ctx, "t1", "c1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	r.RouteRequest(ctx, "t2", "c2", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	r.Deliver(approvalEvent("buffered"))

	delivered := len(events.all())
	r.Shutdown(ctx)

	dec := decisions.all()
	require.Len(t, dec, 2)
	for _, d := range dec {
		assert.Equal(t, DecisionCancelled, d.decision)
	}
	assert.Equal(t, 0, r.Outstanding())
	// Buffered events are discarded, not replayed.
	assert.Len(t, events.all(), delivered)

	// Nothing is accepted after shutdown.
	r.Deliver(approvalEvent("late"))
	assert.Len(t, events.all(), delivered)
}

func TestRouteRequestAfterShutdownIsCancelled(t *testing.T) {
	r, _, decisions := newTestRouter()
	ctx := context.Background()
	r.Shutdown(ctx)

	r.RouteRequest(ctx, "t1", "c1", envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
	dec := decisions.all()
	require.Len(t, dec, 1)
	assert.Equal(t, DecisionCancelled, dec[0].decision)
}

func TestConcurrentRouteAndResolve(t *testing.T) {
	r, _, decisions := newTestRouter()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := r.RouteRequest(ctx, "t", fmt.Sprintf("c-%d", n), envelope.New(envelope.EventApprovalRequested, "PermissionRequest"))
			r.Resolve(ctx, id, DecisionApproved)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Outstanding())
	assert.Len(t, decisions.all(), 50)
}
