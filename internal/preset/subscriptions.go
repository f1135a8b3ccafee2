package preset

import (
	"sort"

	"github.com/gyaneshwarpardhi/patchpreset/internal/metrics"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
)

// subscription holds the two registrations made on one inspected node.
type subscription struct {
	changed   patch.Handle
	destroyed patch.Handle
}

func (s *subscription) release() {
	s.changed.Release()
	s.destroyed.Release()
}

// resync recomputes the inspected set and brings the subscription set in
// line with it. A resync requested while one is running is folded into
// another pass of the running one.
func (e *Engine) resync() {
	if e.closed {
		return
	}
	if e.phase == phaseRecomputing {
		e.dirty = true
		return
	}
	e.phase = phaseRecomputing
	defer func() { e.phase = phaseIdle }()

	for {
		e.dirty = false
		e.sync(e.InspectedSet())
		if !e.dirty {
			break
		}
	}
	metrics.Resyncs.Inc()
	e.log.Debug("inspected set resynced", "nodes", len(e.subs))
}

// sync diffs next against the recorded set: nodes that left lose their
// listeners, nodes that entered gain one.
func (e *Engine) sync(next []string) {
	want := make(map[string]struct{}, len(next))
	for _, id := range next {
		want[id] = struct{}{}
	}
	for id := range e.subs {
		if _, ok := want[id]; !ok {
			e.drop(id)
		}
	}
	for _, id := range next {
		if _, ok := e.subs[id]; ok {
			continue
		}
		n, ok := e.graph.Lookup(id)
		if !ok {
			continue
		}
		e.subs[id] = &subscription{
			changed:   n.Observe(e.handleStateUpdated),
			destroyed: n.OnDestroy(e.handleDestroyed),
		}
		metrics.Subscriptions.Inc()
	}
}

// drop forgets id. Releasing handles of a node that is already gone is a no-op.
func (e *Engine) drop(id string) {
	sub, ok := e.subs[id]
	if !ok {
		return
	}
	delete(e.subs, id)
	sub.release()
	metrics.Subscriptions.Dec()
}

func (e *Engine) handleDestroyed(id string) {
	e.drop(id)
	e.resync()
}

// Subscribed returns the sorted ids currently holding a listener.
func (e *Engine) Subscribed() []string {
	out := make([]string, 0, len(e.subs))
	for id := range e.subs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
