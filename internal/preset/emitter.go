package preset

import "github.com/gyaneshwarpardhi/patchpreset/internal/metrics"

// Aggregate reads the live state of every inspected node. Nodes whose state
// cannot be read are left out.
func (e *Engine) Aggregate() Snapshot {
	out := make(Snapshot)
	for _, id := range e.InspectedSet() {
		n, ok := e.graph.Lookup(id)
		if !ok {
			continue
		}
		st, err := n.State()
		if err != nil || st == nil {
			continue
		}
		out[id] = st.Clone()
	}
	return out
}

func (e *Engine) handleStateUpdated(string) {
	if e.closed {
		return
	}
	metrics.AggregateEmissions.Inc()
	e.emit(PortAggregate, e.Aggregate())
}
