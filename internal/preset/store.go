package preset

import (
	"sort"

	"github.com/gyaneshwarpardhi/patchpreset/internal/metrics"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
)

// Snapshot maps node ids to captured state.
type Snapshot map[string]patch.State

// Clone deep-copies every blob in s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, st := range s {
		out[id] = st.Clone()
	}
	return out
}

// Data is the whole snapshot store, keyed by slot. Its JSON form is the
// persisted layout: {"<slot>": {"<nodeId>": {...}}}.
type Data map[int]Snapshot

// Clone deep-copies d.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for slot, snap := range d {
		out[slot] = snap.Clone()
	}
	return out
}

// Slots returns the stored slot numbers in ascending order.
func (d Data) Slots() []int {
	out := make([]int, 0, len(d))
	for slot, snap := range d {
		if snap != nil {
			out = append(out, slot)
		}
	}
	sort.Ints(out)
	return out
}

// Store captures a copy of every inspected node's state into slot,
// replacing whatever the slot held. Nodes whose state cannot be read are
// skipped. Emits slot on PortStored and returns the captured snapshot.
func (e *Engine) Store(slot int) Snapshot {
	snap := make(Snapshot)
	for _, id := range e.InspectedSet() {
		n, ok := e.graph.Lookup(id)
		if !ok {
			continue
		}
		st, err := n.State()
		if err != nil {
			e.nodeFailed("read", id, err)
			continue
		}
		if st == nil {
			continue
		}
		snap[id] = st.Clone()
	}
	e.data[slot] = snap
	metrics.PresetsStored.Inc()
	e.log.Debug("preset stored", "slot", slot, "nodes", len(snap))
	e.dataChanged()
	e.emit(PortStored, slot)
	return snap.Clone()
}

// Recall pushes the blobs stored in slot into the inspected nodes that have
// an entry there. Inspected nodes without an entry are left alone; entries
// for nodes outside the inspected set are ignored. Returns false, with no
// side effects, when the slot is empty.
func (e *Engine) Recall(slot int) bool {
	snap, ok := e.data[slot]
	if !ok || snap == nil {
		metrics.PresetsRecalled.WithLabelValues("miss").Inc()
		return false
	}
	for _, id := range e.InspectedSet() {
		st, ok := snap[id]
		if !ok {
			continue
		}
		e.restore(id, st)
	}
	e.current = slot
	metrics.PresetsRecalled.WithLabelValues("hit").Inc()
	e.log.Debug("preset recalled", "slot", slot)
	e.emit(PortRecalled, slot)
	return true
}

// Clear deletes slot if present.
func (e *Engine) Clear(slot int) {
	if _, ok := e.data[slot]; !ok {
		return
	}
	delete(e.data, slot)
	e.dataChanged()
}

// ClearAll discards every slot.
func (e *Engine) ClearAll() {
	e.data = Data{}
	e.dataChanged()
}

// Push writes each blob in data into the inspected node with the same id.
// It bypasses the snapshot store.
func (e *Engine) Push(data map[string]interface{}) {
	for _, id := range e.InspectedSet() {
		v, ok := data[id]
		if !ok {
			continue
		}
		st, ok := patch.AsState(v)
		if !ok {
			e.nodeFailed("write", id, errNotState)
			continue
		}
		e.restore(id, st)
	}
}

// Has reports whether slot holds a snapshot.
func (e *Engine) Has(slot int) bool {
	snap, ok := e.data[slot]
	return ok && snap != nil
}

// Data returns a copy of the snapshot store.
func (e *Engine) Data() Data { return e.data.Clone() }

// Slots returns the stored slot numbers in ascending order.
func (e *Engine) Slots() []int { return e.data.Slots() }

func (e *Engine) restore(id string, st patch.State) {
	n, ok := e.graph.Lookup(id)
	if !ok {
		return
	}
	if err := n.SetState(st.Clone()); err != nil {
		e.nodeFailed("write", id, err)
	}
}

func (e *Engine) nodeFailed(op, id string, err error) {
	metrics.NodeStateErrors.WithLabelValues(op).Inc()
	e.log.Debug("node state skipped", "op", op, "node", id, "err", err)
}

func (e *Engine) dataChanged() {
	if e.onData != nil {
		e.onData(e.data.Clone())
	}
}
