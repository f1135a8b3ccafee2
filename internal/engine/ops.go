package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/event"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
)

// NodeView is a read-only copy of one node.
type NodeView struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind"`
	State patch.State `json:"state,omitempty"`
	Error string      `json:"error,omitempty"`
}

// PresetView is a read-only copy of one preset engine.
type PresetView struct {
	ID        string          `json:"id"`
	Props     preset.Props    `json:"props"`
	Current   int             `json:"current"`
	Slots     []int           `json:"slots"`
	Inspected []string        `json:"inspected"`
	Include   []string        `json:"include"`
	Exclude   []string        `json:"exclude"`
	Aggregate preset.Snapshot `json:"aggregate"`
	Data      preset.Data     `json:"data"`
}

// ControlResult reports what a control message did.
type ControlResult struct {
	Command preset.Command `json:"command"`
	OK      bool           `json:"ok"`
}

// Control delivers msg to the control inlet of preset id.
func (h *Host) Control(ctx context.Context, id string, msg interface{}) (ControlResult, error) {
	var res ControlResult
	err := h.Do(ctx, func() error {
		e, err := h.lookupPreset(id)
		if err != nil {
			return err
		}
		res.Command, res.OK = e.Inlet(preset.InletControl, msg)
		return nil
	})
	return res, err
}

// Push delivers a node id → state mapping to the data inlet of preset id.
func (h *Host) Push(ctx context.Context, id string, data map[string]interface{}) error {
	return h.Do(ctx, func() error {
		e, err := h.lookupPreset(id)
		if err != nil {
			return err
		}
		e.Inlet(preset.InletData, data)
		return nil
	})
}

// Preset returns a view of preset id.
func (h *Host) Preset(ctx context.Context, id string) (*PresetView, error) {
	var v *PresetView
	err := h.Do(ctx, func() error {
		e, err := h.lookupPreset(id)
		if err != nil {
			return err
		}
		v = &PresetView{
			ID:        id,
			Props:     e.Props(),
			Current:   e.Current(),
			Slots:     e.Slots(),
			Inspected: e.InspectedSet(),
			Include:   h.graph.Destinations(id, int(preset.PortInclude)),
			Exclude:   h.graph.Destinations(id, int(preset.PortExclude)),
			Aggregate: e.Aggregate(),
			Data:      e.Data(),
		}
		return nil
	})
	return v, err
}

// PresetIDs lists the placed presets.
func (h *Host) PresetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := h.Do(ctx, func() error {
		for id := range h.presets {
			ids = append(ids, id)
		}
		return nil
	})
	sortStrings(ids)
	return ids, err
}

// AddPreset places a new preset engine.
func (h *Host) AddPreset(ctx context.Context, def config.PresetDef) error {
	def.Props = def.Props.WithDefaults()
	return h.Do(ctx, func() error { return h.addPreset(def) })
}

// RemovePreset removes preset id. Its persisted data is kept unless purge
// is set.
func (h *Host) RemovePreset(ctx context.Context, id string, purge bool) error {
	return h.Do(ctx, func() error {
		if err := h.removePreset(id); err != nil {
			return err
		}
		if purge {
			h.purge(id)
		}
		return nil
	})
}

// Nodes lists every node in graph order.
func (h *Host) Nodes(ctx context.Context) ([]NodeView, error) {
	var out []NodeView
	err := h.Do(ctx, func() error {
		for _, id := range h.graph.NodeIDs() {
			n, _ := h.graph.Lookup(id)
			out = append(out, viewOf(n))
		}
		return nil
	})
	return out, err
}

// Node returns one node.
func (h *Host) Node(ctx context.Context, id string) (NodeView, error) {
	var v NodeView
	err := h.Do(ctx, func() error {
		n, ok := h.graph.Lookup(id)
		if !ok {
			return fmt.Errorf("%s: %w", id, patch.ErrNodeNotFound)
		}
		v = viewOf(n)
		return nil
	})
	return v, err
}

// CreateNode adds a node of the given kind. An empty id gets a generated one.
func (h *Host) CreateNode(ctx context.Context, id, kind string, state patch.State) (NodeView, error) {
	if id == "" {
		id = uuid.New().String()
	}
	var v NodeView
	err := h.Do(ctx, func() error {
		if err := h.createNode(id, kind, state); err != nil {
			return err
		}
		n, _ := h.graph.Lookup(id)
		v = viewOf(n)
		return nil
	})
	return v, err
}

func (h *Host) createNode(id, kind string, state patch.State) error {
	if _, ok := h.presets[id]; ok {
		return fmt.Errorf("add %s: %w", id, patch.ErrNodeExists)
	}
	n, err := h.kinds.New(id, kind, state)
	if err != nil {
		return err
	}
	return h.graph.AddNode(n)
}

// SetNodeState replaces a node's state, as an edit in the patch would.
func (h *Host) SetNodeState(ctx context.Context, id string, state patch.State) error {
	return h.Do(ctx, func() error {
		n, ok := h.graph.Lookup(id)
		if !ok {
			return fmt.Errorf("%s: %w", id, patch.ErrNodeNotFound)
		}
		if k, err := h.kinds.Get(n.Kind()); err == nil {
			if err := k.Validate(state); err != nil {
				return err
			}
		}
		return n.SetState(state)
	})
}

// RemoveNode destroys a node and its lines.
func (h *Host) RemoveNode(ctx context.Context, id string) error {
	return h.Do(ctx, func() error { return h.graph.RemoveNode(id) })
}

// Connect adds a line.
func (h *Host) Connect(ctx context.Context, e patch.Edge) error {
	return h.Do(ctx, func() error { return h.graph.Connect(e.Src, e.Outlet, e.Dst) })
}

// Disconnect removes a line if present.
func (h *Host) Disconnect(ctx context.Context, e patch.Edge) error {
	return h.Do(ctx, func() error {
		h.graph.Disconnect(e.Src, e.Outlet, e.Dst)
		return nil
	})
}

// Edges lists every line.
func (h *Host) Edges(ctx context.Context) ([]patch.Edge, error) {
	var out []patch.Edge
	err := h.Do(ctx, func() error {
		out = h.graph.Edges()
		return nil
	})
	return out, err
}

// Events returns up to n recent emissions, oldest first.
func (h *Host) Events(ctx context.Context, n int) ([]*event.Event, error) {
	var out []*event.Event
	err := h.Do(ctx, func() error {
		out = h.events.Last(n)
		return nil
	})
	return out, err
}

func viewOf(n patch.Stateful) NodeView {
	v := NodeView{ID: n.ID(), Kind: n.Kind()}
	st, err := n.State()
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.State = st.Clone()
	return v
}
