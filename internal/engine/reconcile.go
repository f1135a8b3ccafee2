package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
)

// Apply brings the graph and the preset engines in line with cfg.
//
// Nodes missing from the graph are created with their configured state;
// nodes that already exist with the same kind keep their live state. Nodes
// and presets absent from cfg are removed. Every preset's include and
// exclude lines are set to exactly the configured lists. Each change fires
// the usual outlet and destroy notifications, so engines resync as they go.
func (h *Host) Apply(ctx context.Context, cfg *config.PatchConfig) error {
	return h.Do(ctx, func() error {
		var errs []error

		wantNodes := make(map[string]config.NodeDef, len(cfg.Nodes))
		for _, def := range cfg.Nodes {
			wantNodes[def.ID] = def
		}
		wantPresets := make(map[string]config.PresetDef, len(cfg.Presets))
		for _, def := range cfg.Presets {
			wantPresets[def.ID] = def
		}

		for _, id := range h.sortedPresetIDs() {
			if _, ok := wantPresets[id]; !ok {
				errs = append(errs, h.removePreset(id))
			}
		}
		for _, id := range h.graph.NodeIDs() {
			def, ok := wantNodes[id]
			n, _ := h.graph.Lookup(id)
			if ok && def.Kind == n.Kind() {
				continue
			}
			errs = append(errs, h.graph.RemoveNode(id))
		}
		for _, def := range cfg.Nodes {
			if _, ok := h.graph.Lookup(def.ID); ok {
				continue
			}
			var st patch.State
			if def.State != nil {
				st = patch.State(def.State)
			}
			errs = append(errs, h.createNode(def.ID, def.Kind, st))
		}
		for _, def := range cfg.Presets {
			e, ok := h.presets[def.ID]
			if !ok {
				errs = append(errs, h.addPreset(def))
				continue
			}
			e.SetProps(def.Props)
			h.setLines(def.ID, preset.PortInclude, def.Include)
			h.setLines(def.ID, preset.PortExclude, def.Exclude)
		}

		h.log.Info("patch applied", "version", cfg.Version, "nodes", h.graph.NodeCount(), "presets", len(h.presets))
		return errors.Join(errs...)
	})
}

func (h *Host) sortedPresetIDs() []string {
	ids := make([]string, 0, len(h.presets))
	for id := range h.presets {
		ids = append(ids, id)
	}
	sortStrings(ids)
	return ids
}

func sortStrings(s []string) { sort.Strings(s) }
