package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

// Validate checks the config for:
//   - Duplicate IDs across nodes and presets
//   - Unknown node kinds and state rejected by the kind
//   - Include/exclude entries that name undeclared nodes
//   - Preset props out of range
func Validate(cfg *PatchConfig, kinds *widget.Registry) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	ids := make(map[string]string) // id → location
	var errs []string

	for i, n := range cfg.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Sprintf("nodes[%d]: id is required", i))
			continue
		}
		loc := fmt.Sprintf("node %s", n.ID)
		if prev, ok := ids[n.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (first seen at %s, again at %s)", n.ID, prev, loc))
		} else {
			ids[n.ID] = loc
		}
		k, err := kinds.Get(n.Kind)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", loc, err))
			continue
		}
		if n.State != nil {
			if err := k.Validate(n.State); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %s", loc, err))
			}
		}
	}

	for i, p := range cfg.Presets {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("presets[%d]: id is required", i))
			continue
		}
		loc := fmt.Sprintf("preset %s", p.ID)
		if prev, ok := ids[p.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (first seen at %s, again at %s)", p.ID, prev, loc))
		} else {
			ids[p.ID] = loc
		}
		validateRefs(p.Include, loc+".include", cfg.Nodes, &errs)
		validateRefs(p.Exclude, loc+".exclude", cfg.Nodes, &errs)
		for _, msg := range p.Props.Validate() {
			errs = append(errs, fmt.Sprintf("%s.props: %s", loc, msg))
		}
	}

	if cfg.Host.QueueDepth < 0 || cfg.Host.OpTimeoutMs < 0 || cfg.Host.EventLog < 0 {
		errs = append(errs, "host: settings must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateRefs(refs []string, where string, nodes []NodeDef, errs *[]string) {
	for j, ref := range refs {
		found := false
		for _, n := range nodes {
			if n.ID == ref {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, fmt.Sprintf("%s[%d]: unknown node %q", where, j, ref))
		}
	}
}
