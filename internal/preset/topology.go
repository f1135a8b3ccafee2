package preset

// InspectedSet returns the ids of the nodes the engine currently observes,
// recomputed from the live lines on its include and exclude outlets:
//
//	(include is empty ? every node : include) minus exclude
//
// Ids come back in a stable order: include lines in connection order, or
// graph insertion order for the default case. Exclude always wins.
func (e *Engine) InspectedSet() []string {
	excluded := make(map[string]struct{})
	for _, id := range e.graph.Destinations(e.id, int(PortExclude)) {
		excluded[id] = struct{}{}
	}

	candidates := e.graph.Destinations(e.id, int(PortInclude))
	if len(candidates) == 0 {
		candidates = e.graph.NodeIDs()
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := excluded[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := e.graph.Lookup(id); !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
