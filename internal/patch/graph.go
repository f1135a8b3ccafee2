package patch

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeExists   = errors.New("node already exists")
)

// Edge is one line from an outlet of a source to a destination node.
type Edge struct {
	Src    string `json:"src"`
	Outlet int    `json:"outlet"`
	Dst    string `json:"dst"`
}

type outletKey struct {
	src    string
	outlet int
}

// Graph owns the nodes of a patch and the lines between them.
// Sources of lines need not be nodes themselves: a preset engine owns
// outlets without being observable. Nodes are looked up by id only; nothing
// outside the graph holds an owning reference.
type Graph struct {
	nodes map[string]Stateful
	order []string // insertion order of node ids

	lines   map[outletKey][]string
	outlets map[string]*listenerSet[int] // src → outlet change listeners
	members listenerSet[string]          // fired with the id of an added or removed node
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]Stateful),
		lines:   make(map[outletKey][]string),
		outlets: make(map[string]*listenerSet[int]),
	}
}

// AddNode registers a node by its ID.
func (g *Graph) AddNode(n Stateful) error {
	if _, ok := g.nodes[n.ID()]; ok {
		return fmt.Errorf("add %s: %w", n.ID(), ErrNodeExists)
	}
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	g.members.fire(n.ID())
	return nil
}

// Lookup returns a node by ID.
func (g *Graph) Lookup(id string) (Stateful, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns every node id in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

// NodeCount returns the total number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// RemoveNode unregisters id, destroys the node, then drops every line that
// touched it. Outlet listeners of affected sources fire after the node is
// already gone from the registry.
func (g *Graph) RemoveNode(id string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNodeNotFound)
	}
	delete(g.nodes, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	n.Destroy()

	var touched []outletKey
	for k, dsts := range g.lines {
		if k.src == id {
			delete(g.lines, k)
			continue
		}
		kept := dsts[:0]
		for _, d := range dsts {
			if d != id {
				kept = append(kept, d)
			}
		}
		if len(kept) != len(dsts) {
			touched = append(touched, k)
		}
		if len(kept) == 0 {
			delete(g.lines, k)
		} else {
			g.lines[k] = kept
		}
	}
	delete(g.outlets, id)
	for _, k := range touched {
		g.notify(k)
	}
	g.members.fire(id)
	return nil
}

// Connect adds a line from src's outlet to dst. Connecting an existing
// line is a no-op.
func (g *Graph) Connect(src string, outlet int, dst string) error {
	if _, ok := g.nodes[dst]; !ok {
		return fmt.Errorf("connect %s:%d → %s: %w", src, outlet, dst, ErrNodeNotFound)
	}
	k := outletKey{src, outlet}
	for _, d := range g.lines[k] {
		if d == dst {
			return nil
		}
	}
	g.lines[k] = append(g.lines[k], dst)
	g.notify(k)
	return nil
}

// Disconnect removes the line from src's outlet to dst, if any.
func (g *Graph) Disconnect(src string, outlet int, dst string) {
	k := outletKey{src, outlet}
	dsts := g.lines[k]
	for i, d := range dsts {
		if d != dst {
			continue
		}
		dsts = append(dsts[:i:i], dsts[i+1:]...)
		if len(dsts) == 0 {
			delete(g.lines, k)
		} else {
			g.lines[k] = dsts
		}
		g.notify(k)
		return
	}
}

// Destinations returns the destination ids of src's outlet in connection order.
func (g *Graph) Destinations(src string, outlet int) []string {
	return append([]string(nil), g.lines[outletKey{src, outlet}]...)
}

// Edges returns every line in the graph, ordered by source and outlet.
func (g *Graph) Edges() []Edge {
	keys := make([]outletKey, 0, len(g.lines))
	for k := range g.lines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].src != keys[j].src {
			return keys[i].src < keys[j].src
		}
		return keys[i].outlet < keys[j].outlet
	})
	var out []Edge
	for _, k := range keys {
		for _, d := range g.lines[k] {
			out = append(out, Edge{Src: k.src, Outlet: k.outlet, Dst: d})
		}
	}
	return out
}

// OnOutletChange registers fn to be called with the outlet number whenever a
// line from src is connected or disconnected.
func (g *Graph) OnOutletChange(src string, fn func(outlet int)) Handle {
	set, ok := g.outlets[src]
	if !ok {
		set = &listenerSet[int]{}
		g.outlets[src] = set
	}
	return set.add(fn)
}

// OnNodesChange registers fn to be called with the node id after a node is
// added to or removed from the graph.
func (g *Graph) OnNodesChange(fn func(id string)) Handle {
	return g.members.add(fn)
}

func (g *Graph) notify(k outletKey) {
	if set, ok := g.outlets[k.src]; ok {
		set.fire(k.outlet)
	}
}
