// Package preset implements the preset engine: it watches a working set of
// patch nodes chosen by the lines on its include and exclude outlets, keeps
// one change listener per watched node, captures and restores their state
// under integer slots, and republishes the aggregate state on every change.
//
// An Engine is driven from the host's single event loop. None of its methods
// block and none are safe for concurrent use.
package preset

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
)

// Port numbers the engine's outlets.
type Port int

const (
	PortInclude   Port = 0 // lines select nodes to inspect
	PortRecalled  Port = 1 // slot number after a successful recall
	PortExclude   Port = 2 // lines select nodes to leave out
	PortStored    Port = 3 // slot number after a store
	PortAggregate Port = 4 // node id → state over the inspected set
)

// Inlets.
const (
	InletControl = 0
	InletData    = 1
)

// Graph is the view of the host patch the engine needs. *patch.Graph
// satisfies it.
type Graph interface {
	Lookup(id string) (patch.Stateful, bool)
	NodeIDs() []string
	Destinations(src string, outlet int) []string
	OnOutletChange(src string, fn func(outlet int)) patch.Handle
	OnNodesChange(fn func(id string)) patch.Handle
}

// OutletFunc receives every value the engine sends out of an outlet.
// Slot outlets carry an int; the aggregate outlet carries Snapshot.
type OutletFunc func(port Port, value interface{})

// Options configures an Engine. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Data is the persisted snapshot store to start from.
	Data Data
	// Props are the engine's UI props; the engine only carries them.
	Props Props
	// Outlet receives emissions. Nil discards them.
	Outlet OutletFunc
	// OnData is called with a copy of the store after store, clear and clearAll.
	OnData func(Data)
}

type phase int

const (
	phaseIdle phase = iota
	phaseRecomputing
)

// Engine is one preset object placed in a patch.
type Engine struct {
	id     string
	graph  Graph
	log    *slog.Logger
	outlet OutletFunc
	onData func(Data)

	props   Props
	data    Data
	current int

	subs   map[string]*subscription
	phase  phase
	dirty  bool
	topo   patch.Handle
	nodes  patch.Handle
	closed bool
}

// New creates an engine that owns the outlets of src id in g, subscribes to
// its own outlet changes and to nodes entering or leaving g, and performs
// the initial inspected-set sync.
func New(id string, g Graph, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	data := opts.Data.Clone()
	if data == nil {
		data = Data{}
	}
	e := &Engine{
		id:      id,
		graph:   g,
		log:     log.With("preset", id),
		outlet:  opts.Outlet,
		onData:  opts.OnData,
		props:   opts.Props.WithDefaults(),
		data:    data,
		current: -1,
		subs:    make(map[string]*subscription),
	}
	e.topo = g.OnOutletChange(id, func(outlet int) {
		if Port(outlet) == PortInclude || Port(outlet) == PortExclude {
			e.resync()
		}
	})
	e.nodes = g.OnNodesChange(func(string) { e.resync() })
	e.resync()
	return e
}

// ID returns the id of the outlet owner this engine was created for.
func (e *Engine) ID() string { return e.id }

// Props returns the engine's UI props.
func (e *Engine) Props() Props { return e.props }

// SetProps replaces the engine's UI props.
func (e *Engine) SetProps(p Props) { e.props = p }

// Current returns the last successfully recalled slot, or -1.
func (e *Engine) Current() int { return e.current }

// Close releases every listener the engine holds. It is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.topo.Release()
	e.nodes.Release()
	for id := range e.subs {
		e.drop(id)
	}
}

func (e *Engine) emit(port Port, v interface{}) {
	if e.outlet != nil {
		e.outlet(port, v)
	}
}
