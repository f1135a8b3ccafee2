package preset_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
)

const presetID = "preset-1"

type emission struct {
	port  preset.Port
	value interface{}
}

type recorder struct {
	out []emission
}

func (r *recorder) outlet(port preset.Port, v interface{}) {
	r.out = append(r.out, emission{port, v})
}

func (r *recorder) on(port preset.Port) []interface{} {
	var vals []interface{}
	for _, e := range r.out {
		if e.port == port {
			vals = append(vals, e.value)
		}
	}
	return vals
}

func (r *recorder) lastAggregate(t *testing.T) preset.Snapshot {
	t.Helper()
	aggs := r.on(preset.PortAggregate)
	require.NotEmpty(t, aggs, "no aggregate emitted")
	return aggs[len(aggs)-1].(preset.Snapshot)
}

func (r *recorder) reset() { r.out = nil }

// newPatch builds a graph with one numeric node per id, state {"v": i+1}.
func newPatch(t *testing.T, ids ...string) *patch.Graph {
	t.Helper()
	g := patch.NewGraph()
	for i, id := range ids {
		require.NoError(t, g.AddNode(patch.NewNode(id, "number", patch.State{"v": float64(i + 1)})))
	}
	return g
}

func newEngine(t *testing.T, g *patch.Graph, opts preset.Options) (*preset.Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts.Outlet = rec.outlet
	e := preset.New(presetID, g, opts)
	t.Cleanup(e.Close)
	return e, rec
}

func stateOf(t *testing.T, g *patch.Graph, id string) patch.State {
	t.Helper()
	n, ok := g.Lookup(id)
	require.True(t, ok, "node %s missing", id)
	s, err := n.State()
	require.NoError(t, err)
	return s
}

func setState(t *testing.T, g *patch.Graph, id string, s patch.State) {
	t.Helper()
	n, ok := g.Lookup(id)
	require.True(t, ok, "node %s missing", id)
	require.NoError(t, n.SetState(s))
}

// brokenNode fails every state read or write but otherwise behaves.
type brokenNode struct {
	*patch.Node
}

var errBroken = errors.New("broken")

func (b brokenNode) State() (patch.State, error) { return nil, errBroken }
func (b brokenNode) SetState(patch.State) error  { return errBroken }
