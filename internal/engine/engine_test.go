package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/event"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
	"github.com/gyaneshwarpardhi/patchpreset/internal/storage"
	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

func basePatch() *config.PatchConfig {
	return &config.PatchConfig{
		Version: "v1",
		Nodes: []config.NodeDef{
			{ID: "cutoff", Kind: "slider", State: map[string]interface{}{"value": 0.5}},
			{ID: "steps", Kind: "number", State: map[string]interface{}{"value": float64(16)}},
			{ID: "go", Kind: "button"},
		},
		Presets: []config.PresetDef{
			{ID: "p1", Exclude: []string{"go"}, Props: preset.DefaultProps()},
		},
	}
}

func newHost(t *testing.T, store storage.Store) *Host {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New(ctx, widget.Default(), store, config.HostConf{EventLog: 32}, nil)
	t.Cleanup(func() {
		h.Shutdown()
		cancel()
	})
	return h
}

func TestHost_ApplyAndControl(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))

	v, err := h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cutoff", "steps"}, v.Inspected)
	assert.Equal(t, -1, v.Current)

	res, err := h.Control(ctx, "p1", map[string]interface{}{"store": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, preset.OpStore, res.Command.Op)
	assert.True(t, res.OK)

	require.NoError(t, h.SetNodeState(ctx, "cutoff", patch.State{"value": 0.9}))

	res, err = h.Control(ctx, "p1", float64(1))
	require.NoError(t, err)
	assert.True(t, res.OK)

	n, err := h.Node(ctx, "cutoff")
	require.NoError(t, err)
	assert.Equal(t, patch.State{"value": 0.5}, n.State)

	evs, err := h.Events(ctx, 0)
	require.NoError(t, err)
	var kinds []event.Kind
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []event.Kind{
		event.KindStored,
		event.KindAggregate, // edit
		event.KindAggregate, // recall restores cutoff
		event.KindAggregate, // recall restores steps
		event.KindRecalled,
	}, kinds)
	assert.Equal(t, preset.Snapshot{"cutoff": {"value": 0.5}, "steps": {"value": float64(16)}}, evs[3].Aggregate)

	res, err = h.Control(ctx, "p1", float64(2))
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestHost_UnknownPreset(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	_, err := h.Control(ctx, "nope", 1)
	assert.True(t, errors.Is(err, ErrPresetNotFound))
	assert.True(t, errors.Is(h.Push(ctx, "nope", nil), ErrPresetNotFound))
}

func TestHost_ApplyReconciles(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))
	require.NoError(t, h.SetNodeState(ctx, "steps", patch.State{"value": float64(3)}))

	next := basePatch()
	next.Version = "v2"
	next.Nodes = []config.NodeDef{next.Nodes[0], {ID: "res", Kind: "slider"}, next.Nodes[1]} // drops "go"
	next.Presets[0].Include = []string{"res", "steps"}
	next.Presets[0].Exclude = nil
	next.Presets = append(next.Presets, config.PresetDef{ID: "p2", Props: preset.DefaultProps()})
	require.NoError(t, h.Apply(ctx, next))

	nodes, err := h.Nodes(ctx)
	require.NoError(t, err)
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"cutoff", "steps", "res"}, ids)

	// Existing node keeps its live state across a reload.
	n, err := h.Node(ctx, "steps")
	require.NoError(t, err)
	assert.Equal(t, patch.State{"value": float64(3)}, n.State)

	v, err := h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"res", "steps"}, v.Inspected)
	assert.Empty(t, v.Exclude)

	ids, err = h.PresetIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	// Removing a preset from config closes it.
	next.Presets = next.Presets[1:]
	require.NoError(t, h.Apply(ctx, next))
	_, err = h.Preset(ctx, "p1")
	assert.True(t, errors.Is(err, ErrPresetNotFound))
}

func TestHost_ApplyKindChangeKeepsEmitting(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))

	next := basePatch()
	next.Version = "v2"
	next.Nodes[1] = config.NodeDef{ID: "steps", Kind: "slider", State: map[string]interface{}{"value": 0.3}}
	require.NoError(t, h.Apply(ctx, next))

	n, err := h.Node(ctx, "steps")
	require.NoError(t, err)
	assert.Equal(t, "slider", n.Kind)

	require.NoError(t, h.SetNodeState(ctx, "steps", patch.State{"value": 0.7}))
	evs, err := h.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, event.KindAggregate, evs[0].Kind)
	assert.Equal(t, patch.State{"value": 0.7}, evs[0].Aggregate["steps"])
}

func TestHost_CreatedNodeEmits(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))

	_, err := h.CreateNode(ctx, "gate", "toggle", nil)
	require.NoError(t, err)
	require.NoError(t, h.SetNodeState(ctx, "gate", patch.State{"on": true}))

	evs, err := h.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, patch.State{"on": true}, evs[0].Aggregate["gate"])
}

func TestHost_RemoveNodeResyncs(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))
	require.NoError(t, h.RemoveNode(ctx, "steps"))

	v, err := h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cutoff"}, v.Inspected)

	err = h.RemoveNode(ctx, "steps")
	assert.True(t, errors.Is(err, patch.ErrNodeNotFound))
}

func TestHost_CreateNodeAndLines(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))

	n, err := h.CreateNode(ctx, "", "toggle", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, patch.State{"on": false}, n.State)

	_, err = h.CreateNode(ctx, "p1", "number", nil)
	assert.True(t, errors.Is(err, patch.ErrNodeExists))

	require.NoError(t, h.Connect(ctx, patch.Edge{Src: "p1", Outlet: int(preset.PortInclude), Dst: n.ID}))
	v, err := h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, v.Inspected)

	require.NoError(t, h.Disconnect(ctx, patch.Edge{Src: "p1", Outlet: int(preset.PortInclude), Dst: n.ID}))
	v, err = h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cutoff", "steps", n.ID}, v.Inspected)

	btn, err := h.Node(ctx, "go")
	require.NoError(t, err)
	assert.NotEmpty(t, btn.Error)
}

func TestHost_PersistsAndReloadsData(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "presets")
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	h1 := New(ctx, widget.Default(), fs, config.HostConf{}, nil)
	require.NoError(t, h1.Apply(ctx, basePatch()))
	_, err = h1.Control(ctx, "p1", map[string]interface{}{"store": float64(4)})
	require.NoError(t, err)
	h1.Shutdown() // flushes pending writes

	saved, err := storage.ReadFile(filepath.Join(dir, "p1.json"))
	require.NoError(t, err)
	assert.Equal(t, []int{4}, saved.Slots())

	h2 := newHost(t, fs)
	require.NoError(t, h2.Apply(ctx, basePatch()))
	require.NoError(t, h2.SetNodeState(ctx, "cutoff", patch.State{"value": 0.1}))
	res, err := h2.Control(ctx, "p1", 4)
	require.NoError(t, err)
	assert.True(t, res.OK)
	n, err := h2.Node(ctx, "cutoff")
	require.NoError(t, err)
	assert.Equal(t, patch.State{"value": 0.5}, n.State)
}

func TestHost_RemovePresetPurge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	file := filepath.Join(dir, "p1.json")

	h := New(ctx, widget.Default(), fs, config.HostConf{}, nil)
	require.NoError(t, h.Apply(ctx, basePatch()))
	_, err = h.Control(ctx, "p1", map[string]interface{}{"store": float64(2)})
	require.NoError(t, err)

	// Plain removal keeps the data; the preset comes back with its slots.
	require.NoError(t, h.RemovePreset(ctx, "p1", false))
	require.NoError(t, h.AddPreset(ctx, config.PresetDef{ID: "p1"}))
	v, err := h.Preset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, v.Slots)

	// Storing again then purging must not leave a file behind.
	_, err = h.Control(ctx, "p1", map[string]interface{}{"store": float64(3)})
	require.NoError(t, err)
	require.NoError(t, h.RemovePreset(ctx, "p1", true))
	h.Shutdown()

	_, err = storage.ReadFile(file)
	assert.True(t, os.IsNotExist(err), "purged file still present: %v", err)

	h2 := newHost(t, fs)
	err = h2.RemovePreset(ctx, "p1", true)
	assert.True(t, errors.Is(err, ErrPresetNotFound))
}

func TestHost_ShutdownRejectsWork(t *testing.T) {
	h := New(context.Background(), widget.Default(), nil, config.HostConf{}, nil)
	h.Shutdown()
	h.Shutdown()
	err := h.Do(context.Background(), func() error { return nil })
	assert.True(t, errors.Is(err, ErrShutdown))
}
