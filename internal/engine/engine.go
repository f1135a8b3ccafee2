// Package engine hosts a patch and its preset engines behind a single
// operation loop. Every graph edit, preset operation and read goes through
// Do, so they never interleave.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/event"
	"github.com/gyaneshwarpardhi/patchpreset/internal/metrics"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
	"github.com/gyaneshwarpardhi/patchpreset/internal/storage"
	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrQueueFull      = errors.New("host queue full")
	ErrTimeout        = errors.New("host operation timed out")
	ErrShutdown       = errors.New("host shut down")
)

// Host owns the patch graph and the preset engines placed in it.
type Host struct {
	loop  *loop
	conf  config.HostConf
	kinds *widget.Registry
	store storage.Store
	log   *slog.Logger

	// Owned by the loop goroutine.
	graph   *patch.Graph
	presets map[string]*preset.Engine
	events  *event.Log

	persistC chan persistJob
	persistW sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type persistJob struct {
	presetID string
	data     preset.Data
	purge    bool // delete the stored document instead of saving data
}

// New creates a Host with an empty graph and starts its loop.
func New(ctx context.Context, kinds *widget.Registry, store storage.Store, conf config.HostConf, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = storage.Nop{}
	}
	if conf.QueueDepth <= 0 {
		conf.QueueDepth = 1024
	}
	if conf.OpTimeoutMs <= 0 {
		conf.OpTimeoutMs = 2000
	}
	h := &Host{
		loop:     newLoop(ctx, conf.QueueDepth),
		conf:     conf,
		kinds:    kinds,
		store:    store,
		log:      logger,
		graph:    patch.NewGraph(),
		presets:  make(map[string]*preset.Engine),
		events:   event.NewLog(conf.EventLog),
		persistC: make(chan persistJob, 64),
	}
	h.persistW.Add(1)
	go h.persistLoop()
	return h
}

// Do runs fn on the loop and waits for it.
func (h *Host) Do(ctx context.Context, fn func() error) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrShutdown
	}
	resultC := make(chan error, 1)
	ok := h.loop.Submit(fn, resultC)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, h.loop.QueueCap())
	}
	h.updateQueueGauge()

	timeout := time.Duration(h.conf.OpTimeoutMs) * time.Millisecond
	select {
	case err := <-resultC:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (h *Host) QueueUtilization() float64 {
	if h.loop.QueueCap() == 0 {
		return 0
	}
	return float64(h.loop.QueueLen()) / float64(h.loop.QueueCap())
}

// Shutdown closes every preset engine, drains the loop and flushes pending
// writes to storage.
func (h *Host) Shutdown() {
	_ = h.Do(context.Background(), func() error {
		for id, e := range h.presets {
			e.Close()
			delete(h.presets, id)
		}
		return nil
	})
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	h.loop.Drain()
	close(h.persistC)
	h.persistW.Wait()
}

// addPreset places an engine in the graph. Runs on the loop.
func (h *Host) addPreset(def config.PresetDef) error {
	if _, ok := h.presets[def.ID]; ok {
		return fmt.Errorf("preset %s: %w", def.ID, patch.ErrNodeExists)
	}
	if _, ok := h.graph.Lookup(def.ID); ok {
		return fmt.Errorf("preset %s: %w", def.ID, patch.ErrNodeExists)
	}
	data, err := h.store.Load(context.Background(), def.ID)
	if err != nil {
		h.log.Warn("preset data unreadable; starting empty", "preset", def.ID, "err", err)
		data = nil
	}
	id := def.ID
	e := preset.New(id, h.graph, preset.Options{
		Logger: h.log,
		Data:   data,
		Props:  def.Props,
		Outlet: func(port preset.Port, v interface{}) { h.record(id, port, v) },
		OnData: func(d preset.Data) { h.persist(id, d) },
	})
	h.presets[id] = e
	h.setLines(id, preset.PortInclude, def.Include)
	h.setLines(id, preset.PortExclude, def.Exclude)
	h.log.Info("preset added", "preset", id, "slots", len(e.Slots()), "inspected", len(e.InspectedSet()))
	return nil
}

// removePreset closes the engine and drops its lines. Persisted data stays.
func (h *Host) removePreset(id string) error {
	e, ok := h.presets[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrPresetNotFound)
	}
	e.Close()
	delete(h.presets, id)
	for _, edge := range h.graph.Edges() {
		if edge.Src == id {
			h.graph.Disconnect(edge.Src, edge.Outlet, edge.Dst)
		}
	}
	h.log.Info("preset removed", "preset", id)
	return nil
}

// setLines makes the lines on one outlet of src exactly dsts.
func (h *Host) setLines(src string, port preset.Port, dsts []string) {
	want := make(map[string]struct{}, len(dsts))
	for _, d := range dsts {
		want[d] = struct{}{}
	}
	for _, d := range h.graph.Destinations(src, int(port)) {
		if _, ok := want[d]; !ok {
			h.graph.Disconnect(src, int(port), d)
		}
	}
	for _, d := range dsts {
		if err := h.graph.Connect(src, int(port), d); err != nil {
			h.log.Warn("line skipped", "src", src, "outlet", int(port), "dst", d, "err", err)
		}
	}
}

func (h *Host) lookupPreset(id string) (*preset.Engine, error) {
	e, ok := h.presets[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrPresetNotFound)
	}
	return e, nil
}

func (h *Host) record(presetID string, port preset.Port, v interface{}) {
	if ev := event.New(presetID, port, v); ev != nil {
		h.events.Append(ev)
	}
}

// persist hands a store snapshot to the writer goroutine. Writes stay in
// the order the engine produced them.
func (h *Host) persist(presetID string, data preset.Data) {
	h.persistC <- persistJob{presetID: presetID, data: data}
}

// purge queues deletion of presetID's stored data behind any pending writes.
func (h *Host) purge(presetID string) {
	h.persistC <- persistJob{presetID: presetID, purge: true}
}

func (h *Host) persistLoop() {
	defer h.persistW.Done()
	for job := range h.persistC {
		if job.purge {
			if err := h.store.Delete(context.Background(), job.presetID); err != nil {
				h.log.Warn("preset data not purged", "preset", job.presetID, "err", err)
			}
			continue
		}
		if err := h.store.Save(context.Background(), job.presetID, job.data); err != nil {
			h.log.Warn("preset data not persisted", "preset", job.presetID, "err", err)
		}
	}
}

func (h *Host) updateQueueGauge() {
	metrics.QueueUtilization.Set(h.QueueUtilization())
}
