package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/engine"
	"github.com/gyaneshwarpardhi/patchpreset/internal/metrics"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

const defaultEventCount = 50

// Handler holds all HTTP handler dependencies.
type Handler struct {
	host   *engine.Host
	loader *config.Loader
	kinds  *widget.Registry
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil,
// in which case reload requests are refused.
func New(host *engine.Host, loader *config.Loader, kinds *widget.Registry) http.Handler {
	h := &Handler{host: host, loader: loader, kinds: kinds, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/presets", h.listPresets)
	h.mux.HandleFunc("POST /v1/presets", h.addPreset)
	h.mux.HandleFunc("GET /v1/presets/{id}", h.getPreset)
	h.mux.HandleFunc("DELETE /v1/presets/{id}", h.removePreset)
	h.mux.HandleFunc("POST /v1/presets/{id}/control", h.control)
	h.mux.HandleFunc("POST /v1/presets/{id}/data", h.push)
	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("POST /v1/nodes", h.createNode)
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}", h.removeNode)
	h.mux.HandleFunc("PUT /v1/nodes/{id}/state", h.setNodeState)
	h.mux.HandleFunc("GET /v1/edges", h.listEdges)
	h.mux.HandleFunc("POST /v1/edges", h.connect)
	h.mux.HandleFunc("DELETE /v1/edges", h.disconnect)
	h.mux.HandleFunc("GET /v1/events", h.listEvents)
	h.mux.HandleFunc("POST /v1/config/reload", h.reload)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// GET /v1/presets
func (h *Handler) listPresets(w http.ResponseWriter, r *http.Request) {
	ids, err := h.host.PresetIDs(r.Context())
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": ids})
}

// GET /v1/presets/{id}
func (h *Handler) getPreset(w http.ResponseWriter, r *http.Request) {
	v, err := h.host.Preset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type presetRequest struct {
	ID      string       `json:"id"`
	Include []string     `json:"include"`
	Exclude []string     `json:"exclude"`
	Props   preset.Props `json:"props"`
}

// POST /v1/presets
func (h *Handler) addPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "preset id is required")
		return
	}
	req.Props = req.Props.WithDefaults()
	if probs := req.Props.Validate(); len(probs) > 0 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid props: %v", probs))
		return
	}
	def := config.PresetDef{ID: req.ID, Include: req.Include, Exclude: req.Exclude, Props: req.Props}
	if err := h.host.AddPreset(r.Context(), def); err != nil {
		writeHostError(w, err)
		return
	}
	v, err := h.host.Preset(r.Context(), req.ID)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// DELETE /v1/presets/{id}[?purge=true]. Purging also deletes stored slots.
func (h *Handler) removePreset(w http.ResponseWriter, r *http.Request) {
	purge := false
	if s := r.URL.Query().Get("purge"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid purge %q", s))
			return
		}
		purge = v
	}
	if err := h.host.RemovePreset(r.Context(), r.PathValue("id"), purge); err != nil {
		writeHostError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/presets/{id}/control. The body is the control message itself:
// a slot number, {"store": n}, {"clear": n} or "clearall".
func (h *Handler) control(w http.ResponseWriter, r *http.Request) {
	var msg interface{}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	res, err := h.host.Control(r.Context(), r.PathValue("id"), msg)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/presets/{id}/data. The body maps node ids to state blobs.
func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := h.host.Push(r.Context(), r.PathValue("id"), data); err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pushed": len(data)})
}

// GET /v1/nodes
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.host.Nodes(r.Context())
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"kinds": h.kinds.Names(),
	})
}

type nodeRequest struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind"`
	State patch.State `json:"state"`
}

// POST /v1/nodes
func (h *Handler) createNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, "node kind is required")
		return
	}
	v, err := h.host.CreateNode(r.Context(), req.ID, req.Kind, req.State)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GET /v1/nodes/{id}
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	v, err := h.host.Node(r.Context(), r.PathValue("id"))
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DELETE /v1/nodes/{id}
func (h *Handler) removeNode(w http.ResponseWriter, r *http.Request) {
	if err := h.host.RemoveNode(r.Context(), r.PathValue("id")); err != nil {
		writeHostError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /v1/nodes/{id}/state
func (h *Handler) setNodeState(w http.ResponseWriter, r *http.Request) {
	var st patch.State
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	id := r.PathValue("id")
	if err := h.host.SetNodeState(r.Context(), id, st); err != nil {
		writeHostError(w, err)
		return
	}
	v, err := h.host.Node(r.Context(), id)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GET /v1/edges
func (h *Handler) listEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.host.Edges(r.Context())
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"edges": edges})
}

// POST /v1/edges
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := h.host.Connect(r.Context(), e); err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DELETE /v1/edges
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := h.host.Disconnect(r.Context(), e); err != nil {
		writeHostError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeEdge(w http.ResponseWriter, r *http.Request) (patch.Edge, bool) {
	var e patch.Edge
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return e, false
	}
	if e.Src == "" || e.Dst == "" {
		writeError(w, http.StatusBadRequest, "edge src and dst are required")
		return e, false
	}
	return e, true
}

// GET /v1/events?n=
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	n := defaultEventCount
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid n %q", s))
			return
		}
		n = v
	}
	evs, err := h.host.Events(r.Context(), n)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": evs})
}

// POST /v1/config/reload re-reads the patch file and applies it.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotImplemented, "no patch file configured")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg, h.kinds); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.host.Apply(r.Context(), cfg); err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
		"nodes":    len(cfg.Nodes),
		"presets":  len(cfg.Presets),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the host queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.host.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
