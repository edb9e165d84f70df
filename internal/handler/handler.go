package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"linkwatch/internal/codec"
	"linkwatch/internal/domain"
	"linkwatch/internal/loader"
	"linkwatch/internal/repository"
	"linkwatch/internal/service"
)

// Handler serves the monitoring API
type Handler struct {
	monitor *service.HealthMonitor
	diag    *service.DiagnosticsService
	store   repository.TopologyStore
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates a handler. store may be nil.
func New(monitor *service.HealthMonitor, diag *service.DiagnosticsService, store repository.TopologyStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		monitor: monitor,
		diag:    diag,
		store:   store,
		clock:   clockwork.NewRealClock(),
		logger:  logger.With("component", "http"),
	}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TopologyResponse is the public view of the configured topology
type TopologyResponse struct {
	Devices     []domain.Device     `json:"devices"`
	Edges       []domain.Edge       `json:"edges"`
	Attachments map[string][]string `json:"attachments"`
	Uplinks     map[string]string   `json:"uplinks,omitempty"`
}

// Health reports liveness of the process
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// GetTopology returns devices, edges and attachments without credentials
func (h *Handler) GetTopology(w http.ResponseWriter, r *http.Request) {
	topo := h.monitor.Context().Topology
	resp := TopologyResponse{
		Devices:     make([]domain.Device, 0, len(topo.Devices)),
		Edges:       topo.Edges,
		Attachments: topo.Attachments,
		Uplinks:     topo.Uplinks,
	}
	for _, d := range topo.Devices {
		resp.Devices = append(resp.Devices, d.Public())
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// ExportTopology returns the topology as a loadable YAML document
func (h *Handler) ExportTopology(w http.ResponseWriter, r *http.Request) {
	data, err := loader.ExportYAML(h.monitor.Context().Topology)
	if err != nil {
		h.logger.Error("failed to export topology", "error", err)
		h.writeError(w, "Failed to export topology", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=topology.yaml")
	w.Write(data)
}

// GetStoreInfo describes the persisted topology
func (h *Handler) GetStoreInfo(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, "Not found", "no topology store configured", http.StatusNotFound)
		return
	}
	info, err := h.store.Info(r.Context())
	if errors.Is(err, repository.ErrNoTopology) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to read store info", "error", err)
		h.writeError(w, "Failed to read store", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, info, http.StatusOK)
}

// ListEdges returns the current edge status snapshot.
// ?format=json|yaml|table selects the encoding.
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	exporter, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	status := h.monitor.Status()
	runID := status.RunID
	if runID == "" && status.LastRun != nil {
		runID = status.LastRun.ID
	}
	snapshot := codec.NewSnapshot(h.monitor.Edges(), runID, h.clock.Now())

	w.Header().Set("Content-Type", exporter.ContentType())
	if err := exporter.Export(snapshot, w); err != nil {
		h.logger.Warn("failed to write snapshot", "format", exporter.Format(), "error", err)
	}
}

// GetMonitor returns the running flag, progress and last run summary
func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.monitor.Status(), http.StatusOK)
}

// StartRun triggers a monitoring run in the background
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	id, err := h.monitor.Start(r.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		h.writeError(w, "Run in progress", err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("failed to start run", "error", err)
		h.writeError(w, "Failed to start run", err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("monitoring run requested", "run_id", id, "operator", OperatorFromContext(r.Context()))
	h.writeJSON(w, map[string]string{"run_id": id, "status": "started"}, http.StatusAccepted)
}

// CancelRun stops the active run
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	cancelled := h.monitor.Cancel()
	if cancelled {
		h.logger.Info("monitoring run cancelled", "operator", OperatorFromContext(r.Context()))
	}
	h.writeJSON(w, map[string]bool{"cancelled": cancelled}, http.StatusOK)
}

// GetDevice returns one device with its neighbourhood and edge states
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	detail, err := h.diag.Describe(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, detail, http.StatusOK)
}

// GetDiagnostics runs the diagnostic command set against a router
func (h *Handler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	report, err := h.diag.Fetch(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// GetLiveness reports whether a router's session port accepts connections
func (h *Handler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	alive, err := h.diag.Liveness(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{"router": name, "accessible": alive}, http.StatusOK)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNotRouter):
		h.writeError(w, "Not a router", err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrDiagnosticsUnavailable):
		h.writeError(w, "Router unreachable", err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, "Internal error", err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
