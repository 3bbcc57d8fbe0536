package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bbrzycki/datasetd/internal/query"
	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/internal/store"
	"github.com/bbrzycki/datasetd/pkg/types"
)

type Handler struct {
	log *slog.Logger
	cfg Config
}

func NewHandler(log *slog.Logger, cfg Config) (*Handler, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("handler config validation failed: %w", err)
	}
	return &Handler{log: log, cfg: cfg}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func (h *Handler) Register(r chi.Router) {
	r.Get(types.HealthzPath, h.healthzHandler)
	r.Get(types.ReadyzPath, h.readyzHandler)
	r.Get(types.DatasetsPath, h.listDatasetsHandler)
	r.Get(types.DatasetsPath+"/{datasetID}", h.describeDatasetHandler)
	r.Post(types.DatasetsPath+"/{datasetID}/query", h.queryDatasetHandler)
}

func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Catalog.Len() == 0 {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "reason": "empty catalog"})
		return
	}
	if h.cfg.Pinger != nil {
		if err := h.cfg.Pinger.Ping(r.Context()); err != nil {
			h.log.Debug("readyz: store not reachable", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "reason": "store unreachable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (h *Handler) listDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	descriptors := h.cfg.Catalog.List()
	out := make([]types.DatasetMeta, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Meta()
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) describeDatasetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	d, err := h.cfg.Catalog.Get(id)
	if err != nil {
		h.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, d.Meta())
}

func (h *Handler) queryDatasetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	d, err := h.cfg.Catalog.Get(id)
	if err != nil {
		QueryRequestsTotal.WithLabelValues(id, "not_found").Inc()
		h.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			QueryRequestsTotal.WithLabelValues(id, "body_too_large").Inc()
			h.writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		QueryRequestsTotal.WithLabelValues(id, "bad_body").Inc()
		h.writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	q := &types.DatasetQuery{}
	if len(body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(q); err != nil {
			QueryRequestsTotal.WithLabelValues(id, "malformed").Inc()
			h.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
			return
		}
	}
	if err := q.Normalize(); err != nil {
		QueryRequestsTotal.WithLabelValues(id, "malformed").Inc()
		h.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	slice, err := h.cfg.Engine.Execute(r.Context(), d, q)
	if err != nil {
		h.writeQueryError(w, id, err)
		return
	}

	QueryRequestsTotal.WithLabelValues(id, "success").Inc()
	QueryRowsReturned.WithLabelValues(id).Observe(float64(slice.Returned))
	h.writeJSON(w, http.StatusOK, slice)
}

// writeQueryError maps engine errors onto the response taxonomy: unknown
// dataset → 404, unknown column → 400, store failure → 503, anything else →
// 500.
func (h *Handler) writeQueryError(w http.ResponseWriter, id string, err error) {
	var ice *query.InvalidColumnError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		QueryRequestsTotal.WithLabelValues(id, "not_found").Inc()
		h.writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ice):
		QueryRequestsTotal.WithLabelValues(id, "invalid_column").Inc()
		h.writeJSONError(w, http.StatusBadRequest, ice.Error())
	case errors.Is(err, store.ErrUnavailable):
		QueryRequestsTotal.WithLabelValues(id, "store_unavailable").Inc()
		h.log.Error("server: store unavailable", "dataset_id", id, "error", err)
		h.writeJSONError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		QueryRequestsTotal.WithLabelValues(id, "error").Inc()
		h.log.Error("server: query failed", "dataset_id", id, "error", err)
		h.writeJSONError(w, http.StatusInternalServerError, "query failed")
	}
}
