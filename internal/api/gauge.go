package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/speedwagon-io/gauge/internal/gauge"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/model"
)

type LatestFunc func() []*model.Envelope

type ClassifyResponse struct {
	Metric gauge.Metric `json:"metric"`
	Value  string       `json:"value"`
	Level  gauge.Level  `json:"level"`
}

type ThresholdsResponse map[gauge.Metric]gauge.Thresholds

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	log    *slog.Logger
	latest LatestFunc
}

func NewHandler(log *slog.Logger, latest LatestFunc) *Handler {
	return &Handler{log: log, latest: latest}
}

// Routes is meant to be mounted under /api/v1.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/gauge/thresholds", h.handleThresholds)
	r.Get("/gauge/{metric}", h.handleClassify)
	r.Get("/readings", h.handleReadings)

	return r
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	metric, err := gauge.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("value"))
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("missing value"))
		return
	}

	value, err := gauge.ParseValue(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("value is not a number"))
		return
	}

	h.writeJSON(w, http.StatusOK, ClassifyResponse{
		Metric: metric,
		Value:  raw,
		Level:  metric.Level(value),
	})
}

func (h *Handler) handleThresholds(w http.ResponseWriter, r *http.Request) {
	resp := make(ThresholdsResponse, len(gauge.Metrics()))
	for _, m := range gauge.Metrics() {
		t, _ := m.Thresholds()
		resp[m] = t
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request) {
	envelopes := []*model.Envelope{}
	if h.latest != nil {
		envelopes = append(envelopes, h.latest()...)
	}
	h.writeJSON(w, http.StatusOK, envelopes)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", sl.Err(err))
	}
}
