package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

type PredictionHandler struct {
	service ports.PredictionService
}

func NewPredictionHandler(service ports.PredictionService) *PredictionHandler {
	return &PredictionHandler{
		service: service,
	}
}

type createPredictionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	CreatedBy   string    `json:"createdBy"`
	Options     []string  `json:"options"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *PredictionHandler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest))
		return
	}

	input := ports.CreatePredictionInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		CreatedBy:   req.CreatedBy,
		Options:     req.Options,
		ExpiresAt:   req.ExpiresAt,
	}

	prediction, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, prediction)
}

func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, fmt.Errorf("%w: missing prediction id", domain.ErrInvalidRequest))
		return
	}

	prediction, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

// ListPredictions is the snapshot fetch clients use on initial load and
// after a dropped realtime connection.
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	filter := ports.ListFilter{
		Category: r.URL.Query().Get("category"),
		Status:   r.URL.Query().Get("status"),
		Search:   r.URL.Query().Get("search"),
	}
	if filter.Category == "all" {
		filter.Category = ""
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, fmt.Errorf("%w: invalid limit", domain.ErrInvalidRequest))
			return
		}
		filter.Limit = limit
	}

	predictions, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if predictions == nil {
		predictions = []*domain.Prediction{}
	}

	writeJSON(w, http.StatusOK, predictions)
}
