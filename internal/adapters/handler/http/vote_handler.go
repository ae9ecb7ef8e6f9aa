package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

// clientIDHeader carries the caller's realtime connection id, assigned
// by the hub on connect. When present, the resulting broadcast skips
// that connection; the caller already holds the authoritative state
// from the response body.
const clientIDHeader = "X-Client-ID"

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	PredictionID string `json:"prediction_id"`
	Option       string `json:"option"`
	UserToken    string `json:"user_token,omitempty"`
}

type voteResponse struct {
	Prediction *domain.Prediction `json:"prediction"`
	UserVote   string             `json:"user_vote"`
	UserToken  string             `json:"user_token"`
}

func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest))
		return
	}

	input := ports.CastVoteInput{
		PredictionID: req.PredictionID,
		Option:       req.Option,
		UserToken:    req.UserToken,
		ClientID:     r.Header.Get(clientIDHeader),
	}

	result, err := h.service.CastVote(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voteResponse{
		Prediction: result.Prediction,
		UserVote:   result.UserVote,
		UserToken:  result.UserToken,
	})
}

func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	predictionID := chi.URLParam(r, "id")
	userToken := r.URL.Query().Get("user_token")
	if predictionID == "" || userToken == "" {
		writeError(w, fmt.Errorf("%w: prediction id and user_token are required", domain.ErrInvalidRequest))
		return
	}

	record, err := h.service.GetVote(r.Context(), predictionID, userToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"option": record.Option})
}
