package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/predix/api/internal/core/domain"
)

// Machine-readable rejection reasons. Callers never see raw storage
// error detail; every failure maps onto this fixed taxonomy.
const (
	ReasonNotFound         = "not-found"
	ReasonAlreadyVoted     = "already-voted"
	ReasonInactive         = "inactive"
	ReasonExpired          = "expired"
	ReasonInvalidOption    = "invalid-option"
	ReasonInvalidRequest   = "invalid-request"
	ReasonTransientFailure = "transient-failure"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, reason := http.StatusInternalServerError, ""

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, reason = http.StatusBadRequest, ReasonInvalidRequest
	case errors.Is(err, domain.ErrInvalidOption):
		status, reason = http.StatusBadRequest, ReasonInvalidOption
	case errors.Is(err, domain.ErrPredictionNotFound):
		status, reason = http.StatusNotFound, ReasonNotFound
	case errors.Is(err, domain.ErrVoteNotFound):
		status, reason = http.StatusNotFound, ReasonNotFound
	case errors.Is(err, domain.ErrAlreadyVoted):
		status, reason = http.StatusConflict, ReasonAlreadyVoted
	case errors.Is(err, domain.ErrPredictionClosed):
		status, reason = http.StatusConflict, ReasonInactive
	case errors.Is(err, domain.ErrPredictionExpired):
		status, reason = http.StatusConflict, ReasonExpired
	case errors.Is(err, domain.ErrTransient):
		status, reason = http.StatusServiceUnavailable, ReasonTransientFailure
	default:
		writeJSON(w, status, errorResponse{Error: domain.ErrInternal.Error(), Reason: ReasonTransientFailure})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Reason: reason})
}
