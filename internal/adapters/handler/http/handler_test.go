package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/predix/api/internal/adapters/repository/memory"
	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
	"github.com/predix/api/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(domain.Event)               {}
func (noopBroadcaster) PublishExcept(domain.Event, string) {}

func newTestServer(t *testing.T) (*httptest.Server, ports.PredictionService) {
	t.Helper()
	ledger, err := memory.NewLedger("")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	predictionService := services.NewPredictionService(ledger, noopBroadcaster{})
	voteService := services.NewVoteService(ledger, noopBroadcaster{}, logger)

	handler := NewHandler(
		NewPredictionHandler(predictionService),
		NewVoteHandler(voteService),
		func(w http.ResponseWriter, r *http.Request) {},
	)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, predictionService
}

func createPrediction(t *testing.T, service ports.PredictionService, title, category string) *domain.Prediction {
	t.Helper()
	p, err := service.Create(context.Background(), ports.CreatePredictionInput{
		Title:     title,
		Category:  category,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return p
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCastVote(t *testing.T) {
	server, service := newTestServer(t)
	p := createPrediction(t, service, "Will it rain tomorrow?", "weather")

	resp := postJSON(t, server.URL+"/api/predictions/vote", map[string]string{
		"prediction_id": p.ID,
		"option":        "yes",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result voteResponse
	decodeBody(t, resp, &result)
	assert.Equal(t, "yes", result.UserVote)
	assert.NotEmpty(t, result.UserToken)
	require.NotNil(t, result.Prediction)
	assert.Equal(t, int64(1), result.Prediction.Votes["yes"])
	assert.Equal(t, int64(1), result.Prediction.TotalVotes)
	assert.Equal(t, int64(1), result.Prediction.Version)
}

func TestCastVoteTwiceConflicts(t *testing.T) {
	server, service := newTestServer(t)
	p := createPrediction(t, service, "Will it rain tomorrow?", "weather")

	first := postJSON(t, server.URL+"/api/predictions/vote", map[string]string{
		"prediction_id": p.ID,
		"option":        "yes",
	})
	require.Equal(t, http.StatusOK, first.StatusCode)
	var result voteResponse
	decodeBody(t, first, &result)

	second := postJSON(t, server.URL+"/api/predictions/vote", map[string]string{
		"prediction_id": p.ID,
		"option":        "no",
		"user_token":    result.UserToken,
	})
	require.Equal(t, http.StatusConflict, second.StatusCode)
	var body errorResponse
	decodeBody(t, second, &body)
	assert.Equal(t, ReasonAlreadyVoted, body.Reason)
}

func TestCastVoteErrors(t *testing.T) {
	server, service := newTestServer(t)
	p := createPrediction(t, service, "Will it rain tomorrow?", "weather")

	tests := []struct {
		name       string
		request    map[string]string
		wantStatus int
		wantReason string
	}{
		{
			name:       "unknown prediction",
			request:    map[string]string{"prediction_id": "nope", "option": "yes"},
			wantStatus: http.StatusNotFound,
			wantReason: ReasonNotFound,
		},
		{
			name:       "unknown option",
			request:    map[string]string{"prediction_id": p.ID, "option": "maybe"},
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidOption,
		},
		{
			name:       "missing option",
			request:    map[string]string{"prediction_id": p.ID},
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "missing prediction id",
			request:    map[string]string{"option": "yes"},
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/predictions/vote", tt.request)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body errorResponse
			decodeBody(t, resp, &body)
			assert.Equal(t, tt.wantReason, body.Reason)
		})
	}
}

func TestCastVoteOnExpiredPrediction(t *testing.T) {
	server, service := newTestServer(t)

	// Create refuses past expirations, so open a short window and let
	// it close.
	short, err := service.Create(context.Background(), ports.CreatePredictionInput{
		Title:     "Closing soon",
		Category:  "misc",
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	resp := postJSON(t, server.URL+"/api/predictions/vote", map[string]string{
		"prediction_id": short.ID,
		"option":        "yes",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, ReasonExpired, body.Reason)
}

func TestGetPrediction(t *testing.T) {
	server, service := newTestServer(t)
	p := createPrediction(t, service, "Will it rain tomorrow?", "weather")

	resp, err := http.Get(fmt.Sprintf("%s/api/predictions/%s", server.URL, p.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.Prediction
	decodeBody(t, resp, &got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Will it rain tomorrow?", got.Title)
	assert.Equal(t, []string{"yes", "no"}, got.Options)

	missing, err := http.Get(server.URL + "/api/predictions/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestListPredictions(t *testing.T) {
	server, service := newTestServer(t)
	createPrediction(t, service, "Will it rain tomorrow?", "weather")
	createPrediction(t, service, "Will the home team win?", "sports")

	resp, err := http.Get(server.URL + "/api/predictions?category=sports")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var predictions []*domain.Prediction
	decodeBody(t, resp, &predictions)
	require.Len(t, predictions, 1)
	assert.Equal(t, "Will the home team win?", predictions[0].Title)

	all, err := http.Get(server.URL + "/api/predictions?category=all")
	require.NoError(t, err)
	defer all.Body.Close()
	decodeBody(t, all, &predictions)
	assert.Len(t, predictions, 2)

	bad, err := http.Get(server.URL + "/api/predictions?limit=abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestListPredictionsEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/predictions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body), "an empty listing must be an array, not null")
}

func TestCreatePrediction(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/predictions", map[string]any{
		"title":     "Will it rain tomorrow?",
		"category":  "weather",
		"tags":      []string{"rain", "forecast"},
		"expiresAt": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p domain.Prediction
	decodeBody(t, resp, &p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, []string{"yes", "no"}, p.Options)
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Equal(t, int64(0), p.Version)
}

func TestCreatePredictionValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/predictions", map[string]any{
		"category":  "weather",
		"expiresAt": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, ReasonInvalidRequest, body.Reason)
}

func TestGetMyVote(t *testing.T) {
	server, service := newTestServer(t)
	p := createPrediction(t, service, "Will it rain tomorrow?", "weather")

	voted := postJSON(t, server.URL+"/api/predictions/vote", map[string]string{
		"prediction_id": p.ID,
		"option":        "yes",
	})
	require.Equal(t, http.StatusOK, voted.StatusCode)
	var result voteResponse
	decodeBody(t, voted, &result)

	resp, err := http.Get(fmt.Sprintf("%s/api/predictions/%s/my-vote?user_token=%s", server.URL, p.ID, result.UserToken))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vote map[string]string
	decodeBody(t, resp, &vote)
	assert.Equal(t, "yes", vote["option"])

	none, err := http.Get(fmt.Sprintf("%s/api/predictions/%s/my-vote?user_token=unknown", server.URL, p.ID))
	require.NoError(t, err)
	defer none.Body.Close()
	assert.Equal(t, http.StatusNotFound, none.StatusCode)
}
