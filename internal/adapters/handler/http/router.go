package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(predictionHandler *PredictionHandler, voteHandler *VoteHandler, realtime http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/predictions", func(r chi.Router) {
			r.Get("/", predictionHandler.ListPredictions)
			r.Post("/", predictionHandler.CreatePrediction)
			r.Post("/vote", voteHandler.CastVote)
			r.Get("/{id}", predictionHandler.GetPrediction)
			r.Get("/{id}/my-vote", voteHandler.GetMyVote)
		})
	})

	r.Get("/ws", realtime)

	return r
}
