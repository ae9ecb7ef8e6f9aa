package domain

import "errors"

var (
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrAlreadyVoted       = errors.New("user has already voted")
	ErrPredictionClosed   = errors.New("prediction is not active")
	ErrPredictionExpired  = errors.New("prediction has expired")
	ErrInvalidOption      = errors.New("invalid option for this prediction")
	ErrVoteNotFound       = errors.New("no vote recorded for this prediction")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrTransient          = errors.New("transient storage failure")
	ErrInternal           = errors.New("internal server error")
)
