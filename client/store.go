// Package client implements the browser-side half of the voting flow:
// an optimistic local store that converges to the authoritative server
// state. It is pure state-machine logic with no network dependency, so
// the merge rules are testable independent of timing.
package client

import (
	"errors"
	"sort"
	"sync"

	"github.com/predix/api/internal/core/domain"
)

var (
	// ErrAlreadyVotedLocally guards repeat attempts before any network
	// call is made.
	ErrAlreadyVotedLocally = errors.New("already voted on this prediction")
	ErrUnknownPrediction   = errors.New("prediction not in local store")
	ErrUnknownOption       = errors.New("option not in local prediction")
)

// VoteState tracks one prediction's vote from this client's point of
// view.
type VoteState int

const (
	Unvoted VoteState = iota
	OptimisticallyVoted
	Confirmed
)

// Store reconciles three inputs into one consistent local view: the
// user's own optimistic votes, the server's authoritative responses,
// and broadcasts relayed from other clients. All merges of
// authoritative state are keyed by the prediction version: strictly
// newer wins, equal or older is dropped regardless of arrival order.
type Store struct {
	mu          sync.Mutex
	predictions map[string]*domain.Prediction
	// versions holds the last authoritative version applied per
	// prediction. An optimistic bump never advances it.
	versions map[string]int64
	votes    map[string]string
	states   map[string]VoteState
	// optimistic marks predictions whose local tally still carries the
	// unconfirmed increment. Adopting authoritative state discards that
	// increment along with the replaced copy, so adopt clears the mark
	// and a later rollback must not decrement again.
	optimistic map[string]bool
}

func NewStore() *Store {
	return &Store{
		predictions: make(map[string]*domain.Prediction),
		versions:    make(map[string]int64),
		votes:       make(map[string]string),
		states:      make(map[string]VoteState),
		optimistic:  make(map[string]bool),
	}
}

// ApplySnapshot merges a full listing fetched on load or reconnect.
// Per-prediction version guards keep a slow snapshot response from
// clobbering a newer broadcast that arrived first.
func (s *Store) ApplySnapshot(predictions []*domain.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range predictions {
		s.adopt(p)
	}
}

// VoteLocally applies the optimistic local vote: tally bumped by one
// immediately, has-voted flag set, before any network request. Repeat
// attempts are refused here, without a network call.
func (s *Store) VoteLocally(predictionID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, voted := s.votes[predictionID]; voted {
		return ErrAlreadyVotedLocally
	}
	p, ok := s.predictions[predictionID]
	if !ok {
		return ErrUnknownPrediction
	}
	if !p.HasOption(option) {
		return ErrUnknownOption
	}

	p.Votes[option]++
	p.TotalVotes++
	s.votes[predictionID] = option
	s.states[predictionID] = OptimisticallyVoted
	s.optimistic[predictionID] = true
	return nil
}

// ConfirmVote applies the server's success response: the local state is
// replaced wholesale by the authoritative prediction, keyed by version.
// A response staler than what a broadcast already delivered is dropped,
// but the vote still counts as confirmed.
func (s *Store) ConfirmVote(prediction *domain.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adopt(prediction)
	s.states[prediction.ID] = Confirmed
}

// RejectVote rolls the optimistic state back after a server rejection.
// For already-voted the has-voted flag stays set, since the user did
// vote, just earlier or elsewhere, but the optimistic increment is removed
// and the caller must resynchronize the tally from a fresh fetch. Every
// other reason (including a transient failure, and how a caller should
// treat a timed-out request) means the vote was never recorded: the
// increment is rolled back and the flag cleared.
func (s *Store) RejectVote(predictionID string, alreadyVoted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	option, voted := s.votes[predictionID]
	if !voted || s.states[predictionID] != OptimisticallyVoted {
		return
	}

	// Only undo an increment that is still present. If a newer
	// broadcast already replaced the tally wholesale, the increment is
	// gone and decrementing would corrupt the adopted state.
	if s.optimistic[predictionID] {
		if p, ok := s.predictions[predictionID]; ok {
			p.Votes[option]--
			p.TotalVotes--
		}
		delete(s.optimistic, predictionID)
	}

	if alreadyVoted {
		s.states[predictionID] = Confirmed
		return
	}
	delete(s.votes, predictionID)
	s.states[predictionID] = Unvoted
}

// ApplyBroadcast folds in an event relayed from another client.
// Duplicates and out-of-order deliveries are absorbed by the version
// guard: applying the same event twice, or an older after a newer, is a
// no-op.
func (s *Store) ApplyBroadcast(event domain.Event) {
	if event.Prediction == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case domain.EventPredictionAdded, domain.EventPredictionUpdated:
		s.adopt(event.Prediction)
	}
}

// adopt replaces local state wholesale when the incoming version is
// strictly newer. Last-writer-wins by version number, never by arrival
// time. Callers hold s.mu.
func (s *Store) adopt(p *domain.Prediction) {
	known, seen := s.versions[p.ID]
	if seen && p.Version <= known {
		return
	}
	s.predictions[p.ID] = p.Clone()
	s.versions[p.ID] = p.Version
	delete(s.optimistic, p.ID)
}

func (s *Store) Prediction(id string) (*domain.Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.predictions[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (s *Store) Predictions() []*domain.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Prediction, 0, len(s.predictions))
	for _, p := range s.predictions {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) HasVoted(predictionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, voted := s.votes[predictionID]
	return voted
}

func (s *Store) State(predictionID string) VoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[predictionID]
}
