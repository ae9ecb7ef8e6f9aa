package client

import (
	"testing"
	"time"

	"github.com/predix/api/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverPrediction(version, yes, no int64) *domain.Prediction {
	return &domain.Prediction{
		ID:         "p1",
		Title:      "Will it rain tomorrow?",
		Category:   "weather",
		Options:    []string{"yes", "no"},
		Votes:      map[string]int64{"yes": yes, "no": no},
		TotalVotes: yes + no,
		Status:     domain.StatusActive,
		Version:    version,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func newVotedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	store.ApplySnapshot([]*domain.Prediction{serverPrediction(0, 0, 0)})
	require.NoError(t, store.VoteLocally("p1", "yes"))
	return store
}

func TestOptimisticVote(t *testing.T) {
	store := newVotedStore(t)

	p, ok := store.Prediction("p1")
	require.True(t, ok)
	assert.Equal(t, int64(1), p.Votes["yes"])
	assert.Equal(t, int64(1), p.TotalVotes)
	// The optimistic bump is local; the authoritative version is untouched.
	assert.Equal(t, int64(0), p.Version)
	assert.True(t, store.HasVoted("p1"))
	assert.Equal(t, OptimisticallyVoted, store.State("p1"))
}

func TestRepeatVoteRefusedLocally(t *testing.T) {
	store := newVotedStore(t)
	assert.ErrorIs(t, store.VoteLocally("p1", "no"), ErrAlreadyVotedLocally)
	assert.ErrorIs(t, store.VoteLocally("p1", "yes"), ErrAlreadyVotedLocally)
}

func TestVoteLocallyRejectsUnknowns(t *testing.T) {
	store := NewStore()
	assert.ErrorIs(t, store.VoteLocally("p1", "yes"), ErrUnknownPrediction)

	store.ApplySnapshot([]*domain.Prediction{serverPrediction(0, 0, 0)})
	assert.ErrorIs(t, store.VoteLocally("p1", "maybe"), ErrUnknownOption)
}

func TestConfirmReplacesWholesale(t *testing.T) {
	store := newVotedStore(t)

	// Server response shows more votes than we knew about.
	store.ConfirmVote(serverPrediction(5, 3, 2))

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(3), p.Votes["yes"])
	assert.Equal(t, int64(5), p.TotalVotes)
	assert.Equal(t, int64(5), p.Version)
	assert.Equal(t, Confirmed, store.State("p1"))
}

func TestStaleConfirmDropped(t *testing.T) {
	store := newVotedStore(t)

	// A broadcast got here before our own response did.
	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(7, 4, 3)})
	store.ConfirmVote(serverPrediction(5, 3, 2))

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(7), p.Version, "stale response must not overwrite a newer broadcast")
	assert.Equal(t, int64(4), p.Votes["yes"])
	// The vote is still confirmed either way.
	assert.Equal(t, Confirmed, store.State("p1"))
}

func TestRejectRollsBack(t *testing.T) {
	store := newVotedStore(t)
	store.RejectVote("p1", false)

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(0), p.Votes["yes"])
	assert.Equal(t, int64(0), p.TotalVotes)
	assert.False(t, store.HasVoted("p1"))
	assert.Equal(t, Unvoted, store.State("p1"))

	// The user can try again.
	assert.NoError(t, store.VoteLocally("p1", "no"))
}

func TestRejectAlreadyVotedKeepsFlag(t *testing.T) {
	store := newVotedStore(t)
	store.RejectVote("p1", true)

	// The tally is never left optimistically incremented without
	// confirmation.
	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(0), p.Votes["yes"])
	// But the user did vote, just earlier or elsewhere.
	assert.True(t, store.HasVoted("p1"))
	assert.ErrorIs(t, store.VoteLocally("p1", "yes"), ErrAlreadyVotedLocally)
}

func TestRejectAfterNewerBroadcast(t *testing.T) {
	store := newVotedStore(t)

	// Someone else's vote lands and is adopted while ours is still in
	// flight; the optimistic increment is gone with the replaced copy.
	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(1, 0, 1)})
	store.RejectVote("p1", false)

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(0), p.Votes["yes"], "rollback must not subtract from the adopted tally")
	assert.Equal(t, int64(1), p.Votes["no"])
	assert.Equal(t, int64(1), p.TotalVotes)
	assert.Equal(t, int64(1), p.Version)
	assert.False(t, store.HasVoted("p1"))
	assert.NoError(t, store.VoteLocally("p1", "yes"))
}

func TestRejectAlreadyVotedAfterNewerBroadcast(t *testing.T) {
	store := newVotedStore(t)

	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(2, 1, 1)})
	store.RejectVote("p1", true)

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(1), p.Votes["yes"])
	assert.Equal(t, int64(2), p.TotalVotes)
	assert.True(t, store.HasVoted("p1"))
	assert.Equal(t, Confirmed, store.State("p1"))
}

func TestBroadcastIdempotent(t *testing.T) {
	store := NewStore()
	store.ApplySnapshot([]*domain.Prediction{serverPrediction(0, 0, 0)})

	event := domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(5, 3, 2)}
	store.ApplyBroadcast(event)
	once, _ := store.Prediction("p1")

	store.ApplyBroadcast(event)
	twice, _ := store.Prediction("p1")

	assert.Equal(t, once, twice, "the same event applied twice must be a no-op")
	assert.Equal(t, int64(5), twice.TotalVotes)
}

func TestBroadcastOutOfOrder(t *testing.T) {
	store := NewStore()
	store.ApplySnapshot([]*domain.Prediction{serverPrediction(0, 0, 0)})

	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(5, 3, 2)})
	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(3, 2, 1)})

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(5), p.Version, "older version must be discarded")
	assert.Equal(t, int64(3), p.Votes["yes"])
}

func TestBroadcastNewPrediction(t *testing.T) {
	store := NewStore()

	added := serverPrediction(0, 0, 0)
	added.ID = "p2"
	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionAdded, Prediction: added})

	p, ok := store.Prediction("p2")
	require.True(t, ok)
	assert.Equal(t, int64(0), p.TotalVotes)
}

func TestSnapshotGuardedByVersion(t *testing.T) {
	store := NewStore()
	store.ApplyBroadcast(domain.Event{Type: domain.EventPredictionUpdated, Prediction: serverPrediction(9, 5, 4)})

	// A reconnect snapshot computed before that broadcast.
	store.ApplySnapshot([]*domain.Prediction{serverPrediction(8, 5, 3)})

	p, _ := store.Prediction("p1")
	assert.Equal(t, int64(9), p.Version)
}
