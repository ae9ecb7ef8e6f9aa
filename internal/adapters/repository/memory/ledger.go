package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/predix/api/internal/core/domain"
	"github.com/predix/api/internal/core/ports"
)

const snapshotFormatVersion = 1

// snapshot is the on-disk envelope. The explicit format version lets
// later formats unmarshal older files.
type snapshot struct {
	FormatVersion int                           `json:"format_version"`
	Predictions   map[string]*domain.Prediction `json:"predictions"`
	Votes         []domain.VoteRecord           `json:"votes"`
}

type voteKey struct {
	predictionID string
	userToken    string
}

// Ledger implements ports.PredictionLedger in memory, snapshotting the
// whole state to a JSON file before a mutation returns. A per-prediction
// mutex map gives the same isolation the postgres adapter gets from row
// locks: callers for the same prediction serialize, callers for
// different predictions run in parallel.
//
// With an empty path the ledger is purely in-memory, which is what the
// unit tests use.
type Ledger struct {
	path string

	mu          sync.Mutex
	predictions map[string]*domain.Prediction
	votes       map[voteKey]domain.VoteRecord
	locks       map[string]*sync.Mutex

	// fileMu pins every snapshot write to the mutation it captures: the
	// mutation, the write, and any revert happen under one hold, so a
	// rolled-back change can never survive in another caller's
	// snapshot, and a later state never loses to an earlier one racing
	// it to the file.
	fileMu sync.Mutex
}

func NewLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path:        path,
		predictions: make(map[string]*domain.Prediction),
		votes:       make(map[voteKey]domain.VoteRecord),
		locks:       make(map[string]*sync.Mutex),
	}
	if path != "" {
		if err := l.load(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	for id, p := range snap.Predictions {
		l.predictions[id] = p
	}
	for _, v := range snap.Votes {
		l.votes[voteKey{v.PredictionID, v.UserToken}] = v
	}
	return nil
}

func (l *Ledger) predictionLock(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}

// commit applies stage, snapshots to disk, and reverts the in-memory
// state when the write fails. Both callbacks run under l.mu; the whole
// sequence runs under fileMu.
func (l *Ledger) commit(stage, revert func()) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	stage()
	l.mu.Unlock()

	if err := l.persistLocked(); err != nil {
		l.mu.Lock()
		revert()
		l.mu.Unlock()
		return err
	}
	return nil
}

// persistLocked writes the full state to disk via temp file + rename,
// so a crash mid-write leaves the previous snapshot intact. Callers
// hold fileMu.
func (l *Ledger) persistLocked() error {
	if l.path == "" {
		return nil
	}

	l.mu.Lock()
	snap := snapshot{
		FormatVersion: snapshotFormatVersion,
		Predictions:   l.predictions,
		Votes:         make([]domain.VoteRecord, 0, len(l.votes)),
	}
	for _, v := range l.votes {
		snap.Votes = append(snap.Votes, v)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (l *Ledger) Save(ctx context.Context, prediction *domain.Prediction) error {
	stored := prediction.Clone()

	var previous *domain.Prediction
	return l.commit(
		func() {
			previous = l.predictions[stored.ID]
			l.predictions[stored.ID] = stored
		},
		func() {
			if previous != nil {
				l.predictions[stored.ID] = previous
			} else {
				delete(l.predictions, stored.ID)
			}
		},
	)
}

func (l *Ledger) GetByID(ctx context.Context, id string) (*domain.Prediction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prediction, ok := l.predictions[id]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	return prediction.Clone(), nil
}

func (l *Ledger) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Prediction, error) {
	l.mu.Lock()
	var predictions []*domain.Prediction
	for _, p := range l.predictions {
		if matches(p, filter) {
			predictions = append(predictions, p.Clone())
		}
	}
	l.mu.Unlock()

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].CreatedAt.After(predictions[j].CreatedAt)
	})

	if filter.Limit > 0 && len(predictions) > filter.Limit {
		predictions = predictions[:filter.Limit]
	}
	return predictions, nil
}

func matches(p *domain.Prediction, filter ports.ListFilter) bool {
	if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
		return false
	}
	if filter.Status != "" && p.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		term := strings.ToLower(filter.Search)
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				return true
			}
		}
		return false
	}
	return true
}

// ApplyVote records a vote atomically with respect to concurrent calls
// for the same prediction. On any failure, including a failed snapshot
// write, the stored state is left exactly as it was.
func (l *Ledger) ApplyVote(ctx context.Context, predictionID, userToken, option string) (*domain.Prediction, error) {
	lock := l.predictionLock(predictionID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	current, ok := l.predictions[predictionID]
	if !ok {
		l.mu.Unlock()
		return nil, domain.ErrPredictionNotFound
	}
	key := voteKey{predictionID, userToken}
	_, voted := l.votes[key]
	current = current.Clone()
	l.mu.Unlock()

	if current.Status != domain.StatusActive {
		return nil, domain.ErrPredictionClosed
	}
	if current.ExpiredAt(time.Now()) {
		return nil, domain.ErrPredictionExpired
	}
	if !current.HasOption(option) {
		return nil, domain.ErrInvalidOption
	}
	if voted {
		return nil, domain.ErrAlreadyVoted
	}

	updated := current
	updated.Votes[option]++
	updated.TotalVotes++
	updated.Version++

	record := domain.VoteRecord{
		PredictionID: predictionID,
		UserToken:    userToken,
		Option:       option,
		CreatedAt:    time.Now(),
	}

	var previous *domain.Prediction
	err := l.commit(
		func() {
			previous = l.predictions[predictionID]
			l.predictions[predictionID] = updated
			l.votes[key] = record
		},
		func() {
			l.predictions[predictionID] = previous
			delete(l.votes, key)
		},
	)
	if err != nil {
		return nil, err
	}

	return updated.Clone(), nil
}

func (l *Ledger) GetVote(ctx context.Context, predictionID, userToken string) (*domain.VoteRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.votes[voteKey{predictionID, userToken}]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	return &record, nil
}

// CountVotes implements ports.TallyAuditRepository by recounting from
// the vote records.
func (l *Ledger) CountVotes(ctx context.Context, predictionID string) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int64)
	for key, record := range l.votes {
		if key.predictionID == predictionID {
			counts[record.Option]++
		}
	}
	return counts, nil
}
