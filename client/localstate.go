package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// LocalState is the client-side persistence the one-vote invariant
// leans on across visits: the opaque user token, minted once, and the
// per-prediction vote map. The browser original kept this in
// localStorage; here it is one JSON file.
type LocalState struct {
	path string

	mu    sync.Mutex
	token string
	votes map[string]string
}

type localStateFile struct {
	UserToken string            `json:"user_token"`
	Votes     map[string]string `json:"votes"`
}

func LoadLocalState(path string) (*LocalState, error) {
	s := &LocalState{
		path:  path,
		votes: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}

	var file localStateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse local state: %w", err)
	}
	s.token = file.UserToken
	if file.Votes != nil {
		s.votes = file.Votes
	}
	return s, nil
}

// Token returns the persisted user token, minting and saving one on
// first use. Without persistence the server would mint a fresh token
// per request and the invariant could not span visits.
func (s *LocalState) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	s.token = uuid.NewString()
	if err := s.save(); err != nil {
		s.token = ""
		return "", err
	}
	return s.token, nil
}

func (s *LocalState) SetVote(predictionID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[predictionID] = option
	return s.save()
}

func (s *LocalState) Vote(predictionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	option, ok := s.votes[predictionID]
	return option, ok
}

func (s *LocalState) Votes() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.votes))
	for k, v := range s.votes {
		out[k] = v
	}
	return out
}

func (s *LocalState) save() error {
	data, err := json.MarshalIndent(localStateFile{UserToken: s.token, Votes: s.votes}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal local state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write local state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace local state: %w", err)
	}
	return nil
}
