package domain

import (
	"time"
)

const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// DefaultOptions is the binary option set used when a prediction is
// created without an explicit option list.
var DefaultOptions = []string{"yes", "no"}

type Prediction struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category"`
	Tags        []string         `json:"tags,omitempty"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	Options     []string         `json:"options"`
	Votes       map[string]int64 `json:"votes"`
	TotalVotes  int64            `json:"totalVotes"`
	Status      string           `json:"status"`
	Version     int64            `json:"version"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// HasOption reports whether key belongs to the prediction's option set.
// The option set is fixed for the prediction's lifetime.
func (p *Prediction) HasOption(key string) bool {
	for _, opt := range p.Options {
		if opt == key {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the voting window is shut at the given
// instant. A prediction past ExpiresAt is treated as expired even when
// Status still reads active.
func (p *Prediction) ExpiredAt(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Clone returns a deep copy so a prediction can cross goroutine
// boundaries without sharing the tally map.
func (p *Prediction) Clone() *Prediction {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Votes = make(map[string]int64, len(p.Votes))
	for k, v := range p.Votes {
		cp.Votes[k] = v
	}
	return &cp
}
