// Package store persists completed interactions: what the user expressed,
// what was answered, and which provider answered it.
package store

import (
	"context"
	"errors"
	"time"
)

// Interaction types.
const (
	TypeRespond = "respond"
	TypeChat    = "chat"
	TypeSpeak   = "speak"
)

// DefaultLimit caps Query when Filter.Limit is zero.
const DefaultLimit = 50

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored interaction.
type Record struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id,omitempty"`
	Type         string             `json:"type"`
	Input        string             `json:"input,omitempty"`
	Emotion      string             `json:"emotion,omitempty"`
	Confidence   float64            `json:"confidence,omitempty"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	Response     string             `json:"response"`
	ProviderUsed string             `json:"provider_used"`
	IsFallback   bool               `json:"is_fallback"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	UserID  string
	Type    string
	Emotion string
	Since   time.Time
	Limit   int
}

// Store saves and queries interaction records.
type Store interface {
	// Save stores r and returns its ID. An empty r.ID is assigned.
	Save(ctx context.Context, r *Record) (string, error)

	// Get returns the record with id.
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns matching records, newest first.
	Query(ctx context.Context, f Filter) ([]Record, error)

	// Close releases the store.
	Close() error
}
