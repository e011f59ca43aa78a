// Package history persists a record of every build so that past runs can be
// listed and post sources compared against the previous build.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a build id.
var ErrNotFound = errors.New("build record not found")

// Outcome values stored with each record.
const (
	OutcomeSuccess = "success"
	OutcomeWarning = "warning"
	OutcomeFailed  = "failed"
)

// PostRecord is the per-post part of a build record.
type PostRecord struct {
	URL         string
	Src         string
	Fingerprint string
}

// Record describes one build.
type Record struct {
	BuildID  string
	Started  time.Time
	Duration time.Duration
	Outcome  string
	Warnings int
	Error    string
	Posts    []PostRecord
}

// Store defines how build records are persisted and retrieved.
type Store interface {
	// Append stores a record. Build ids are unique.
	Append(ctx context.Context, rec Record) error

	// Get returns the record for buildID, or ErrNotFound.
	Get(ctx context.Context, buildID string) (*Record, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// LastFingerprints maps post URLs to their fingerprint in the most recent
	// successful build. The map is empty when there is none.
	LastFingerprints(ctx context.Context) (map[string]string, error)

	// Close closes the store and releases resources.
	Close() error
}
