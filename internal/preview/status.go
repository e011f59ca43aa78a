package preview

import (
	"sync"
	"time"
)

// buildStatus tracks the latest build result for the HTTP handlers.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	builds       int
	lastBuild    time.Time
}

func (bs *buildStatus) record(err error, at time.Time) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.builds++
	bs.lastBuild = at
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) snapshot() statusSnapshot {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	s := statusSnapshot{
		Builds:       bs.builds,
		HasGoodBuild: bs.hasGoodBuild,
		LastBuild:    bs.lastBuild,
	}
	if bs.lastError != nil {
		s.LastError = bs.lastError.Error()
	}
	return s
}

type statusSnapshot struct {
	Builds       int       `json:"builds"`
	HasGoodBuild bool      `json:"has_good_build"`
	LastBuild    time.Time `json:"last_build,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}
