package build

import (
	"time"

	"github.com/blogbuild/blogbuild/internal/linkverify"
)

// Status represents the outcome of a build execution.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusWarning  Status = "warning"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Report describes one build run.
type Report struct {
	BuildID  string
	Started  time.Time
	Duration time.Duration
	Status   Status

	// Removed lists publish-directory entries deleted by the reset.
	Removed []string
	Posts   []PostResult
	// Feed is the written feed path, empty when the feed is disabled.
	Feed        string
	BrokenLinks []linkverify.BrokenLink
	Warnings    []string
}

// PostResult records what happened to one post.
type PostResult struct {
	Src         string
	URL         string
	Kind        string
	Backend     string
	Fingerprint string
	// Changed is true when the fingerprint differs from the last recorded build
	// or no history is available.
	Changed bool
	Bytes   int64
}

// ChangedPosts returns the number of posts whose source changed.
func (r *Report) ChangedPosts() int {
	n := 0
	for _, p := range r.Posts {
		if p.Changed {
			n++
		}
	}
	return n
}
