// Package notify publishes build results to NATS so other services (a deploy
// hook, a chat bot) can react to new builds.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/blogbuild/blogbuild/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "blogbuild.builds"

// BuildEvent is the message published after each build.
type BuildEvent struct {
	BuildID    string      `json:"build_id"`
	Outcome    string      `json:"outcome"`
	Started    time.Time   `json:"started"`
	DurationMS int64       `json:"duration_ms"`
	Posts      []PostEvent `json:"posts"`
	Warnings   []string    `json:"warnings,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PostEvent describes one published post.
type PostEvent struct {
	URL         string `json:"url"`
	Src         string `json:"src"`
	Fingerprint string `json:"fingerprint"`
	Changed     bool   `json:"changed"`
}

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Notifier publishes build events on a single subject.
type Notifier struct {
	conn    conn
	subject string
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Notifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("blogbuild"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Debug("Connected to NATS", logfields.URL(url), slog.String("subject", subject))
	return newNotifier(nc, subject), nil
}

func newNotifier(c conn, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{conn: c, subject: subject}
}

// Subject returns the subject events are published on.
func (n *Notifier) Subject() string { return n.subject }

// Notify publishes ev and waits until the server has acknowledged it.
func (n *Notifier) Notify(ctx context.Context, ev BuildEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush build event: %w", err)
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", n.subject))
	return nil
}

// Close drops the NATS connection.
func (n *Notifier) Close() {
	if n != nil && n.conn != nil {
		n.conn.Close()
	}
}
