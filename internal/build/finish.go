package build

import (
	"context"
	"errors"
	"log/slog"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/history"
	"github.com/blogbuild/blogbuild/internal/logfields"
	"github.com/blogbuild/blogbuild/internal/metrics"
	"github.com/blogbuild/blogbuild/internal/notify"
)

// finish settles the report, records metrics and hands the outcome to history
// and the notifier. Integration failures fail an otherwise successful build;
// after a failed build they are only logged.
func (b *Builder) finish(ctx context.Context, report *Report, runErr error) error {
	report.Duration = b.now().Sub(report.Started)
	report.Status = statusFor(runErr, report)

	b.recorder.ObserveBuildDuration(report.Duration)
	b.recorder.IncBuildOutcome(outcomeFor(report.Status))
	if runErr == nil {
		b.recorder.SetPostsPublished(len(report.Posts))
	}

	// Record the outcome even when ctx has been canceled.
	ctx = context.WithoutCancel(ctx)
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	if b.history != nil {
		if err := b.stage(ctx, StageHistory, func() error {
			return b.history.Append(ctx, historyRecord(report, errText))
		}); err != nil {
			if runErr == nil {
				return berrors.Integration("history", err)
			}
			slog.Warn("Failed to record build history", logfields.BuildID(report.BuildID), logfields.Error(err))
		}
	}

	if b.notifier != nil {
		if err := b.stage(ctx, StageNotify, func() error {
			return b.notifier.Notify(ctx, buildEvent(report, errText))
		}); err != nil {
			if runErr == nil {
				return berrors.Integration("notify", err)
			}
			slog.Warn("Failed to publish build notification", logfields.BuildID(report.BuildID), logfields.Error(err))
		}
	}

	attrs := []any{
		logfields.BuildID(report.BuildID),
		slog.String("status", string(report.Status)),
		logfields.Count(len(report.Posts)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())),
	}
	if runErr != nil {
		slog.Error("Build failed", append(attrs, logfields.Error(runErr))...)
	} else {
		slog.Info("Build completed", append(attrs, slog.Int("changed", report.ChangedPosts()), slog.Int("warnings", len(report.Warnings)))...)
	}
	return runErr
}

func statusFor(err error, report *Report) Status {
	switch {
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case err != nil:
		return StatusFailed
	case len(report.Warnings) > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

func outcomeFor(s Status) metrics.BuildOutcome {
	switch s {
	case StatusSuccess:
		return metrics.OutcomeSuccess
	case StatusWarning:
		return metrics.OutcomeWarning
	case StatusCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

func historyRecord(report *Report, errText string) history.Record {
	outcome := history.OutcomeSuccess
	switch report.Status {
	case StatusWarning:
		outcome = history.OutcomeWarning
	case StatusFailed, StatusCanceled:
		outcome = history.OutcomeFailed
	}

	posts := make([]history.PostRecord, len(report.Posts))
	for i, p := range report.Posts {
		posts[i] = history.PostRecord{URL: p.URL, Src: p.Src, Fingerprint: p.Fingerprint}
	}
	return history.Record{
		BuildID:  report.BuildID,
		Started:  report.Started,
		Duration: report.Duration,
		Outcome:  outcome,
		Warnings: len(report.Warnings),
		Error:    errText,
		Posts:    posts,
	}
}

func buildEvent(report *Report, errText string) notify.BuildEvent {
	posts := make([]notify.PostEvent, len(report.Posts))
	for i, p := range report.Posts {
		posts[i] = notify.PostEvent{URL: p.URL, Src: p.Src, Fingerprint: p.Fingerprint, Changed: p.Changed}
	}
	return notify.BuildEvent{
		BuildID:    report.BuildID,
		Outcome:    string(report.Status),
		Started:    report.Started.UTC(),
		DurationMS: report.Duration.Milliseconds(),
		Posts:      posts,
		Warnings:   report.Warnings,
		Error:      errText,
	}
}
