// Package history keeps recent container CLI invocations so a failed
// operation can be inspected after the fact by run ID. Entries are
// recorded by wrapping the process runner; the container facade itself
// never sees the store.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/mac/internal/container"
	"github.com/deixis/mac/internal/runner"
)

// ErrNotFound is returned by Load for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves entries.
type Store interface {
	Save(entry *Entry) error
	Load(runID string) (*Entry, error)
}

// Entry is the raw record of one process invocation.
type Entry struct {
	ID          string        `json:"id"`
	Argv        []string      `json:"argv"`
	ExitCode    int           `json:"exit_code"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Truncated   bool          `json:"truncated,omitempty"`
	LaunchError string        `json:"launch_error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Recorder wraps a ProcessRunner and saves every invocation to Store.
// Save failures are logged and never change the returned result.
type Recorder struct {
	Runner container.ProcessRunner
	Store  Store
	Logger *slog.Logger
	now    func() time.Time
}

// Run implements container.ProcessRunner.
func (r *Recorder) Run(ctx context.Context, argv []string) (*runner.Result, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	start := now()
	res, err := r.Runner.Run(ctx, argv)

	entry := &Entry{
		Argv:      append([]string(nil), argv...),
		StartedAt: start,
		Duration:  now().Sub(start),
	}
	if err != nil {
		// The process never started, so no run ID was assigned.
		entry.ID = uuid.NewString()
		entry.ExitCode = -1
		entry.LaunchError = err.Error()
	} else {
		entry.ID = res.RunID
		entry.ExitCode = res.ExitCode
		entry.Stdout = res.StdoutText()
		entry.Stderr = res.StderrText()
		entry.Truncated = res.Truncated
	}

	if saveErr := r.Store.Save(entry); saveErr != nil {
		r.logger().Warn("recording run", "run_id", entry.ID, "error", saveErr)
	}
	return res, err
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Summary returns a one-line description of e.
func (e *Entry) Summary() string {
	status := fmt.Sprintf("exit %d", e.ExitCode)
	if e.LaunchError != "" {
		status = "launch failed"
	}
	return fmt.Sprintf("%s  %s  %v (%s)", e.StartedAt.Format(time.RFC3339), e.ID, e.Argv, status)
}
