// Package container wraps the Apple container CLI behind three operations
// (version, status, start) and classifies every outcome into either a
// trimmed text payload or a typed *Error.
//
// A System holds no mutable state. Each call performs exactly one process
// invocation, blocks until it exits, and never retries.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deixis/mac/internal/runner"
)

// NotRunningMarker is the substring the CLI prints when its backend is down.
const NotRunningMarker = "apiserver is not running"

// ProcessRunner executes a command and captures its outcome.
// Implemented by runner.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// System is the container CLI facade.
type System struct {
	Runner ProcessRunner
	Binary string // default: container
	Shell  string // default: sh
	Answer string // default: Y
	Logger *slog.Logger
}

// Version runs `container --version` and returns the trimmed version string.
func (s *System) Version(ctx context.Context) (string, error) {
	res, err := s.run(ctx, OpVersion, []string{s.binary(), "--version"})
	if err != nil {
		return "", s.launchFailure(OpVersion, err,
			"Container CLI not found. Please install the Apple Container system.",
			"Failed to execute container command")
	}
	if !res.Success() {
		stderr := strings.TrimSpace(res.StderrText())
		return "", s.fail(&Error{
			Kind:    CommandFailed,
			Op:      OpVersion,
			Message: "Container command failed: " + stderr,
			Detail:  stderr,
			RunID:   res.RunID,
		})
	}
	return strings.TrimSpace(res.StdoutText()), nil
}

// Status runs `container system status`. The apiserver marker is checked
// against stdout+stderr before the exit status, since the CLI can exit zero
// while its backend is down.
func (s *System) Status(ctx context.Context) (string, error) {
	res, err := s.run(ctx, OpStatus, []string{s.binary(), "system", "status"})
	if err != nil {
		return "", s.launchFailure(OpStatus, err,
			"Container CLI not found. Cannot check system status.",
			"Failed to execute container system status")
	}

	stdout := res.StdoutText()
	combined := stdout + res.StderrText()

	if strings.Contains(combined, NotRunningMarker) {
		return "", s.fail(&Error{
			Kind:    SystemNotRunning,
			Op:      OpStatus,
			Message: "Container system is not running. Please start the container system.",
			Detail:  strings.TrimSpace(combined),
			RunID:   res.RunID,
		})
	}

	report := strings.TrimSpace(stdout)
	if res.Success() && report != "" {
		return report, nil
	}

	trimmed := strings.TrimSpace(combined)
	return "", s.fail(&Error{
		Kind:    UnexpectedOutput,
		Op:      OpStatus,
		Message: "Container system status check failed: " + trimmed,
		Detail:  trimmed,
		RunID:   res.RunID,
	})
}

// Start answers the interactive confirmation of `container system start`
// by piping the configured answer into it through a shell. The returned
// output may be empty.
func (s *System) Start(ctx context.Context) (string, error) {
	res, err := s.run(ctx, OpStart, []string{s.shell(), "-c", s.StartScript()})
	if err != nil {
		// The shell is what failed to launch, so "not found" gets no
		// special treatment here.
		e := &Error{
			Kind:    LaunchError,
			Op:      OpStart,
			Message: fmt.Sprintf("Failed to execute container system start: %v", cause(err)),
			Detail:  cause(err).Error(),
		}
		return "", s.fail(e)
	}
	if !res.Success() {
		stderr := strings.TrimSpace(res.StderrText())
		return "", s.fail(&Error{
			Kind:    CommandFailed,
			Op:      OpStart,
			Message: "Failed to start container system: " + stderr,
			Detail:  stderr,
			RunID:   res.RunID,
		})
	}
	return strings.TrimSpace(res.StdoutText()), nil
}

// StartScript returns the shell pipeline used by Start, e.g.
// `echo 'Y' | container system start`.
func (s *System) StartScript() string {
	return fmt.Sprintf("echo %s | %s system start", quote(s.answer()), shellWord(s.binary()))
}

func (s *System) run(ctx context.Context, op Op, argv []string) (*runner.Result, error) {
	s.logger().DebugContext(ctx, "invoking container cli", "op", op, "argv", argv)
	return s.Runner.Run(ctx, argv)
}

// launchFailure splits a launch error into NotInstalled or LaunchError.
func (s *System) launchFailure(op Op, err error, notFound, prefix string) error {
	var le *runner.LaunchError
	if errors.As(err, &le) && le.NotFound() {
		return s.fail(&Error{
			Kind:    NotInstalled,
			Op:      op,
			Message: notFound,
			Detail:  le.Err.Error(),
		})
	}
	return s.fail(&Error{
		Kind:    LaunchError,
		Op:      op,
		Message: fmt.Sprintf("%s: %v", prefix, cause(err)),
		Detail:  cause(err).Error(),
	})
}

func (s *System) fail(e *Error) error {
	s.logger().Info("container operation failed", "op", e.Op, "kind", e.Kind, "run_id", e.RunID)
	return e
}

// cause strips the runner's "executing <name>:" wrapper.
func cause(err error) error {
	var le *runner.LaunchError
	if errors.As(err, &le) {
		return le.Err
	}
	return err
}

func (s *System) binary() string { return orDefault(s.Binary, "container") }
func (s *System) shell() string  { return orDefault(s.Shell, "sh") }
func (s *System) answer() string { return orDefault(s.Answer, "Y") }

func (s *System) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// quote wraps v in single quotes for sh.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// shellWord returns v unquoted when it is a plain path or name.
func shellWord(v string) string {
	special := strings.IndexFunc(v, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./", r))
	})
	if special < 0 {
		return v
	}
	return quote(v)
}
