// Package preflight runs the startup readiness checks the desktop shell
// needs before it can manage containers: the CLI must be installed and its
// system must be running. Checks run in order and stop on first failure.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/mac/internal/container"
)

// Step names.
const (
	StepInstalled = "installed"
	StepRunning   = "running"
)

// Step statuses.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusSkipped = "skipped"
	StatusStarted = "started" // running failed, start succeeded, re-check passed
)

// Facade is the subset of container.System used by the checker.
type Facade interface {
	Version(ctx context.Context) (string, error)
	Status(ctx context.Context) (string, error)
	Start(ctx context.Context) (string, error)
}

// Checker runs the readiness pipeline.
type Checker struct {
	System    Facade
	AutoStart bool // start the system when it is found stopped
}

// Step holds the outcome of a single check.
type Step struct {
	Name   string
	Status string
	Detail string // payload on success, message on failure
	Err    error  // nil unless Status is fail
}

// Report holds the full outcome of a preflight run.
type Report struct {
	Steps     []Step
	FailedIdx int // -1 if all passed
	Version   string
	Status    string
}

// Ready reports whether every step passed.
func (r *Report) Ready() bool { return r.FailedIdx < 0 }

// Failure returns the error of the failed step, or nil.
func (r *Report) Failure() error {
	if r.Ready() {
		return nil
	}
	return r.Steps[r.FailedIdx].Err
}

// Run executes the checks.
func (c *Checker) Run(ctx context.Context) *Report {
	rep := &Report{
		Steps: []Step{
			{Name: StepInstalled, Status: StatusSkipped},
			{Name: StepRunning, Status: StatusSkipped},
		},
		FailedIdx: -1,
	}

	version, err := c.System.Version(ctx)
	if err != nil {
		rep.fail(0, err)
		return rep
	}
	rep.Version = version
	rep.Steps[0] = Step{Name: StepInstalled, Status: StatusPass, Detail: version}

	status, err := c.System.Status(ctx)
	if err == nil {
		rep.Status = status
		rep.Steps[1] = Step{Name: StepRunning, Status: StatusPass, Detail: status}
		return rep
	}
	if !c.AutoStart || container.KindOf(err) != container.SystemNotRunning {
		rep.fail(1, err)
		return rep
	}

	// Fix phase: start, then check once more.
	if _, err := c.System.Start(ctx); err != nil {
		rep.fail(1, err)
		return rep
	}
	status, err = c.System.Status(ctx)
	if err != nil {
		rep.fail(1, err)
		return rep
	}
	rep.Status = status
	rep.Steps[1] = Step{Name: StepRunning, Status: StatusStarted, Detail: status}
	return rep
}

func (r *Report) fail(i int, err error) {
	r.Steps[i] = Step{Name: r.Steps[i].Name, Status: StatusFail, Detail: err.Error(), Err: err}
	r.FailedIdx = i
}

// String renders the report as plain text.
func (r *Report) String() string {
	var b strings.Builder

	if r.Ready() {
		fmt.Fprintln(&b, "Status: READY")
	} else {
		fmt.Fprintln(&b, "Status: NOT READY")
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Steps:")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %-10s %s\n", s.Name+":", s.Status)
	}
	fmt.Fprintln(&b)

	if r.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", r.Version)
	}
	if r.Status != "" {
		fmt.Fprintln(&b, "System:")
		for _, line := range strings.Split(r.Status, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	if err := r.Failure(); err != nil {
		var ce *container.Error
		if errors.As(err, &ce) {
			fmt.Fprintln(&b, ce.FullError())
		} else {
			fmt.Fprintln(&b, err)
		}
	}

	return b.String()
}
