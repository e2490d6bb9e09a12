package container

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes facade failures for programmatic handling.
type Kind int

const (
	// KindNone is reported for nil errors.
	KindNone Kind = iota

	// NotInstalled indicates the executable could not be located.
	NotInstalled

	// LaunchError indicates the OS failed to start the process for a
	// reason other than "not found".
	LaunchError

	// CommandFailed indicates the process ran and exited non-zero.
	CommandFailed

	// SystemNotRunning indicates the output reports a stopped apiserver.
	SystemNotRunning

	// UnexpectedOutput indicates output matching no recognized pattern.
	UnexpectedOutput
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case NotInstalled:
		return "NotInstalled"
	case LaunchError:
		return "LaunchError"
	case CommandFailed:
		return "CommandFailed"
	case SystemNotRunning:
		return "SystemNotRunning"
	case UnexpectedOutput:
		return "UnexpectedOutput"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Op names a facade operation.
type Op string

const (
	OpVersion Op = "version"
	OpStatus  Op = "status"
	OpStart   Op = "start"
)

// InstallURL is where the container CLI is published.
const InstallURL = "https://github.com/apple/container/releases/latest"

// Error is the failure half of every facade result.
type Error struct {
	Kind    Kind
	Op      Op
	Message string // human-readable, safe to show as is
	Detail  string // underlying OS error or raw output, if any
	RunID   string // empty when the process never started
}

func (e *Error) Error() string {
	return e.Message
}

// Remediation suggests how to fix the failure, or returns "".
func (e *Error) Remediation() string {
	switch e.Kind {
	case NotInstalled:
		return "Install the Apple Container CLI from " + InstallURL + " and restart the application."
	case SystemNotRunning:
		return "Run `container system start` or `mac container start`."
	default:
		return ""
	}
}

// FullError returns the message followed by details and remediation.
func (e *Error) FullError() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Detail != "" && !strings.Contains(e.Message, e.Detail) {
		b.WriteString("\n\nDetails: ")
		b.WriteString(e.Detail)
	}
	if r := e.Remediation(); r != "" {
		b.WriteString("\n\nTo fix:\n")
		b.WriteString(r)
	}
	return b.String()
}

// KindOf returns the Kind of err. Errors that did not come from the
// facade are reported as LaunchError.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return LaunchError
}
