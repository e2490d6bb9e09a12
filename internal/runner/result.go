package runner

import "strings"

// Result holds the output of a command execution.
type Result struct {
	RunID     string   // unique identifier for this run
	Argv      []string // command as executed
	ExitCode  int      // process exit code
	Stdout    []byte   // captured stdout (may be truncated)
	Stderr    []byte   // captured stderr (may be truncated)
	Truncated bool     // true if output exceeded the size cap
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// StdoutText decodes stdout as UTF-8, replacing invalid sequences.
func (r *Result) StdoutText() string { return Text(r.Stdout) }

// StderrText decodes stderr as UTF-8, replacing invalid sequences.
func (r *Result) StderrText() string { return Text(r.Stderr) }

// Text decodes b as UTF-8 with U+FFFD substituted for invalid sequences.
func Text(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
