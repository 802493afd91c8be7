// Package toolchain runs the external build tool that compiles and executes
// generated tests, and interprets its textual output.
package toolchain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLaunch indicates the build tool could not be started or was stopped
// before it finished.
var ErrLaunch = errors.New("toolchain launch failed")

// Result is what a single build tool invocation produced.
type Result struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"-"`
	Stderr   string        `json:"-"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports a zero exit status.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Output returns stderr followed by stdout.
func (r Result) Output() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stderr + "\n" + r.Stdout
	}
}

// maxMessageBytes bounds how much tool output ends up in a report message.
const maxMessageBytes = 64 * 1024

// Tail keeps the last maxMessageBytes of s, where build tools put the summary.
func Tail(s string) string {
	if len(s) <= maxMessageBytes {
		return s
	}
	return "..." + s[len(s)-maxMessageBytes:]
}

// LaunchError wraps a failure to run the tool at all.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("running %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunch, e.Err}
}

func joinArgs(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
