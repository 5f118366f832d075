package gem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSuchPackage is returned when the listing holds no matching package
var ErrNoSuchPackage = errors.New("no such package")

// ParseError reports listing output that does not match "name (v1, v2, ...)"
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse gem listing %q: %s", e.Line, e.Reason)
}

// ExecutionError reports a gem process that could not be started, read or
// that exited unsuccessfully
type ExecutionError struct {
	Command  []string
	ExitCode int // -1 if the process did not exit normally
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	// credentials in the source URL never leave the process
	command, redact := redactArgs(e.Command)
	msg := fmt.Sprintf("failed to run %q", strings.Join(command, " "))
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(": exit status %d", e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + redact.Replace(e.Stderr)
		}
		return msg
	}
	if e.Err != nil {
		msg += ": " + redact.Replace(e.Err.Error())
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
