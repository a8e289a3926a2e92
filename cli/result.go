package cli

import "io"

// CommandError signals a command failure with a specific exit code.
// Commands return this after handling all output (printing errors to
// stderr); main turns it into the process exit status.
type CommandError struct {
	exitCode int
	summary  string
}

// NewCommandError creates a new CommandError with the given exit code.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.summary != "" {
		return e.summary
	}
	return "command failed"
}

// ExitCode returns the exit code associated with this error.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}

// fail prints the rendered details and a one-line summary to w and returns
// the CommandError for exit status 1.
func fail(w io.Writer, details, summary string) error {
	if details != "" {
		_, _ = io.WriteString(w, details)
		if details[len(details)-1] != '\n' {
			_, _ = io.WriteString(w, "\n")
		}
		_, _ = io.WriteString(w, "\n")
	}
	printError(w, summary)
	return &CommandError{exitCode: 1, summary: summary}
}
