package cli

import (
	"errors"
	"fmt"
)

// Process exit codes
const (
	ExitOK                = 0
	ExitConfigError       = 1
	ExitPreparationFailed = 2
	ExitObjectiveFailed   = 3
	ExitSequenceFailed    = 4
)

// exitError carries the exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitConfigError
}
