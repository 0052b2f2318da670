package errors

import (
	"errors"
	"fmt"
	"os"
)

// RuntimeError is an error that occurs while running a command. It carries an
// optional hint that tells the user how to resolve it.
type RuntimeError struct {
	msg  string
	err  error
	hint string
}

// NewRuntimeError returns a new RuntimeError. err and hint are optional.
func NewRuntimeError(msg string, err error, hint string) *RuntimeError {
	return &RuntimeError{msg: msg, err: err, hint: hint}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.err)
}

// Unwrap returns the wrapped error.
func (e *RuntimeError) Unwrap() error {
	return e.err
}

// Hint returns the resolution hint, if any.
func (e *RuntimeError) Hint() string {
	return e.hint
}

// Errorf logs the error, and writes any hint for resolving it to stderr.
func Errorf(err error) {
	Log(err)

	var rerr *RuntimeError
	if errors.As(err, &rerr) && rerr.hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", rerr.hint)
	}
}
