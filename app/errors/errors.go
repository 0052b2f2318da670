package errors

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
)

// Log logs an error using the default slog logger. See LogTo.
func Log(err error) {
	LogTo(slog.Default(), err)
}

// LogTo logs an error at the ERROR level. If err is or wraps a
// StructuredError, its cause and metadata are logged as attributes sorted by
// key, with the cause first.
func LogTo(logger *slog.Logger, err error) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error())
		return
	}

	args := make([]any, 0, len(serr.metadata)*2+2)

	cause := serr.metadata["cause"]
	if serr.cause != nil {
		cause = serr.cause
	}
	if cause != nil {
		args = append(args, "cause", cause)
	}

	for _, k := range slices.Sorted(maps.Keys(serr.metadata)) {
		if k != "cause" {
			args = append(args, k, serr.metadata[k])
		}
	}

	logger.Error(err.Error(), args...)
}
