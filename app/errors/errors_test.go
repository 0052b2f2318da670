package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Not parallel, since it replaces the default logger.
func TestLog(t *testing.T) {
	logBuf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name   string
		err    error
		expLog string
	}{
		{
			name:   "ok/plain",
			err:    errors.New("boom"),
			expLog: "level=ERROR msg=boom\n",
		},
		{
			name: "ok/structured",
			err: NewWithCause("failed initializing fs capability",
				errors.New("permission denied"), "capability", "fs", "attempt", 1),
			expLog: `level=ERROR msg="failed initializing fs capability" ` +
				`cause="permission denied" attempt=1 capability=fs` + "\n",
		},
		{
			name:   "ok/runtime",
			err:    NewRuntimeError("failed stopping session", errors.New("no rows"), "start one first"),
			expLog: `level=ERROR msg="failed stopping session: no rows"` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logBuf.Reset()
			Log(tt.err)
			assert.Equal(t, tt.expLog, logBuf.String())
		})
	}
}

func TestStructuredErrorWith(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := NewWithCause("failed writing export", cause, "file", "a.csv")
	err = With(err, "file", "b.csv", "rows", 3)

	assert.EqualError(t, err, "failed writing export")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, map[string]any{"file": "b.csv", "rows": 3}, err.Metadata())
	assert.Panics(t, func() { _ = With(err, "odd") })
}

func TestRuntimeError(t *testing.T) {
	t.Parallel()

	cause := errors.New("no rows")
	err := NewRuntimeError("failed stopping session", cause, "start a session first")
	assert.EqualError(t, err, "failed stopping session: no rows")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "start a session first", err.Hint())

	err = NewRuntimeError("session 'x' doesn't exist", nil, "")
	assert.EqualError(t, err, "session 'x' doesn't exist")
	assert.Nil(t, err.Unwrap())
}
