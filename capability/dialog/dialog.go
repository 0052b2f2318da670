// Package dialog implements the dialog capability, which shows messages and
// asks for confirmation on the terminal.
package dialog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.hackfix.me/rowlog/capability/types"
)

// ErrNotInteractive is returned when user input is required, but the input
// stream isn't interactive.
var ErrNotInteractive = errors.New("cannot ask for confirmation: input is not interactive")

// Dialog shows dialogs over the process standard streams.
type Dialog struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	reader      *bufio.Reader

	// A single goroutine reads answers for the lifetime of the Dialog. A line
	// read after a Confirm was cancelled is the answer to the next one.
	readOnce sync.Once
	answers  chan answer
}

type answer struct {
	line string
	err  error
}

var _ types.Capability = &Dialog{}

// New returns a new dialog capability. interactive should be true if in is
// connected to a terminal.
func New(in io.Reader, out io.Writer, interactive bool) *Dialog {
	return &Dialog{in: in, out: out, interactive: interactive}
}

// Type implements the types.Capability interface.
func (d *Dialog) Type() types.Type {
	return types.Dialog
}

// Init implements the types.Capability interface.
func (d *Dialog) Init(_ context.Context) error {
	if d.in == nil || d.out == nil {
		return errors.New("dialog input and output streams are required")
	}
	d.reader = bufio.NewReader(d.in)
	d.answers = make(chan answer)
	return nil
}

// Message shows an informational message.
func (d *Dialog) Message(title, msg string) error {
	if _, err := fmt.Fprintf(d.out, "%s: %s\n", title, msg); err != nil {
		return fmt.Errorf("failed writing dialog message: %w", err)
	}
	return nil
}

// Confirm asks a yes/no question and returns true if the answer was yes. Any
// answer other than "y" or "yes" is considered a no, as is closed input.
func (d *Dialog) Confirm(ctx context.Context, msg string) (bool, error) {
	if !d.interactive {
		return false, ErrNotInteractive
	}
	if d.reader == nil {
		return false, errors.New("dialog capability isn't initialized")
	}

	if _, err := fmt.Fprintf(d.out, "%s [y/N]: ", msg); err != nil {
		return false, fmt.Errorf("failed writing dialog prompt: %w", err)
	}

	d.readOnce.Do(func() { go d.readAnswers() })

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ans, ok := <-d.answers:
		if !ok {
			return false, nil
		}
		if ans.err != nil && !errors.Is(ans.err, io.EOF) {
			return false, fmt.Errorf("failed reading dialog answer: %w", ans.err)
		}
		switch strings.ToLower(strings.TrimSpace(ans.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func (d *Dialog) readAnswers() {
	for {
		line, err := d.reader.ReadString('\n')
		d.answers <- answer{line: line, err: err}
		if err != nil {
			close(d.answers)
			return
		}
	}
}
