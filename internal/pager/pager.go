// Package pager provides the output sinks colorized lines are written to:
// the process's own stdout, or the stdin pipe of a child pager process.
package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// DefaultCommand keeps ANSI color escapes raw instead of showing them as text.
const DefaultCommand = "less -R"

// Sink is where styled output goes. Close must be called exactly once when
// all input has been written.
type Sink interface {
	io.Writer
	io.Closer
}

// ExitError carries a non-zero pager exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("pager exited with status %d", e.Code)
}

// ExitCode returns the status the program should exit with.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ---------------------------------------------------------------------------
// Stdout sink
// ---------------------------------------------------------------------------

type writerSink struct {
	io.Writer
}

func (writerSink) Close() error { return nil }

// Stdout returns a Sink writing to w whose Close is a no-op.
func Stdout(w io.Writer) Sink {
	return writerSink{Writer: w}
}

// ---------------------------------------------------------------------------
// Pager sink
// ---------------------------------------------------------------------------

// Pager is a running pager process fed through its stdin.
type Pager struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	once  sync.Once
	err   error
}

// Start launches command (split on whitespace) with its stdout and stderr
// attached to the given writers, usually the terminal.
func Start(command string, stdout, stderr io.Writer) (*Pager, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("empty pager command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pager stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pager %q: %w", command, err)
	}

	return &Pager{cmd: cmd, stdin: stdin}, nil
}

func (p *Pager) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Close signals end of input and waits for the user to quit the pager.
// A pager that exited non-zero yields an *ExitError.
func (p *Pager) Close() error {
	p.once.Do(func() {
		closeErr := p.stdin.Close()

		waitErr := p.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			code := exitErr.ExitCode()
			if code < 0 {
				code = 1 // killed by a signal
			}
			p.err = &ExitError{Code: code}
		case waitErr != nil:
			p.err = fmt.Errorf("wait for pager: %w", waitErr)
		case closeErr != nil && !errors.Is(closeErr, os.ErrClosed):
			p.err = fmt.Errorf("close pager stdin: %w", closeErr)
		}
	})
	return p.err
}
