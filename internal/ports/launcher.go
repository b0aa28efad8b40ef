package ports

import (
	"context"
	"io"
	"time"

	"github.com/Thnoxs/localy-v1/internal/domain"
)

type ProcessSpec struct {
	Kind domain.ProcessKind
	Name string
	Args []string
	Dir  string
}

type ExitStatus struct {
	Code int
	// Signaled is set when the process was stopped by a signal rather than exiting.
	Signaled bool
}

// Process is a running child. Stdout and Stderr reach EOF once the child has exited
// and all of its output was read.
type Process interface {
	Pid() int
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the child exited. It may be called more than once.
	Wait() (ExitStatus, error)
	// Terminate asks the child to stop, escalates to a kill after grace, and waits for exit.
	Terminate(ctx context.Context, grace time.Duration) error
}

type ProcessLauncher interface {
	Launch(ctx context.Context, spec ProcessSpec) (Process, error)
}

// LinkOpener hands a URL to the host platform, e.g. the desktop browser.
type LinkOpener interface {
	Open(ctx context.Context, url string) error
}
