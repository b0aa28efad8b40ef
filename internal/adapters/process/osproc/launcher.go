package osproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/rs/zerolog"
)

// defaultWaitDelay bounds how long Wait keeps reading output held open by grandchildren.
const defaultWaitDelay = 2 * time.Second

type Launcher struct {
	logger    zerolog.Logger
	env       []string
	waitDelay time.Duration
}

var _ ports.ProcessLauncher = (*Launcher)(nil)

type Option func(*Launcher)

// WithEnv appends entries to the inherited environment of every child.
func WithEnv(env ...string) Option {
	return func(l *Launcher) {
		l.env = append(l.env, env...)
	}
}

func WithWaitDelay(d time.Duration) Option {
	return func(l *Launcher) {
		l.waitDelay = d
	}
}

func NewLauncher(logger zerolog.Logger, opts ...Option) *Launcher {
	l := &Launcher{logger: logger, waitDelay: defaultWaitDelay}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts spec in its own process group. The child is not bound to ctx: its
// lifetime ends by itself or through Terminate.
func (l *Launcher) Launch(ctx context.Context, spec ports.ProcessSpec) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		return nil, errors.New("command is required")
	}

	cmd := exec.Command(spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = l.waitDelay
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open child stdin: %w", err)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return nil, fmt.Errorf("start %s process: %w", spec.Kind, err)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
		logger: l.logger.With().Str("kind", string(spec.Kind)).Int("pid", cmd.Process.Pid).Logger(),
	}
	p.logger.Debug().Str("command", spec.Name).Msg("child started")

	go p.wait(stdoutW, stderrW)

	return p, nil
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	logger zerolog.Logger

	done    chan struct{}
	mu      sync.Mutex
	status  ports.ExitStatus
	waitErr error
}

func (p *process) wait(stdoutW, stderrW *io.PipeWriter) {
	err := p.cmd.Wait()

	status := ports.ExitStatus{Code: -1}
	if state := p.cmd.ProcessState; state != nil {
		status.Code = state.ExitCode()
		status.Signaled = status.Code == -1
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = nil
	}

	p.mu.Lock()
	p.status = status
	p.waitErr = err
	p.mu.Unlock()

	_ = p.stdin.Close()
	_ = stdoutW.Close()
	_ = stderrW.Close()

	p.logger.Debug().Int("code", status.Code).Bool("signaled", status.Signaled).Msg("child exited")
	close(p.done)
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Stdin() io.Writer {
	return p.stdin
}

func (p *process) Stdout() io.Reader {
	return p.stdout
}

func (p *process) Stderr() io.Reader {
	return p.stderr
}

func (p *process) Wait() (ports.ExitStatus, error) {
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.waitErr
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Terminate sends SIGTERM to the child's process group, waits up to grace, then
// sends SIGKILL and waits for the exit to be observed.
func (p *process) Terminate(ctx context.Context, grace time.Duration) error {
	if p.exited() {
		return nil
	}

	if err := terminateGroup(p.cmd.Process); err != nil {
		p.logger.Debug().Err(err).Msg("terminate signal failed")
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		p.logger.Warn().Dur("grace", grace).Msg("child ignored terminate, killing")
	case <-ctx.Done():
		_ = killGroup(p.cmd.Process)
		return ctx.Err()
	}

	if err := killGroup(p.cmd.Process); err != nil {
		p.logger.Debug().Err(err).Msg("kill signal failed")
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
