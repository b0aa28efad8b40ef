package application

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/Thnoxs/localy-v1/internal/ports/mocks"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeProcess struct {
	pid int

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	// linger keeps stdout open after Terminate so a test can write stale output.
	linger bool

	exitOnce   sync.Once
	done       chan struct{}
	waited     chan struct{}
	waitOnce   sync.Once
	status     ports.ExitStatus
	terminated atomic.Bool
}

func newFakeProcess(pid int) *fakeProcess {
	p := &fakeProcess{
		pid:    pid,
		done:   make(chan struct{}),
		waited: make(chan struct{}),
	}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Pid() int          { return p.pid }
func (p *fakeProcess) Stdin() io.Writer  { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) Wait() (ports.ExitStatus, error) {
	p.waitOnce.Do(func() { close(p.waited) })
	<-p.done
	return p.status, nil
}

func (p *fakeProcess) Terminate(ctx context.Context, grace time.Duration) error {
	p.terminated.Store(true)
	p.finish(ports.ExitStatus{Code: -1, Signaled: true}, !p.linger)
	return nil
}

// emit writes one stdout line as the child would.
func (p *fakeProcess) emit(t *testing.T, line string) {
	t.Helper()
	_, err := io.WriteString(p.stdoutW, line+"\n")
	require.NoError(t, err)
}

func (p *fakeProcess) complain(t *testing.T, text string) {
	t.Helper()
	_, err := io.WriteString(p.stderrW, text)
	require.NoError(t, err)
}

func (p *fakeProcess) exit(code int) {
	p.finish(ports.ExitStatus{Code: code}, true)
}

// closeOutput ends the output streams of a lingering process.
func (p *fakeProcess) closeOutput() {
	_ = p.stdoutW.Close()
	_ = p.stderrW.Close()
}

func (p *fakeProcess) finish(status ports.ExitStatus, closeOutput bool) {
	p.exitOnce.Do(func() {
		p.status = status
		_ = p.stdinR.Close()
		if closeOutput {
			p.closeOutput()
		}
		close(p.done)
	})
}

type fakeLauncher struct {
	mu    sync.Mutex
	specs []ports.ProcessSpec
	procs []*fakeProcess
	err   error
	// linger is copied onto every launched process.
	linger bool
}

func (l *fakeLauncher) Launch(ctx context.Context, spec ports.ProcessSpec) (ports.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	p := newFakeProcess(1000 + len(l.procs))
	p.linger = l.linger
	l.specs = append(l.specs, spec)
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

func (l *fakeLauncher) proc(i int) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[i]
}

func (l *fakeLauncher) spec(i int) ports.ProcessSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.specs[i]
}

type fakeClock struct {
	mu      sync.Mutex
	pending []chan time.Time
	delays  []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	c.pending = append(c.pending, ch)
	c.delays = append(c.delays, d)
	return ch
}

func (c *fakeClock) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// fire releases every pending timer.
func (c *fakeClock) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.pending {
		ch <- c.Now()
	}
	c.pending = nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []domain.Outbound
	done chan struct{}
}

func record(ch <-chan domain.Outbound) *recorder {
	r := &recorder{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for msg := range ch {
			r.mu.Lock()
			r.msgs = append(r.msgs, msg)
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) all() []domain.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Outbound(nil), r.msgs...)
}

func (r *recorder) ofKind(kind domain.OutboundKind) []domain.Outbound {
	var out []domain.Outbound
	for _, msg := range r.all() {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

func (r *recorder) steps() []domain.LoginStep {
	var out []domain.LoginStep
	for _, msg := range r.ofKind(domain.OutboundLoginStep) {
		out = append(out, msg.Step)
	}
	return out
}

func (r *recorder) waitForKind(t *testing.T, kind domain.OutboundKind, n int) []domain.Outbound {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.ofKind(kind)) >= n
	}, waitTimeout, 5*time.Millisecond, "waiting for %d %s messages", n, kind)
	return r.ofKind(kind)
}

func (r *recorder) waitForStep(t *testing.T, state domain.LoginState) domain.LoginStep {
	t.Helper()
	var found domain.LoginStep
	require.Eventually(t, func() bool {
		for _, step := range r.steps() {
			if step.State == state {
				found = step
				return true
			}
		}
		return false
	}, waitTimeout, 5*time.Millisecond, "waiting for login step %s", state)
	return found
}

type harness struct {
	sup      *Supervisor
	launcher *fakeLauncher
	sessions *mocks.MockSessionStore
	clock    *fakeClock
	rec      *recorder
	cancel   context.CancelFunc
	stopped  chan struct{}
}

var testConfig = SupervisorConfig{
	Interpreter:    "python3",
	LoginScript:    "/opt/localy/backend_login.py",
	UploadScript:   "/opt/localy/backend.py",
	WorkDir:        "/opt/localy",
	SettleDelay:    1500 * time.Millisecond,
	TerminateGrace: 100 * time.Millisecond,
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		launcher: &fakeLauncher{},
		sessions: mocks.NewMockSessionStore(t),
		clock:    &fakeClock{},
		stopped:  make(chan struct{}),
	}
	opts = append([]Option{WithClock(h.clock)}, opts...)
	h.sup = NewSupervisor(testConfig, h.launcher, h.sessions, opts...)
	h.rec = record(h.sup.Messages())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.stopped)
		_ = h.sup.Run(ctx)
	}()

	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.stopped
	<-h.rec.done
}

// waitIdle blocks until no child is registered.
func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		kinds, err := h.sup.LiveProcesses(context.Background())
		return err == nil && len(kinds) == 0
	}, waitTimeout, 5*time.Millisecond)
}
