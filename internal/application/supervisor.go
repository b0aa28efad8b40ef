package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/rs/zerolog"
)

// ScriptErrorMessage is shown when a child writes to its error stream.
const ScriptErrorMessage = "Script Error (Check Output)"

type SupervisorConfig struct {
	Interpreter    string
	LoginScript    string
	UploadScript   string
	WorkDir        string
	SettleDelay    time.Duration
	TerminateGrace time.Duration
}

// Supervisor owns the login and upload child processes and the login flow. All of
// its state is touched only by the goroutine running Run; public methods hand work
// to that goroutine and wait for the result, so Run must be started first.
type Supervisor struct {
	cfg      SupervisorConfig
	launcher ports.ProcessLauncher
	sessions ports.SessionStore
	profiles ports.ProfileRepository
	opener   ports.LinkOpener
	clock    ports.Clock
	logger   zerolog.Logger

	ops     chan func()
	inbox   *queue[func()]
	out     *outbox
	stopped chan struct{}

	handles map[domain.ProcessKind]*handle
	flow    *LoginFlow
}

type Option func(*Supervisor)

func WithClock(clock ports.Clock) Option {
	return func(s *Supervisor) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

func WithProfiles(repo ports.ProfileRepository) Option {
	return func(s *Supervisor) {
		s.profiles = repo
	}
}

func WithLinkOpener(opener ports.LinkOpener) Option {
	return func(s *Supervisor) {
		s.opener = opener
	}
}

func NewSupervisor(cfg SupervisorConfig, launcher ports.ProcessLauncher, sessions ports.SessionStore, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		launcher: launcher,
		sessions: sessions,
		clock:    ports.SystemClock{},
		logger:   zerolog.Nop(),
		ops:      make(chan func()),
		inbox:    newQueue[func()](),
		out:      newOutbox(),
		stopped:  make(chan struct{}),
		handles:  make(map[domain.ProcessKind]*handle),
		flow:     NewLoginFlow(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Messages is the outbound channel to the host. It is closed after Run returns.
func (s *Supervisor) Messages() <-chan domain.Outbound {
	return s.out.ch
}

// Run is the event loop. On return every live child has been terminated.
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		s.shutdown()
		close(s.stopped)
		s.out.close()
	}()

	s.logger.Debug().Msg("supervisor started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-s.ops:
			// Child events that arrived before the command are applied first.
			s.drainInbox()
			op()
		case <-s.inbox.signal:
			s.drainInbox()
		}
	}
}

func (s *Supervisor) drainInbox() {
	for _, fn := range s.inbox.drain() {
		fn()
	}
}

func (s *Supervisor) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.grace())
	defer cancel()

	for kind := range s.handles {
		s.supersede(ctx, kind)
	}
}

// do runs fn on the loop goroutine and returns its error.
func (s *Supervisor) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	op := func() { res <- fn() }

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return domain.ErrSupervisorStopped
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return domain.ErrSupervisorStopped
	}
}

// HasSession reports whether the session marker exists.
func (s *Supervisor) HasSession() bool {
	return s.sessions.Exists()
}

// StartLogin supersedes any running login process with a new one for the given credentials.
func (s *Supervisor) StartLogin(ctx context.Context, apiID, apiHash string) error {
	apiID = strings.TrimSpace(apiID)
	apiHash = strings.TrimSpace(apiHash)
	if apiID == "" || apiHash == "" {
		return domain.ErrCredentialsMissing
	}

	return s.do(ctx, func() error {
		s.supersede(ctx, domain.ProcessLogin)
		s.out.push(domain.LoginStepMessage(s.flow.Reset()))

		if _, err := s.spawn(ctx, domain.ProcessLogin, s.cfg.LoginScript, apiID, apiHash); err != nil {
			s.out.push(domain.LoginStepMessage(s.flow.Fail(ScriptErrorMessage)))
			return fmt.Errorf("start login process: %w", err)
		}
		return nil
	})
}

// SendLoginInput writes value and a newline to the login process. Without a live
// login process it does nothing.
func (s *Supervisor) SendLoginInput(ctx context.Context, value string) error {
	return s.do(ctx, func() error {
		h := s.handles[domain.ProcessLogin]
		if h == nil {
			s.logger.Debug().Msg("login input dropped: no login process")
			return nil
		}

		if _, err := io.WriteString(h.proc.Stdin(), value+"\n"); err != nil {
			h.logger.Warn().Err(err).Msg("write login input")
		}
		return nil
	})
}

// StartUpload spawns the upload process. Only one upload runs at a time.
func (s *Supervisor) StartUpload(ctx context.Context, folder string, cfg domain.UploadConfig) error {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return domain.ErrFolderMissing
	}

	err := s.do(ctx, func() error {
		if s.handles[domain.ProcessUpload] != nil {
			return domain.ErrUploadInProgress
		}

		args := []string{s.cfg.UploadScript, folder, cfg.APIID, cfg.APIHash, cfg.ChatID, cfg.Credit}
		if _, err := s.spawn(ctx, domain.ProcessUpload, args...); err != nil {
			return fmt.Errorf("start upload process: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.profiles != nil {
		profile := domain.UploadProfile{ChatID: cfg.ChatID, Credit: cfg.Credit}
		if err := s.profiles.Save(ctx, profile); err != nil {
			s.logger.Warn().Err(err).Msg("save upload profile")
		}
	}

	return nil
}

// CancelUpload terminates the running upload, if any.
func (s *Supervisor) CancelUpload(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.handles[domain.ProcessUpload] == nil {
			return nil
		}
		s.supersede(ctx, domain.ProcessUpload)
		s.out.push(domain.NoticeMessage(domain.NoticeInfo, "Upload cancelled"))
		return nil
	})
}

// Logout removes the session marker and re-renders. A missing marker is fine.
func (s *Supervisor) Logout(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.sessions.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		s.refresh()
		return nil
	})
}

// Refresh re-checks the session marker and emits a view message.
func (s *Supervisor) Refresh(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.refresh()
		return nil
	})
}

// SessionMarkerChanged re-renders after the marker was created or removed outside a
// command. The login child creates the marker when it connects, so an appearing
// marker is ignored while a login is pending; success re-checks after the settle delay.
func (s *Supervisor) SessionMarkerChanged(ctx context.Context, exists bool) error {
	return s.do(ctx, func() error {
		if exists && s.loginPending() {
			s.logger.Debug().Stringer("state", s.flow.State()).Msg("session marker appeared during login")
			return nil
		}
		s.refresh()
		return nil
	})
}

// Profile returns the remembered upload defaults, or the built-in ones.
func (s *Supervisor) Profile(ctx context.Context) domain.UploadProfile {
	fallback := domain.UploadProfile{Credit: domain.DefaultCredit}
	if s.profiles == nil {
		return fallback
	}

	profile, err := s.profiles.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			s.logger.Warn().Err(err).Msg("load upload profile")
		}
		return fallback
	}
	return profile
}

// Close terminates every live child and waits for each to exit.
func (s *Supervisor) Close(ctx context.Context) error {
	return s.do(ctx, func() error {
		for kind := range s.handles {
			s.supersede(ctx, kind)
		}
		return nil
	})
}

// LiveProcesses reports which kinds currently have a registered child.
func (s *Supervisor) LiveProcesses(ctx context.Context) ([]domain.ProcessKind, error) {
	var kinds []domain.ProcessKind
	err := s.do(ctx, func() error {
		for _, kind := range []domain.ProcessKind{domain.ProcessLogin, domain.ProcessUpload} {
			if s.handles[kind] != nil {
				kinds = append(kinds, kind)
			}
		}
		return nil
	})
	return kinds, err
}

// LoginState returns the state of the current login attempt.
func (s *Supervisor) LoginState(ctx context.Context) (domain.LoginState, error) {
	var state domain.LoginState
	err := s.do(ctx, func() error {
		state = s.flow.State()
		return nil
	})
	return state, err
}

func (s *Supervisor) loginPending() bool {
	if s.handles[domain.ProcessLogin] != nil {
		return true
	}
	switch s.flow.State() {
	case domain.LoginAwaitingPhone, domain.LoginAwaitingCode, domain.LoginFailed:
		return true
	default:
		return false
	}
}

func (s *Supervisor) refresh() {
	loggedIn := s.sessions.Exists()
	s.logger.Debug().Bool("logged_in", loggedIn).Msg("session re-checked")
	s.out.push(domain.ViewMessage(loggedIn))
}

func (s *Supervisor) grace() time.Duration {
	if s.cfg.TerminateGrace <= 0 {
		return 3 * time.Second
	}
	return s.cfg.TerminateGrace
}

// supersede terminates the registered child of kind and waits for it to exit.
// Its remaining events are discarded.
func (s *Supervisor) supersede(ctx context.Context, kind domain.ProcessKind) {
	h := s.handles[kind]
	if h == nil {
		return
	}

	h.terminating = true
	delete(s.handles, kind)

	h.logger.Debug().Msg("terminating superseded process")
	if err := h.proc.Terminate(ctx, s.grace()); err != nil {
		h.logger.Warn().Err(err).Msg("terminate process")
	}
	s.released(h)
}

// released tells the host that an upload run is over.
func (s *Supervisor) released(h *handle) {
	if h.kind == domain.ProcessUpload {
		s.out.push(domain.UploadDoneMessage())
	}
}

func (s *Supervisor) onEvent(h *handle, ev domain.Event) {
	if s.handles[h.kind] != h {
		h.logger.Debug().Str("tag", ev.Tag).Msg("dropping event from superseded process")
		return
	}
	if ev.Terminal() {
		h.terminal = true
	}

	switch h.kind {
	case domain.ProcessLogin:
		s.applyLogin(ev)
	case domain.ProcessUpload:
		s.relayUpload(ev)
	}
}

func (s *Supervisor) applyLogin(ev domain.Event) {
	step, effect, ok := s.flow.Apply(ev)
	if !ok {
		s.logger.Debug().Str("tag", ev.Tag).Stringer("state", s.flow.State()).Msg("login event ignored")
		return
	}

	s.out.push(domain.LoginStepMessage(step))

	if effect == effectSettle {
		s.settle()
	}
}

// settle re-checks the session once the settle delay has passed, giving the login
// process time to finish writing its session artifact.
func (s *Supervisor) settle() {
	after := s.clock.After(s.cfg.SettleDelay)
	go func() {
		select {
		case <-after:
			s.inbox.push(s.refresh)
		case <-s.stopped:
		}
	}()
}

func (s *Supervisor) onExit(h *handle, status ports.ExitStatus, waitErr error) {
	current := s.handles[h.kind] == h
	h.logger.Debug().Int("code", status.Code).Bool("current", current).Msg("process exited")

	if !current || h.terminating {
		return
	}

	if !h.terminal && (waitErr != nil || status.Code != 0) {
		msg := fmt.Sprintf("Process exited with code %d", status.Code)
		if waitErr != nil {
			h.logger.Warn().Err(waitErr).Msg("wait for process")
		}
		s.onEvent(h, domain.SyntheticError(msg))
	}

	delete(s.handles, h.kind)
	s.released(h)
}
