package application

import (
	"context"
	"errors"
	"io"

	"github.com/Thnoxs/localy-v1/internal/adapters/lineproto"
	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// handle is one spawned child. Its fields are owned by the supervisor loop.
type handle struct {
	id     uuid.UUID
	kind   domain.ProcessKind
	proc   ports.Process
	logger zerolog.Logger

	// terminating is set once the supervisor asked the child to stop.
	terminating bool
	// terminal is set once the child reported success or error.
	terminal bool
}

func (s *Supervisor) spawn(ctx context.Context, kind domain.ProcessKind, args ...string) (*handle, error) {
	spec := ports.ProcessSpec{
		Kind: kind,
		Name: s.cfg.Interpreter,
		Args: args,
		Dir:  s.cfg.WorkDir,
	}

	proc, err := s.launcher.Launch(ctx, spec)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("launch process")
		return nil, err
	}

	h := &handle{
		id:   uuid.New(),
		kind: kind,
		proc: proc,
	}
	h.logger = s.logger.With().
		Str("kind", string(kind)).
		Str("handle", h.id.String()).
		Int("pid", proc.Pid()).
		Logger()

	s.handles[kind] = h
	h.logger.Info().Msg("process started")

	go s.watch(h)
	return h, nil
}

// watch pumps the child's output into the loop and reports its exit last. It never
// blocks on the loop.
func (s *Supervisor) watch(h *handle) {
	var g errgroup.Group

	g.Go(func() error {
		malformed := func(line []byte, err error) {
			h.logger.Debug().Err(err).Bytes("line", line).Msg("skipping malformed output line")
		}
		for ev := range lineproto.Decode(h.proc.Stdout(), malformed) {
			s.inbox.push(func() { s.onEvent(h, ev) })
		}
		return nil
	})

	g.Go(func() error {
		return s.pumpStderr(h)
	})

	if err := g.Wait(); err != nil {
		h.logger.Warn().Err(err).Msg("read process output")
	}

	status, err := h.proc.Wait()
	s.inbox.push(func() { s.onExit(h, status, err) })
}

// pumpStderr logs everything the child writes to stderr. The first chunk is
// reported to the host as a failure; later chunks are only logged.
func (s *Supervisor) pumpStderr(h *handle) error {
	buf := make([]byte, 4096)

	for {
		n, err := h.proc.Stderr().Read(buf)
		if n > 0 {
			h.logger.Warn().Bytes("stderr", buf[:n]).Msg("process wrote to stderr")
			s.inbox.push(func() { s.onEvent(h, domain.SyntheticError(ScriptErrorMessage)) })
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
