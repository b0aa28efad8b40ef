package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Thnoxs/localy-v1/internal/adapters/links"
	"github.com/Thnoxs/localy-v1/internal/adapters/process/osproc"
	tomlrepo "github.com/Thnoxs/localy-v1/internal/adapters/repo/toml"
	sessionfile "github.com/Thnoxs/localy-v1/internal/adapters/session/file"
	"github.com/Thnoxs/localy-v1/internal/application"
	"github.com/Thnoxs/localy-v1/internal/config"
	"github.com/Thnoxs/localy-v1/internal/logging"
	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	sessions *sessionfile.Store
	profiles *tomlrepo.ProfileRepository
	launcher ports.ProcessLauncher
	opener   ports.LinkOpener
	clock    ports.Clock
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Output = os.Stderr
	logger := logging.New(logCfg)

	sessions, err := sessionfile.NewStore(cfg.InstallRoot, cfg.SessionMarker)
	if err != nil {
		return nil, fmt.Errorf("wire session store: %w", err)
	}

	profiles, err := tomlrepo.NewProfileRepository(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("wire profile repository: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		profiles: profiles,
		launcher: osproc.NewLauncher(logger.With().Str("component", "launcher").Logger(), osproc.WithEnv("PYTHONUNBUFFERED=1")),
		opener:   links.NewSystemOpener(logger),
		clock:    ports.SystemClock{},
	}, nil
}

// startSupervisor runs a supervisor until the returned stop function is called.
// stop terminates any child still running and waits for the loop to exit.
func (a *app) startSupervisor(ctx context.Context) (*application.Supervisor, func()) {
	sup := application.NewSupervisor(
		application.SupervisorConfig{
			Interpreter:    a.cfg.Interpreter,
			LoginScript:    a.cfg.LoginScript,
			UploadScript:   a.cfg.UploadScript,
			WorkDir:        a.cfg.InstallRoot,
			SettleDelay:    a.cfg.SettleDelay,
			TerminateGrace: a.cfg.TerminateGrace,
		},
		a.launcher,
		a.sessions,
		application.WithClock(a.clock),
		application.WithLogger(*logging.FromContext(logging.WithComponent(ctx, "supervisor"))),
		application.WithProfiles(a.profiles),
		application.WithLinkOpener(a.opener),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sup.Run(runCtx); err != nil {
			a.logger.Error().Err(err).Msg("supervisor stopped")
		}
	}()

	return sup, func() {
		cancel()
		<-done
	}
}

// watchSession re-renders when the session marker appears or disappears outside a login.
func (a *app) watchSession(ctx context.Context, sup *application.Supervisor) {
	logger := *logging.FromContext(logging.WithComponent(ctx, "session-watcher"))
	w := sessionfile.NewWatcher(a.sessions, logger, func(exists bool) {
		if err := sup.SessionMarkerChanged(ctx, exists); err != nil && ctx.Err() == nil {
			logger.Debug().Err(err).Msg("refresh after marker change")
		}
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn().Err(err).Msg("session watcher stopped")
		}
	}()
}
