package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Thnoxs/localy-v1/internal/domain"
)

// Dispatch executes one host command. A failing command is also reported to the
// host as an error notice.
func (s *Supervisor) Dispatch(ctx context.Context, cmd domain.Command) error {
	err := s.dispatch(ctx, cmd)
	if err != nil && !errors.Is(err, domain.ErrSupervisorStopped) {
		s.logger.Warn().Err(err).Str("cmd", string(cmd.Kind)).Msg("command failed")
		s.out.push(domain.NoticeMessage(domain.NoticeError, noticeText(err)))
	}
	return err
}

func (s *Supervisor) dispatch(ctx context.Context, cmd domain.Command) error {
	switch cmd.Kind {
	case domain.CommandStartLogin:
		return s.StartLogin(ctx, cmd.APIID, cmd.APIHash)
	case domain.CommandSendInput:
		return s.SendLoginInput(ctx, cmd.Value)
	case domain.CommandSelectFolder:
		return s.selectFolder(ctx, cmd.Path)
	case domain.CommandStartUpload:
		return s.StartUpload(ctx, cmd.Path, cmd.Config)
	case domain.CommandCancelUpload:
		return s.CancelUpload(ctx)
	case domain.CommandLogout:
		return s.Logout(ctx)
	case domain.CommandRefresh:
		return s.Refresh(ctx)
	case domain.CommandLink:
		return s.openLink(ctx, cmd.URL)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Kind)
	}
}

func (s *Supervisor) selectFolder(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.ErrFolderMissing
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("select folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("select folder: %s is not a directory", abs)
	}

	return s.do(ctx, func() error {
		s.out.push(domain.SetPathMessage(abs))
		return nil
	})
}

func (s *Supervisor) openLink(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("link url is required")
	}
	if s.opener == nil {
		return errors.New("opening links is not supported")
	}
	if err := s.opener.Open(ctx, url); err != nil {
		return fmt.Errorf("open link: %w", err)
	}
	return nil
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, domain.ErrCredentialsMissing):
		return "Enter API ID & Hash"
	case errors.Is(err, domain.ErrFolderMissing):
		return "Select a folder first"
	case errors.Is(err, domain.ErrUploadInProgress):
		return "An upload is already running"
	default:
		return err.Error()
	}
}
