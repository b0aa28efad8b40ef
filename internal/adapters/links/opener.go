package links

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/Thnoxs/localy-v1/internal/ports"
	"github.com/rs/zerolog"
)

// SystemOpener opens links in the desktop's default browser.
type SystemOpener struct {
	logger zerolog.Logger
	// command builds the opener invocation; replaced in tests.
	command func(ctx context.Context, target string) *exec.Cmd
}

var _ ports.LinkOpener = (*SystemOpener)(nil)

func NewSystemOpener(logger zerolog.Logger) *SystemOpener {
	return &SystemOpener{logger: logger, command: platformCommand}
}

// Open starts the platform opener and does not wait for the browser.
func (o *SystemOpener) Open(ctx context.Context, target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}

	o.logger.Debug().Str("url", u.String()).Msg("opening link in browser")

	cmd := o.command(ctx, u.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	go func() { _ = cmd.Wait() }()

	return nil
}

func platformCommand(ctx context.Context, target string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", target)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return exec.CommandContext(ctx, "xdg-open", target)
	}
}
