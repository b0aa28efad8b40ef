package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Thnoxs/localy-v1/internal/application"
	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in: run `localy login` first")

func newUploadCmd(app *app) *cobra.Command {
	var apiID string
	var apiHash string
	var chatID string
	var credit string
	var plain bool

	cmd := &cobra.Command{
		Use:   "upload <folder>",
		Short: "Upload a course folder to a Telegram channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := resolveFolder(args[0])
			if err != nil {
				return err
			}

			sup, stop := app.startSupervisor(cmd.Context())
			defer stop()

			profile := sup.Profile(cmd.Context())
			if !cmd.Flags().Changed("chat") && profile.ChatID != "" {
				chatID = profile.ChatID
			}
			if !cmd.Flags().Changed("credit") && profile.Credit != "" {
				credit = profile.Credit
			}

			return runUpload(cmd, sup, folder, domain.UploadConfig{
				Credentials: domain.Credentials{APIID: apiID, APIHash: apiHash},
				ChatID:      chatID,
				Credit:      credit,
			}, plain || !isTerminal(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&apiID, "api-id", envOrDefault("LOCALY_API_ID", ""), "Telegram API ID (env LOCALY_API_ID)")
	cmd.Flags().StringVar(&apiHash, "api-hash", envOrDefault("LOCALY_API_HASH", ""), "Telegram API hash (env LOCALY_API_HASH)")
	cmd.Flags().StringVar(&chatID, "chat", "", "Target channel username or id (defaults to the last one used)")
	cmd.Flags().StringVar(&credit, "credit", domain.DefaultCredit, "Credit line added to every caption")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print one line per status update instead of a progress bar")

	return cmd
}

func resolveFolder(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve folder: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("open folder: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func runUpload(cmd *cobra.Command, sup *application.Supervisor, folder string, cfg domain.UploadConfig, plain bool) error {
	ctx := cmd.Context()
	if !sup.HasSession() {
		return errNotLoggedIn
	}
	if err := sup.StartUpload(ctx, folder, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var outcome uploadOutcome
	var err error
	if plain {
		outcome, err = printUploadStatus(out, sup.Messages())
	} else {
		outcome, err = runUploadProgress(ctx, out, sup.Messages())
	}
	if err != nil {
		return err
	}

	if !outcome.succeeded && outcome.failure.Kind == domain.EventError {
		return fmt.Errorf("upload failed: %s", outcome.failure.Message)
	}
	if outcome.succeeded {
		_, err = fmt.Fprintln(out, outcome.success.Message)
	}
	return err
}

// uploadOutcome is the result of one upload run. Failed files are reported as
// error events while the run goes on, so only a run that never succeeded fails.
type uploadOutcome struct {
	succeeded bool
	success   domain.Event
	failure   domain.Event
}

func (o *uploadOutcome) record(ev domain.Event) {
	switch ev.Kind {
	case domain.EventSuccess:
		o.succeeded = true
		o.success = ev
	case domain.EventError:
		o.failure = ev
	}
}

// printUploadStatus writes every status update on its own line until the upload process is gone.
func printUploadStatus(out io.Writer, messages <-chan domain.Outbound) (uploadOutcome, error) {
	var outcome uploadOutcome
	for msg := range messages {
		switch msg.Kind {
		case domain.OutboundUploadDone:
			return outcome, nil
		case domain.OutboundStatus:
		default:
			continue
		}

		ev := msg.Status
		outcome.record(ev)
		if ev.Kind == domain.EventSuccess || ev.Message == "" {
			continue
		}
		line := ev.Message
		if label := ev.PercentLabel(); label != "" {
			line = fmt.Sprintf("%s (%s)", ev.Message, label)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return outcome, err
		}
	}
	return outcome, domain.ErrSupervisorStopped
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
