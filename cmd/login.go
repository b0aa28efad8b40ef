package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/spf13/cobra"
)

var errNoSessionSaved = errors.New("login finished but no session was saved")

func newLoginCmd(app *app) *cobra.Command {
	var apiID string
	var apiHash string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Telegram with an API ID and hash",
		Long:  "login runs the login helper, asks for the phone number and the code Telegram sends, and waits until the session is saved.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, app, apiID, apiHash)
		},
	}

	cmd.Flags().StringVar(&apiID, "api-id", envOrDefault("LOCALY_API_ID", ""), "Telegram API ID (env LOCALY_API_ID)")
	cmd.Flags().StringVar(&apiHash, "api-hash", envOrDefault("LOCALY_API_HASH", ""), "Telegram API hash (env LOCALY_API_HASH)")

	return cmd
}

func runLogin(cmd *cobra.Command, app *app, apiID, apiHash string) error {
	ctx := cmd.Context()
	sup, stop := app.startSupervisor(ctx)
	defer stop()

	if err := sup.StartLogin(ctx, apiID, apiHash); err != nil {
		if errors.Is(err, domain.ErrCredentialsMissing) {
			return fmt.Errorf("%w: pass --api-id and --api-hash", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	succeeded := false

	for msg := range sup.Messages() {
		switch msg.Kind {
		case domain.OutboundLoginStep:
			step := msg.Step
			if step.Message != "" {
				_, _ = fmt.Fprintln(out, step.Message)
			}

			var label string
			switch step.State {
			case domain.LoginFailed:
				return fmt.Errorf("login failed: %s", step.Message)
			case domain.LoginSucceeded:
				succeeded = true
				continue
			case domain.LoginAwaitingPhone:
				label = "Phone number (with country code)"
			case domain.LoginAwaitingCode:
				label = "Login code"
			default:
				continue
			}

			value, err := prompt(out, in, label)
			if err != nil {
				return err
			}
			if err := sup.SendLoginInput(ctx, value); err != nil {
				return fmt.Errorf("send %s: %w", strings.ToLower(label), err)
			}
		case domain.OutboundView:
			if !succeeded {
				continue
			}
			if !msg.View.LoggedIn {
				return errNoSessionSaved
			}
			_, _ = fmt.Fprintln(out, "Logged in.")
			return nil
		}
	}

	return domain.ErrSupervisorStopped
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	_, _ = fmt.Fprintf(out, "%s: ", label)

	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
