package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Thnoxs/localy-v1/internal/application"
	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/Thnoxs/localy-v1/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const maxCommandLine = 1 << 20

func newBridgeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Drive localy over JSON lines on stdin and stdout",
		Long:  "bridge reads one command object per line from stdin and writes one message object per line to stdout. Closing stdin stops every running child and exits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBridge(cmd, app)
		},
	}
}

func runBridge(cmd *cobra.Command, app *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger := *logging.FromContext(logging.WithComponent(ctx, "bridge"))
	sup, stop := app.startSupervisor(ctx)

	written := make(chan error, 1)
	go func() {
		written <- writeMessages(cmd.OutOrStdout(), sup.Messages())
	}()

	app.watchSession(ctx, sup)

	var readErr error
	if err := sup.Refresh(ctx); err != nil {
		readErr = fmt.Errorf("initial refresh: %w", err)
	} else {
		readErr = readCommands(ctx, cmd.InOrStdin(), sup, logger)
	}

	stop()
	return errors.Join(readErr, <-written)
}

func readCommands(ctx context.Context, in io.Reader, sup *application.Supervisor, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCommandLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var command domain.Command
		if err := json.Unmarshal(line, &command); err != nil {
			logger.Warn().Err(err).Bytes("line", line).Msg("skipping malformed command")
			continue
		}

		if err := sup.Dispatch(ctx, command); err != nil {
			if errors.Is(err, domain.ErrSupervisorStopped) || ctx.Err() != nil {
				return nil
			}
			logger.Debug().Err(err).Str("cmd", string(command.Kind)).Msg("command rejected")
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

func writeMessages(out io.Writer, messages <-chan domain.Outbound) error {
	enc := json.NewEncoder(out)
	var writeErr error
	for msg := range messages {
		if writeErr != nil {
			continue
		}
		if err := enc.Encode(msg); err != nil {
			writeErr = fmt.Errorf("write message: %w", err)
		}
	}
	return writeErr
}
