// cmd/pharmacy-agent/chat.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	runagent "pharmacy-agent/internal/workers/agent/run-agent"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session (default)",
		RunE:  runChat,
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Answer a single message and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out, _ := a.runner.Execute(ctx, &runagent.Input{Text: strings.Join(args, " "), CustomerID: customerFlag})
			fmt.Fprintln(cmd.OutOrStdout(), out.Response)
			return nil
		},
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return chatLoop(ctx, a.runner, cmd.InOrStdin(), cmd.OutOrStdout(), customerFlag)
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return buildApp(ctx, cfg, newLogger(cfg))
}

// chatLoop reads one message per line until EOF, "exit" or "quit".
func chatLoop(ctx context.Context, runner *runagent.Handler, in io.Reader, out io.Writer, customerID string) error {
	fmt.Fprintln(out, "Pharmacy assistant ready. Type \"exit\" to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, _ := runner.Execute(ctx, &runagent.Input{Text: text, CustomerID: customerID})
		fmt.Fprintln(out, reply.Response)

		if ctx.Err() != nil {
			return nil
		}
	}
}
