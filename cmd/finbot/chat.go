package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/engine"
	"github.com/chitieu/finbot/session"
)

func chatCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Long:  "Reads one message per line from stdin. Type /reset to clear the history and /quit to exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd, a.engine, owner, session.NewHistory(cfg.HistoryExchanges))
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "default-user", "ledger owner id")
	return cmd
}

func runChat(cmd *cobra.Command, eng *engine.Engine, owner string, history *session.History) error {
	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	sessionID := "cli"

	prompt(out)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			prompt(out)
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			history.Reset()
			fmt.Fprintln(out, "(đã xóa lịch sử trò chuyện)")
			prompt(out)
			continue
		}

		output := eng.Run(cmd.Context(), &engine.Input{
			UserMessage: line,
			Context:     core.NewContext(owner, sessionID),
			History:     history.Turns(),
			ProgressCallback: func(event string) {
				if strings.HasPrefix(event, "tool:") {
					fmt.Fprintf(out, "  … %s\n", strings.TrimPrefix(event, "tool:"))
				}
			},
		})
		if output.Success {
			history.Append(line, output.Text)
		}
		fmt.Fprintf(out, "bot> %s\n", output.Text)

		if cmd.Context().Err() != nil {
			return nil
		}
		prompt(out)
	}
	return in.Err()
}

func prompt(out io.Writer) {
	fmt.Fprint(out, "bạn> ")
}
