package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/chat"
	"github.com/Veraticus/chatguard/internal/cli"
	"github.com/Veraticus/chatguard/internal/config"
	"github.com/Veraticus/chatguard/internal/storage"
)

const chatHelp = `Type a message and press enter to have it screened.
  /toggle   switch content analysis on or off
  /status   show backend availability
  /quit     leave the chat`

func chatCmd() *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a moderated chat session on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detection, err := config.LoadDetection(viper.GetViper())
			if err != nil {
				return err
			}
			interval, err := config.PollInterval(viper.GetViper())
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			sessionCfg := chat.Config{
				Threshold: detection.Threshold,
				Disabled:  !detection.Enabled,
				Logger:    slog.Default(),
			}
			if !noHistory {
				store, err := openHistory(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				sessionCfg.Store = store
			}

			session, err := chat.NewSession(client, sessionCfg)
			if err != nil {
				return err
			}

			poller := availability.New(client, availability.Config{Interval: interval, Logger: slog.Default()})
			if err := poller.Start(cmd.Context()); err != nil {
				return err
			}
			defer poller.Stop()

			handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Chat closed. Goodbye!")
			ctx := handler.HandleInterrupts(cmd.Context())

			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), session, poller)
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record messages")
	return cmd
}

// statusSource reports backend availability.
type statusSource interface {
	Snapshot() availability.Snapshot
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, session *chat.Session, status statusSource) error {
	reader := cli.NewLineReader(in)

	fmt.Fprintln(out, cli.FormatTitle("chatguard "+cli.ChatIcon+" moderated chat"))
	fmt.Fprintln(out, cli.SubtleStyle.Render(chatHelp))

	for {
		fmt.Fprint(out, cli.FormatPrompt(chat.UserName))
		line, err := reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCanceled) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, cli.SubtleStyle.Render(chatHelp))
			continue
		case "/status":
			fmt.Fprintln(out, cli.FormatStatus(status.Snapshot()))
			continue
		case "/toggle":
			state := "disabled"
			if session.ToggleDetection() {
				state = "enabled"
			}
			fmt.Fprintln(out, cli.FormatInfo("Content analysis "+state))
			continue
		}

		exchange, err := session.Send(ctx, line)
		if err != nil {
			return err
		}
		if exchange != nil {
			fmt.Fprintln(out, cli.FormatChatMessage(exchange.Reply))
		}
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded chat messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			messages, err := store.GetRecentMessages(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No messages recorded yet"))
				return nil
			}
			for _, msg := range messages {
				fmt.Fprintln(out, cli.FormatChatMessage(msg))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultHistoryLimit, "number of messages to show")
	return cmd
}
