package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/app"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/chat"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID string
		language  string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the assistant a question",
		Long: `Run one chat turn through the full pipeline: cache, greeting and follow-up
handling, retrieval, pricing and the completion provider.

Pass --session to continue an earlier conversation.`,
		Example: `  lavashow-cli ask "How much for 2 adults and 1 child?"
  lavashow-cli ask --session 3f2b... "yes please"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := app.Build(ctx, cfg, logger, app.Options{})
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer a.Close()

			stop := ui.Spinner("Thinking...")
			start := time.Now()
			reply, err := a.Chat.Reply(ctx, chat.Request{
				Message:   strings.Join(args, " "),
				SessionID: sessionID,
				Language:  language,
			})
			stop()
			if err != nil {
				return fmt.Errorf("%s: %w", chat.UserMessage(err), err)
			}

			if outputJSON {
				return ui.JSON(reply)
			}

			ui.Text(reply.Message)
			ui.Section("Turn")
			ui.KeyValue("Session", reply.SessionID)
			ui.KeyValue("Query type", reply.QueryType)
			ui.KeyValue("Source", reply.Source)
			ui.KeyValue("Latency", FormatDuration(time.Since(start)))
			if reply.Pricing != nil {
				ui.KeyValue("Total", fmt.Sprintf("%d %s", reply.Pricing.TotalPrice, reply.Pricing.Currency))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to continue")
	cmd.Flags().StringVarP(&language, "language", "l", "", "reply language code (en, is, de, fr, es)")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "overall turn timeout")

	return cmd
}
