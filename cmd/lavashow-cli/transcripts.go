package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/audit"
)

func newTranscriptsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transcripts <session-id>",
		Short: "List the recorded turns of a session",
		Long: `Read completed turns from the transcript store configured under audit.
The store must be enabled (sqlite or postgres).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Audit.Driver == "" || cfg.Audit.Driver == "none" {
				return fmt.Errorf("transcript store is disabled; set audit.driver")
			}

			store, err := audit.Open(cmd.Context(), cfg.Audit.Driver, cfg.AuditDSN())
			if err != nil {
				return fmt.Errorf("open transcript store: %w", err)
			}
			defer store.Close()

			entries, err := store.ListBySession(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if outputJSON {
				return ui.JSON(entries)
			}
			if len(entries) == 0 {
				ui.Warning("No turns recorded for %s", args[0])
				return nil
			}

			ui.Section("Transcript")
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.Format(time.DateTime),
					e.Source,
					e.QueryType,
					preview(e.UserMessage),
					fmt.Sprintf("%dms", e.LatencyMS),
				})
			}
			ui.Table([]string{"Time", "Source", "Type", "Message", "Latency"}, rows)
			ui.Info("%d turns", len(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of turns")

	return cmd
}
