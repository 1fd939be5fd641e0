package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

const previewLength = 60

func newRetrieveCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "retrieve <message>",
		Short: "Show the knowledge a message retrieves",
		Long: `Classify a message and list every knowledge section selected for it,
in the order the assistant would receive them.`,
		Example: `  lavashow-cli retrieve "Is the show safe for kids?"
  lavashow-cli retrieve --full "Where are you located?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(engine.Config{Logger: logger})
			if err != nil {
				return err
			}

			result := eng.Retrieve(strings.Join(args, " "), nil)
			if outputJSON {
				return ui.JSON(result)
			}

			ui.Section("Classification")
			ui.KeyValue("Query type", result.QueryType)
			ui.KeyValue("Confidence", fmt.Sprintf("%.2f", result.Confidence))
			ui.KeyValue("Expanded", result.Expanded)

			if len(result.RelevantInfo) == 0 {
				ui.Warning("No knowledge matched")
				return nil
			}

			ui.Section("Matches")
			rows := make([][]string, 0, len(result.RelevantInfo))
			for _, m := range result.RelevantInfo {
				rows = append(rows, []string{m.Type, fmt.Sprint(m.Priority), m.Context})
			}
			ui.Table([]string{"Type", "Priority", "Context"}, rows)

			if full {
				for _, m := range result.RelevantInfo {
					ui.Section(m.Type)
					ui.Text(knowledge.Render(m.Content))
				}
				return nil
			}
			for _, m := range result.RelevantInfo {
				ui.KeyValue(m.Type, preview(knowledge.Render(m.Content)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the full content of every match")

	return cmd
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}
