package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

// FAQCoverage reports which FAQ questions retrieve no knowledge.
type FAQCoverage struct {
	Total   int                  `json:"total"`
	Covered int                  `json:"covered"`
	Missed  []knowledge.FAQEntry `json:"missed,omitempty"`
}

// faqCoverage asks every FAQ question and counts the ones with at least one
// match. done is called after each question and may be nil.
func faqCoverage(eng *engine.Engine, entries []knowledge.FAQEntry, done func()) *FAQCoverage {
	out := &FAQCoverage{Total: len(entries)}
	for _, e := range entries {
		if len(eng.Retrieve(e.Question, nil).RelevantInfo) > 0 {
			out.Covered++
		} else {
			out.Missed = append(out.Missed, e)
		}
		if done != nil {
			done()
		}
	}
	return out
}

func newFAQCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Check that every FAQ question retrieves knowledge",
		Long: `Ask each question found in the knowledge document's FAQ sections and list
the ones for which retrieval finds nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := knowledge.Default()
			if err != nil {
				return err
			}
			eng, err := engine.New(engine.Config{Logger: logger})
			if err != nil {
				return err
			}

			entries := doc.FAQ()
			bar := ui.ProgressBar(len(entries), "Asking FAQ questions")
			cov := faqCoverage(eng, entries, func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			})

			if outputJSON {
				return ui.JSON(cov)
			}

			if len(cov.Missed) > 0 {
				ui.Section("Unmatched questions")
				rows := make([][]string, 0, len(cov.Missed))
				for _, e := range cov.Missed {
					rows = append(rows, []string{e.Source, e.Category, e.Question})
				}
				ui.Table([]string{"Section", "Category", "Question"}, rows)
			}
			ui.Success("%d/%d FAQ questions retrieve knowledge", cov.Covered, cov.Total)
			if cov.Covered < cov.Total {
				return fmt.Errorf("%d FAQ questions retrieve nothing", cov.Total-cov.Covered)
			}
			return nil
		},
	}
}
