package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

// EvalCase is one labelled message.
type EvalCase struct {
	Message     string   `yaml:"message" json:"message"`
	QueryType   string   `yaml:"query_type" json:"queryType"`
	ExpectTypes []string `yaml:"expect_types,omitempty" json:"expectTypes,omitempty"`
}

// EvalFixture is the file format read by the eval command.
type EvalFixture struct {
	Cases []EvalCase `yaml:"cases"`
}

// TypeScore counts results for one expected query type.
type TypeScore struct {
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Rate    float64 `json:"rate"`
}

// EvalFailure describes a case that did not pass.
type EvalFailure struct {
	Case       EvalCase `json:"case"`
	GotType    string   `json:"gotType"`
	GotMatches []string `json:"gotMatches"`
	Missing    []string `json:"missing,omitempty"`
}

// EvalReport is the outcome of a run.
type EvalReport struct {
	Total    int                   `json:"total"`
	Correct  int                   `json:"correct"`
	Accuracy float64               `json:"accuracy"`
	ByType   map[string]*TypeScore `json:"byType"`
	Failures []EvalFailure         `json:"failures,omitempty"`
}

func loadFixture(path string) (*EvalFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return parseFixture(data)
}

func parseFixture(data []byte) (*EvalFixture, error) {
	var f EvalFixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("fixture has no cases")
	}
	for i, c := range f.Cases {
		if strings.TrimSpace(c.Message) == "" {
			return nil, fmt.Errorf("case %d: message is required", i)
		}
		if c.QueryType == "" {
			return nil, fmt.Errorf("case %d: query_type is required", i)
		}
	}
	return &f, nil
}

// caseTypes returns the distinct expected query types in sorted order and
// the number of cases for each.
func caseTypes(cases []EvalCase) ([]string, map[string]int) {
	totals := make(map[string]int)
	for _, c := range cases {
		totals[c.QueryType]++
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, totals
}

// evaluate runs every case through retrieval. done is called after each case
// and may be nil.
func evaluate(eng *engine.Engine, cases []EvalCase, done func(EvalCase)) *EvalReport {
	report := &EvalReport{ByType: make(map[string]*TypeScore)}

	for _, c := range cases {
		result := eng.Retrieve(c.Message, nil)
		got := result.Types()

		score, ok := report.ByType[c.QueryType]
		if !ok {
			score = &TypeScore{}
			report.ByType[c.QueryType] = score
		}
		score.Total++
		report.Total++

		missing := missingTypes(c.ExpectTypes, got)
		if result.QueryType == c.QueryType && len(missing) == 0 {
			score.Correct++
			report.Correct++
		} else {
			report.Failures = append(report.Failures, EvalFailure{
				Case:       c,
				GotType:    result.QueryType,
				GotMatches: got,
				Missing:    missing,
			})
		}

		if done != nil {
			done(c)
		}
	}

	for _, score := range report.ByType {
		score.Rate = ratio(score.Correct, score.Total)
	}
	report.Accuracy = ratio(report.Correct, report.Total)
	return report
}

func missingTypes(want, got []string) []string {
	have := make(map[string]bool, len(got))
	for _, t := range got {
		have[t] = true
	}
	var missing []string
	for _, t := range want {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func newEvalCmd() *cobra.Command {
	var minAccuracy float64

	cmd := &cobra.Command{
		Use:   "eval <fixture.yaml>",
		Short: "Measure classification and retrieval against labelled messages",
		Long: `Run every case of a fixture through retrieval and report accuracy per
query type. A case passes when the query type matches and every listed
knowledge type was retrieved.`,
		Example: `  lavashow-cli eval configs/eval.yaml
  lavashow-cli eval --min-accuracy 0.9 configs/eval.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(args[0])
			if err != nil {
				return err
			}
			eng, err := engine.New(engine.Config{Logger: logger})
			if err != nil {
				return err
			}

			names, totals := caseTypes(fixture.Cases)
			bars := ui.MultiProgress(names, totals)
			report := evaluate(eng, fixture.Cases, func(c EvalCase) {
				bars.Increment(c.QueryType)
			})
			bars.Wait()

			if outputJSON {
				if err := ui.JSON(report); err != nil {
					return err
				}
			} else {
				printReport(names, report)
			}

			if report.Accuracy < minAccuracy {
				return fmt.Errorf("accuracy %.2f below minimum %.2f", report.Accuracy, minAccuracy)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minAccuracy, "min-accuracy", 0, "fail when overall accuracy is below this value")

	return cmd
}

func printReport(names []string, report *EvalReport) {
	ui.Section("Accuracy")
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := report.ByType[name]
		rows = append(rows, []string{name, fmt.Sprintf("%d/%d", s.Correct, s.Total), fmt.Sprintf("%.0f%%", s.Rate*100)})
	}
	ui.Table([]string{"Query type", "Passed", "Rate"}, rows)

	if len(report.Failures) > 0 {
		ui.Section("Failures")
		for _, f := range report.Failures {
			ui.Warning("%q: want %s, got %s", f.Case.Message, f.Case.QueryType, f.GotType)
			if len(f.Missing) > 0 {
				ui.KeyValue("missing", strings.Join(f.Missing, ", "))
			}
		}
	}

	ui.Success("%d/%d passed (%.0f%%)", report.Correct, report.Total, report.Accuracy*100)
}
