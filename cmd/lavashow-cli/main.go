// Package main provides the Lava Show CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/config"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	// Configuration, logger and output
	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "lavashow-cli",
	Short: "Lava Show chat tooling: ask, inspect retrieval and pricing, evaluate",
	Long: `Lava Show CLI runs the chat core from the command line.

Use this tool to:
- Ask the assistant a question
- Inspect which knowledge a message retrieves and how it is classified
- Price a party described in plain language
- Evaluate classification against a labelled fixture
- Check that every FAQ question retrieves knowledge
- Read recorded transcripts

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			Output:      os.Stderr,
			ServiceName: "lavashow-cli",
		})

		if noColor {
			color.NoColor = true
		}
		ui = NewUI(os.Stdout, outputJSON, noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newRetrieveCmd())
	rootCmd.AddCommand(newPriceCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newFAQCmd())
	rootCmd.AddCommand(newTranscriptsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
