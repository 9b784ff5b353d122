package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "qasmith",
	Short: "Answer enhancement and QA dataset generation",
	Long: `qasmith turns conversation records into QA training data.

It runs an HTTP API and an MCP server over two LLM pipelines: answer
enhancement (rewrite knowledge-base answers under an automatically chosen
strategy) and QA generation (mine question/answer pairs from conversation
exports).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
