package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verbalia/qasmith/internal/config"
)

// --- enhance ---

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enhance knowledge-base answers",
	Long: `Enhance knowledge-base answers.

Examples:
  qasmith enhance --question "How do I reset?" --answer "Press the button."
  qasmith enhance --file ./items.json
  qasmith enhance --file ./items.json --async`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		file, _ := cmd.Flags().GetString("file")
		async, _ := cmd.Flags().GetBool("async")

		var body any
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			var items []map[string]any
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("invalid items file (expected a JSON array of {question, answer}): %w", err)
			}
			body = items
		case question != "" && answer != "":
			body = map[string]any{"question": question, "answer": answer}
		default:
			return fmt.Errorf("either --file or both --question and --answer are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if async {
			resp, err := client.post(cmd.Context(), "/api/v1/answer/async/enhance", body)
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeEnvelope(resp, &result); err != nil {
				return err
			}
			printSuccess("Queued job %s", result["job_id"])
			return nil
		}

		resp, err := client.post(cmd.Context(), "/api/v1/answer/enhance", body)
		if err != nil {
			return err
		}

		var result struct {
			Total           int      `json:"total"`
			EnhancedAnswers []string `json:"enhanced_answers"`
		}
		if err := decodeEnvelope(resp, &result); err != nil {
			return err
		}

		for i, a := range result.EnhancedAnswers {
			fmt.Printf("\n%s\n%s\n", colorize(ansiBold, fmt.Sprintf("Answer %d", i+1)), a)
		}
		printSuccess("Enhanced %d answer(s)", result.Total)
		return nil
	},
}

func init() {
	enhanceCmd.Flags().String("question", "", "the user question")
	enhanceCmd.Flags().String("answer", "", "the current answer text")
	enhanceCmd.Flags().String("file", "", "JSON file with an array of {question, answer} items")
	enhanceCmd.Flags().Bool("async", false, "submit as a background job instead of waiting")
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate QA pairs from a conversation export",
	Long: `Generate QA pairs from a conversation export.

The input file is either a JSON export carrying conversation records or a
PDF transcript.

Examples:
  qasmith generate --file ./export.json
  qasmith generate --file ./transcript.pdf --output ./qa.json
  qasmith generate --file ./export.json --async`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		output, _ := cmd.Flags().GetString("output")
		async, _ := cmd.Flags().GetBool("async")

		if file == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if async {
			resp, err := client.postFile(cmd.Context(), "/api/v1/qa/async/generate_from_file", file, data)
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeEnvelope(resp, &result); err != nil {
				return err
			}
			printSuccess("Queued job %s", result["job_id"])
			return nil
		}

		printStep("Generating QA pairs from %s...", filepath.Base(file))
		resp, err := client.postFile(cmd.Context(), "/api/v1/qa/sync/generate_from_file", file, data)
		if err != nil {
			return err
		}

		var result struct {
			GeneratedCount     int             `json:"generated_count"`
			FilteredCount      int             `json:"filtered_count"`
			PostProcessedCount int             `json:"post_processed_count"`
			Total              int             `json:"total"`
			QAs                json.RawMessage `json:"qas"`
		}
		if err := decodeEnvelope(resp, &result); err != nil {
			return err
		}

		printGenerationSummary(result.GeneratedCount, result.FilteredCount, result.Total)

		if output != "" {
			pretty, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, append(pretty, '\n'), 0o644); err != nil {
				return fmt.Errorf("writing output file: %w", err)
			}
			printSuccess("Result written to %s", output)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.QAs)
	},
}

// printGenerationSummary reports the per-stage counts. The filter count is
// the number of survivors, not the number dropped.
func printGenerationSummary(generated, filtered, total int) {
	printStatus("Generated", "%d", generated)
	printStatus("Survived filter", "%d", filtered)
	printStatus("Kept", "%d", total)
}

func init() {
	generateCmd.Flags().String("file", "", "conversation export (JSON records or PDF transcript)")
	generateCmd.Flags().String("output", "", "write the full result to this file instead of stdout")
	generateCmd.Flags().Bool("async", false, "submit as a background job instead of waiting")
}

// --- job ---

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show an asynchronous job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/jobs/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var job any
		if err := decodeEnvelope(resp, &job); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

// --- datasets ---

type datasetSummary struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	QACount   int    `json:"qa_count"`
	CreatedAt string `json:"created_at"`
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Browse persisted QA datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/v1/qa/datasets?limit=%d", limit))
		if err != nil {
			return err
		}

		var datasets []datasetSummary
		if err := decodeEnvelope(resp, &datasets); err != nil {
			return err
		}

		if len(datasets) == 0 {
			fmt.Println("No datasets found.")
			return nil
		}

		for _, d := range datasets {
			source := d.Source
			if len(source) > 40 {
				source = source[:40] + "..."
			}
			fmt.Printf("%s  %s  %4d pairs  %s\n",
				colorize(ansiCyan, d.ID[:8]),
				d.CreatedAt,
				d.QACount,
				source,
			)
		}
		return nil
	},
}

var datasetsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single dataset with its QA pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/qa/datasets/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var dataset any
		if err := decodeEnvelope(resp, &dataset); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dataset)
	},
}

func init() {
	datasetsListCmd.Flags().Int("limit", 20, "maximum number of datasets to list")
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			if strings.Contains(err.Error(), "unknown config key") {
				return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
