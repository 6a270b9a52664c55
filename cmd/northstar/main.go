// northstar is the offline CLI for the detection pipeline: it loads the same
// model artifacts the server uses and analyzes a single text from a file or
// stdin, printing the resulting alert as JSON. Useful for triaging a pasted
// post and for sanity-checking model artifacts before deployment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/classify"
	"github.com/northstar-intel/northstar/internal/enrich"
	"github.com/northstar-intel/northstar/internal/pipeline"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	modelsDir string
	source    string
	postURL   string
	featsPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "northstar",
	Short: "NorthStar threat detection CLI",
	Long:  "northstar runs the detection-and-scoring pipeline offline against a single text.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelsDir, "models", "models", "directory containing model artifacts")

	analyzeCmd.Flags().StringVar(&source, "source", "cli", "source label recorded on the post")
	analyzeCmd.Flags().StringVar(&postURL, "url", "", "url recorded on the post")
	analyzeCmd.Flags().StringVar(&featsPath, "vuln-features", "", "path to a JSON file with vulnerability features")

	rootCmd.AddCommand(analyzeCmd, versionCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a text file (or stdin) and print the alert as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if len(raw) == 0 {
			return fmt.Errorf("input text is empty")
		}

		var feats *vulnrisk.Features
		if featsPath != "" {
			fr, err := os.ReadFile(featsPath)
			if err != nil {
				return fmt.Errorf("read vuln features: %w", err)
			}
			feats = &vulnrisk.Features{}
			if err := json.Unmarshal(fr, feats); err != nil {
				return fmt.Errorf("decode vuln features: %w", err)
			}
		}

		analyzer, err := buildAnalyzer()
		if err != nil {
			return err
		}

		alert, err := analyzer.Analyze(context.Background(), pipeline.PostMeta{
			Source: source,
			URL:    postURL,
			Text:   string(raw),
		}, feats)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(alert)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "northstar", version)
	},
}

// buildAnalyzer loads artifacts from modelsDir and wires the pipeline with
// the offline enrichment stand-in.
func buildAnalyzer() (*pipeline.Analyzer, error) {
	logger, _ := zap.NewDevelopment()

	intentClf, err := classify.Load(filepath.Join(modelsDir, "intent.json"))
	if err != nil {
		return nil, fmt.Errorf("load intent classifier: %w", err)
	}
	sectorClf, err := classify.Load(filepath.Join(modelsDir, "sector.json"))
	if err != nil {
		return nil, fmt.Errorf("load sector classifier: %w", err)
	}

	var risk vulnrisk.Estimator = vulnrisk.HeuristicEstimator{}
	if m, err := vulnrisk.LoadModel(filepath.Join(modelsDir, "vuln_risk.json")); err == nil {
		risk = m
	}

	return pipeline.NewAnalyzer(intentClf, sectorClf, risk, enrich.StaticEnricher{}, logger), nil
}
