// Package main provides the gadgeteval CLI entry point. It scores a JSONL
// file of model predictions against labeled results and reports accuracy
// with a bootstrap confidence interval.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/gadgetmesh/config"
	"github.com/hupe1980/gadgetmesh/evaluation"
	"github.com/hupe1980/gadgetmesh/logging"
)

const bootstrapResamples = 10000

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath      string
		input           string
		predictionField string
		resultField     string
		useGadgets      bool
		confidence      float64
	)

	cmd := &cobra.Command{
		Use:   "gadgeteval",
		Short: "Score gadget-assisted generation output against labeled results",
		Long: `Reads a JSONL file where each row carries a raw model prediction and the
true final result, extracts each prediction's final result (through gadget
markup decoding, or loose text extraction with --use-gadgets=false),
compares numerically and prints accuracy with a bootstrap confidence
interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.NewSlogLogger(
				logging.ParseLogLevel(settings.Logging.Level),
				settings.Logging.Format,
				false,
			).WithComponent("gadgeteval")

			return runEval(cmd, logger, evalParams{
				input:           input,
				predictionField: predictionField,
				resultField:     resultField,
				useGadgets:      useGadgets,
				confidence:      confidence,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&input, "input", "", "Path to the JSONL file with predictions")
	cmd.Flags().StringVar(&predictionField, "prediction-field", "prediction", "JSON field holding the raw prediction")
	cmd.Flags().StringVar(&resultField, "result-field", "result", "JSON field holding the true result")
	cmd.Flags().BoolVar(&useGadgets, "use-gadgets", true, "Decode predictions as gadget markup")
	cmd.Flags().Float64Var(&confidence, "confidence-level", 0.95, "Two-sided confidence level for the bootstrap interval")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

type evalParams struct {
	input           string
	predictionField string
	resultField     string
	useGadgets      bool
	confidence      float64
}

func runEval(cmd *cobra.Command, logger logging.Logger, p evalParams) error {
	rows, err := readJSONL(p.input)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows in %s", p.input)
	}

	correct := make([]float64, 0, len(rows))
	for i, row := range rows {
		pred, ok := row[p.predictionField].(string)
		if !ok {
			return fmt.Errorf("row %d: field %q missing or not a string", i+1, p.predictionField)
		}
		truth, ok := row[p.resultField].(string)
		if !ok {
			return fmt.Errorf("row %d: field %q missing or not a string", i+1, p.resultField)
		}

		predResult := evaluation.ExtractResult(pred, p.useGadgets)
		if evaluation.AreNumericResultsSame(predResult, truth) {
			correct = append(correct, 1)
		} else {
			correct = append(correct, 0)
		}
	}

	logger.Info("evaluation scored", "rows", len(rows), "use_gadgets", p.useGadgets)

	accuracy := mean(correct)
	ci := evaluation.BootstrapCI(correct, p.confidence, bootstrapResamples, 0)

	cmd.Printf("Predictions have a correct final result in %.1f±%.1f%% of cases.\n",
		accuracy*100, (ci.High-ci.Low)/2*100)
	cmd.Printf("%g%% confidence interval: [%.2f%%, %.2f%%]\n",
		p.confidence*100, ci.Low*100, ci.High*100)
	return nil
}

// readJSONL parses one JSON object per non-blank line.
func readJSONL(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(text, &row); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
