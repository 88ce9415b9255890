package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"scoreprep/adapters/tabfile"
	"scoreprep/domain/config"
	"scoreprep/domain/table"
	"scoreprep/internal"
	"scoreprep/internal/errors"
	"scoreprep/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logger = internal.DefaultLogger

func main() {
	// optional .env for LOG_LEVEL and friends
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "scoreprep",
		Short: "Prepare scored-response datasets for automated-scoring experiments",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run [config-file]",
		Short: "Load, filter and partition the experiment datasets",
		Long: `Run the full ingestion pipeline for an experiment configuration:
normalize and validate the configuration, load the training and evaluation
data, filter out unusable rows, and write the partitioned output tables.

Example: scoreprep run experiment.json --output-dir output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(args[0], outputDir)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "output", "Directory for the partitioned output tables")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate an experiment configuration without loading any data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			logger.Info("Configuration for experiment %s is valid", cfg.ExperimentID)
			return nil
		},
	}

	return cmd
}

func loadConfig(path string) (*config.ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileNotFound(path)
	}
	var raw config.Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file %s", path)
	}
	return config.Normalize(raw, config.ContextTrain, nil)
}

func runExperiment(configPath, outputDir string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	exp, err := pipeline.LoadExperiment(cfg, filepath.Dir(configPath))
	if err != nil {
		return err
	}

	outputs := map[string]table.Table{
		"train_features":           exp.Train.Features,
		"train_metadata":           exp.Train.Metadata,
		"train_other_columns":      exp.Train.Other,
		"train_excluded_responses": exp.Train.Excluded,
		"test_features":            exp.Test.Features,
		"test_metadata":            exp.Test.Metadata,
		"test_other_columns":       exp.Test.Other,
		"test_excluded_responses":  exp.Test.Excluded,
	}
	if exp.Train.Length.Len() > 0 {
		outputs["train_response_lengths"] = exp.Train.Length
	}
	if exp.Test.HumanScores.Len() > 0 {
		outputs["test_human_scores"] = exp.Test.HumanScores
	}
	outputs["feature_specs"] = specTable(exp)

	for name, tbl := range outputs {
		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", cfg.ExperimentID, name))
		if err := tabfile.WriteDataFile(path, tbl); err != nil {
			return err
		}
	}

	logger.Info("Wrote %d output tables to %s", len(outputs), outputDir)
	return nil
}

func specTable(exp *pipeline.ExperimentData) table.Table {
	tbl := table.New("feature", "sign", "transform")
	for _, s := range exp.FeatureSpecs {
		tbl.AppendRow(table.Row{
			"feature":   s.Name,
			"sign":      table.FormatNumeric(s.Sign),
			"transform": s.Transform,
		})
	}
	return tbl
}
