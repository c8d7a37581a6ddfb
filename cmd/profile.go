package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulseboard/insights-engine/pkg/models"
	"github.com/pulseboard/insights-engine/pkg/services"
)

// profileInput is the file shape for the profiling branch: field-keyed rows,
// with an optional explicit column order. A bare JSON array of objects is
// accepted too.
type profileInput struct {
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows"`
}

// profileOutput bundles the three profiling-branch results.
type profileOutput struct {
	Profile   *models.DataProfile `json:"profile"`
	Anomalies []models.Anomaly    `json:"anomalies"`
	Insights  []models.Insight    `json:"insights"`
}

var profileCmd = &cobra.Command{
	Use:   "profile <table.json>",
	Short: "Profile a table and report anomalies and insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readProfileInput(args[0])
		if err != nil {
			return err
		}

		profiler := services.NewDataProfiler(cfg.Analysis, logger)
		detector := services.NewAnomalyDetector(logger)
		discoverer := services.NewInsightDiscoverer(logger)

		out := profileOutput{
			Profile:   profiler.Profile(in.Columns, in.Rows),
			Anomalies: detector.Detect(in.Columns, in.Rows),
			Insights:  discoverer.Discover(in.Columns, in.Rows),
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func readProfileInput(path string) (profileInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profileInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	var in profileInput
	if err := json.Unmarshal(data, &in); err == nil && in.Rows != nil {
		return in, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return profileInput{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return profileInput{Rows: rows}, nil
}
