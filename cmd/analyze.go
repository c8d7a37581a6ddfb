package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/models"
	"github.com/pulseboard/insights-engine/pkg/services"
)

var (
	anaMaxMetrics     int
	anaMaxItems       int
	anaFocusMetrics   []string
	anaFocusDimension string
	anaEntityHint     string
	anaLabels         []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <worksheet.json> [more.json...]",
	Short: "Extract measures, dimensions and breakdowns from worksheet files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := services.ExtractOptions{
			MaxMetrics:     anaMaxMetrics,
			MaxItems:       anaMaxItems,
			FocusMetrics:   anaFocusMetrics,
			FocusDimension: anaFocusDimension,
			EntityHint:     anaEntityHint,
			LabelOverrides: parseLabelOverrides(anaLabels),
		}
		if opts.MaxMetrics <= 0 {
			opts.MaxMetrics = cfg.Analysis.MaxMetrics
		}
		if opts.MaxItems <= 0 {
			opts.MaxItems = cfg.Analysis.MaxItems
		}

		// A source file that fails to load degrades to an empty
		// contribution; the remaining sources still analyze.
		sources := make([]services.Source, 0, len(args))
		for _, path := range args {
			ws, err := readWorksheet(path)
			sources = append(sources, services.Source{
				Name:      path,
				Worksheet: ws,
				FetchErr:  err,
			})
		}

		analyzer := services.NewReportAnalyzer(&cfg.Analysis, logger)
		analysis, err := analyzer.Analyze(sources, opts)
		if err != nil {
			return err
		}

		logger.Debug("Analysis complete",
			zap.Int("sources", len(sources)),
			zap.Int("measures", len(analysis.Measures)))

		return printJSON(analysis)
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&anaMaxMetrics, "max-metrics", 0, "cap on returned measures (default from config)")
	analyzeCmd.Flags().IntVar(&anaMaxItems, "max-items", 0, "cap on breakdown/dimension sample size (default from config)")
	analyzeCmd.Flags().StringSliceVar(&anaFocusMetrics, "focus-metric", nil, "substring allow-list for measures (repeatable)")
	analyzeCmd.Flags().StringVar(&anaFocusDimension, "focus-dimension", "", "substring preference for dimension selection")
	analyzeCmd.Flags().StringVar(&anaEntityHint, "entity-hint", "", "entity noun for count labels, e.g. \"Email\"")
	analyzeCmd.Flags().StringSliceVar(&anaLabels, "label", nil, "field label override as name=label (repeatable)")
	rootCmd.AddCommand(analyzeCmd)
}

func readWorksheet(path string) (models.Worksheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Worksheet{}, fmt.Errorf("read %s: %w", path, err)
	}
	var ws models.Worksheet
	if err := json.Unmarshal(data, &ws); err != nil {
		return models.Worksheet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ws, nil
}

func parseLabelOverrides(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	overrides := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if name, label, ok := strings.Cut(p, "="); ok {
			overrides[strings.TrimSpace(name)] = strings.TrimSpace(label)
		}
	}
	return overrides
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
