package services

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulseboard/insights-engine/pkg/apperrors"
	"github.com/pulseboard/insights-engine/pkg/config"
	"github.com/pulseboard/insights-engine/pkg/models"
)

// Source is one worksheet feeding a report analysis. FetchErr records an
// upstream fetch failure: the source then contributes no measures or
// breakdowns, but never aborts the others.
type Source struct {
	Name      string
	Worksheet models.Worksheet
	FetchErr  error
}

// ReportAnalyzer runs the worksheet extractor per source and folds the
// results with the merge reducer in source arrival order, keeping
// "larger-sample-wins" and breakdown ordering reproducible.
type ReportAnalyzer struct {
	cfg       *config.AnalysisConfig
	extractor *WorksheetExtractor
	logger    *zap.Logger
}

// NewReportAnalyzer creates a new report analyzer.
func NewReportAnalyzer(cfg *config.AnalysisConfig, logger *zap.Logger) *ReportAnalyzer {
	return &ReportAnalyzer{
		cfg:       cfg,
		extractor: NewWorksheetExtractor(logger),
		logger:    logger.Named("report-analyzer"),
	}
}

// Analyze combines per-source worksheet analyses into one report-level
// analysis. Errors come only from caller mistakes (missing config, no
// sources); data-quality problems degrade per source instead of failing
// the call.
func (r *ReportAnalyzer) Analyze(sources []Source, opts ExtractOptions) (*models.WorksheetAnalysis, error) {
	if r.cfg == nil {
		return nil, apperrors.ErrNilConfig
	}
	if len(sources) == 0 {
		return nil, apperrors.ErrNoSources
	}

	combined := &models.WorksheetAnalysis{
		AnalysisID: uuid.New(),
		Measures:   make([]models.MeasureInfo, 0),
		Dimensions: make([]models.DimensionInfo, 0),
		Breakdowns: make([]models.BreakdownData, 0),
	}

	for _, src := range sources {
		if src.FetchErr != nil {
			r.logger.Warn("Source fetch failed, contributing nothing",
				zap.String("source", src.Name),
				zap.Error(src.FetchErr))
			continue
		}

		ws := src.Worksheet
		if len(ws.Rows) > r.cfg.MaxRows {
			ws.Rows = ws.Rows[:r.cfg.MaxRows]
		}

		analysis := r.extractor.Analyze(ws, opts)
		combined.Measures = MergeMeasures(combined.Measures, analysis.Measures)
		combined.Breakdowns = MergeBreakdowns(combined.Breakdowns, analysis.Breakdowns)
		combined.Dimensions = append(combined.Dimensions, analysis.Dimensions...)
		combined.DateRange = MergeDateRanges(combined.DateRange, analysis.DateRange)
		combined.RowCount += analysis.RowCount
	}

	return combined, nil
}
