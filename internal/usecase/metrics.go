package usecase

import "context"

// MetricsSummary represents aggregated analysis insights.
type MetricsSummary struct {
	TotalAnalyses     int64   `json:"total_analyses"`
	HealthyDetections int64   `json:"healthy_detections"`
	HealthyRate       float64 `json:"healthy_rate"`
	AverageConfidence float64 `json:"average_confidence"`
}

// GetMetricsSummary aggregates analysis metrics from persisted logs.
func (uc *AnalysisUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalAnalyses:     aggregation.TotalCount,
		HealthyDetections: aggregation.HealthyCount,
		AverageConfidence: aggregation.AverageConfidence,
	}

	if aggregation.TotalCount > 0 {
		summary.HealthyRate = float64(aggregation.HealthyCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
