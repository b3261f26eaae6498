package prometheus

import (
	"time"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// PipelineMetrics holds the metrics of one pipeline run.
type PipelineMetrics struct {
	StageDuration    HistogramVec
	StageRows        GaugeVec
	WarningsTotal    CounterVec
	PredictionsTotal CounterVec
	CacheAccesses    CounterVec
	RunDuration      GaugeVec
	RunInfo          GaugeVec
}

// DefaultStageDurationBuckets spans sub-second stages up to hour-long
// similarity runs over large reference sets.
var DefaultStageDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 900, 3600}

// NewPipelineMetrics registers all metrics and returns the PipelineMetrics struct.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}
	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Stage wall-clock duration", DefaultStageDurationBuckets, "stage")
	m.StageRows = collector.RegisterGauge("stage_rows", "Rows consumed and produced by a stage", "stage", "direction")
	m.WarningsTotal = collector.RegisterCounter("warnings_total", "Recoverable conditions recorded", "stage", "code")
	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Predictions above threshold", "interaction_type")
	m.CacheAccesses = collector.RegisterCounter("fingerprint_cache_accesses_total", "Fingerprint cache lookups", "result")
	m.RunDuration = collector.RegisterGauge("run_duration_seconds", "Whole run duration", "mode")
	m.RunInfo = collector.RegisterGauge("run_info", "Constant 1, labelled with the run identifier", "run_id", "mode")
	return m
}

// Helpers

// RecordStage observes a finished stage report.
func RecordStage(m *PipelineMetrics, r *ddi.StageReport) {
	if m == nil || r == nil {
		return
	}
	m.StageDuration.WithLabelValues(r.Stage).Observe(r.Elapsed.Seconds())
	m.StageRows.WithLabelValues(r.Stage, "in").Set(float64(r.InputRows))
	m.StageRows.WithLabelValues(r.Stage, "out").Set(float64(r.OutputRows))
	for code, n := range r.WarningCounts() {
		m.WarningsTotal.WithLabelValues(r.Stage, string(code)).Add(float64(n))
	}
}

// RecordSummary counts summarized predictions per interaction type.
func RecordSummary(m *PipelineMetrics, rows []ddi.SummaryRow) {
	if m == nil {
		return
	}
	for _, r := range rows {
		m.PredictionsTotal.WithLabelValues(r.InteractionType).Inc()
	}
}

// RecordCacheAccess counts one fingerprint cache lookup.
func RecordCacheAccess(m *PipelineMetrics, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccesses.WithLabelValues(result).Inc()
}

// RecordRun stamps the run identity and total duration.
func RecordRun(m *PipelineMetrics, runID, mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunInfo.WithLabelValues(runID, mode).Set(1)
	m.RunDuration.WithLabelValues(mode).Set(elapsed.Seconds())
}

//Personal.AI order the ending
