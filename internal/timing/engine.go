package timing

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
)

// Engine computes per-person response-time distribution statistics with
// outlier-aware central tendency estimation.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// PersonStats holds the response-time distribution for one participant.
// Central-tendency fields (Mean, TrimmedMean, StdDev, Skewness) are
// computed after outlier exclusion; quantile fields and RawSamples are
// always computed over the unfiltered set so extreme silences stay
// visible for audit.
type PersonStats struct {
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	TrimmedMean     float64 `json:"trimmed_mean"`
	StdDev          float64 `json:"std_dev"`
	Q1              float64 `json:"q1"`
	Q3              float64 `json:"q3"`
	IQR             float64 `json:"iqr"`
	P75             float64 `json:"p75"`
	P90             float64 `json:"p90"`
	P95             float64 `json:"p95"`
	Skewness        float64 `json:"skewness"`
	RawSamples      int     `json:"raw_samples"`
	FilteredSamples int     `json:"filtered_samples"`
	OutliersRemoved int     `json:"outliers_removed"`
	LongestGap      int64   `json:"longest_gap"`
	Sufficient      bool    `json:"sufficient"`
}

// Result holds the timing engine output.
type Result struct {
	PerPerson             map[string]*PersonStats      `json:"per_person"`
	Events                []conversation.ResponseEvent `json:"-"`
	AverageResponseMillis float64                      `json:"average_response_millis"`
}

// NewEngine creates a new timing engine.
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Analyze derives response events and per-participant statistics.
// Participants with no reply events get a zero PersonStats with
// Sufficient=false rather than being omitted.
func (e *Engine) Analyze(participants []string, msgs []conversation.UnifiedMessage) *Result {
	events := conversation.BuildResponseEvents(msgs)

	deltas := make(map[string][]float64, len(participants))
	for _, p := range participants {
		deltas[p] = nil
	}
	var all []float64
	for _, ev := range events {
		deltas[ev.ReplySender] = append(deltas[ev.ReplySender], float64(ev.Delta))
	}

	result := &Result{
		PerPerson: make(map[string]*PersonStats, len(participants)),
		Events:    events,
	}
	for _, p := range participants {
		stats := e.computeStats(deltas[p])
		result.PerPerson[p] = stats
		if stats.Sufficient {
			all = append(all, filteredValues(deltas[p], e.outlierBound(deltas[p]))...)
		}
	}
	if len(all) > 0 {
		result.AverageResponseMillis = stat.Mean(all, nil)
	}

	e.logger.Debug("timing analysis complete",
		zap.Int("events", len(events)),
		zap.Float64("avg_response_ms", result.AverageResponseMillis))

	return result
}

// outlierBound returns the exclusion threshold for a raw sample, or
// +Inf when the sample is too small to filter.
func (e *Engine) outlierBound(raw []float64) float64 {
	if len(raw) < e.cfg.Timing.MinFilterSamples {
		return math.Inf(1)
	}
	sorted := sortedCopy(raw)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := math.Max(q3-q1, e.cfg.Timing.IQRFloorMillis)
	return q3 + e.cfg.Timing.OutlierMultiplier*iqr
}

func (e *Engine) computeStats(raw []float64) *PersonStats {
	stats := &PersonStats{RawSamples: len(raw)}
	if len(raw) == 0 {
		return stats
	}
	stats.Sufficient = true

	sorted := sortedCopy(raw)
	stats.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	stats.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	stats.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	stats.IQR = stats.Q3 - stats.Q1
	stats.P75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	stats.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	stats.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	stats.LongestGap = int64(sorted[len(sorted)-1])

	filtered := filteredValues(raw, e.outlierBound(raw))
	stats.FilteredSamples = len(filtered)
	stats.OutliersRemoved = len(raw) - len(filtered)

	stats.Mean = stat.Mean(filtered, nil)
	stats.TrimmedMean = trimmedMean(filtered, e.cfg.Timing.TrimFraction)
	stats.StdDev = popStdDev(filtered, stats.Mean)
	if len(filtered) >= 3 {
		stats.Skewness = stat.Skew(filtered, nil)
	}

	return stats
}

func filteredValues(raw []float64, bound float64) []float64 {
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v <= bound {
			out = append(out, v)
		}
	}
	return out
}

// trimmedMean drops the top and bottom fraction of the sorted sample
// before averaging. Falls back to the plain mean when the sample is too
// small to trim.
func trimmedMean(x []float64, fraction float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := sortedCopy(x)
	k := int(float64(len(sorted)) * fraction)
	if len(sorted)-2*k <= 0 {
		return stat.Mean(sorted, nil)
	}
	return stat.Mean(sorted[k:len(sorted)-k], nil)
}

// popStdDev computes the population standard deviation around a known
// mean. gonum's StdDev is the sample estimator, which overweights the
// small reply counts common in short conversations.
func popStdDev(x []float64, mean float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}
