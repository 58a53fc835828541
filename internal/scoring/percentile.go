package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/chatsight/analysis-engine/config"
)

// RankStrategy converts a raw metric value into a percentile against a
// reference population. Each implementation carries an explicit kind
// tag so output records where a percentile came from.
type RankStrategy interface {
	Kind() string
	Percentile(value float64) float64
}

// RankResult records one percentile ranking with the strategy that
// produced it. Percentile is the share of the reference population at
// or below the value, 0-100.
type RankResult struct {
	Metric     string  `json:"metric"`
	Kind       string  `json:"kind"`
	Value      float64 `json:"value"`
	Percentile float64 `json:"percentile"`
}

// BenchmarkPoint is one (value, percentile) anchor in a hardcoded
// benchmark table.
type BenchmarkPoint struct {
	Value      float64
	Percentile float64
}

// BenchmarkStrategy ranks by linear interpolation over a fixed anchor
// table.
type BenchmarkStrategy struct {
	points []BenchmarkPoint
}

// NewBenchmarkStrategy creates a benchmark strategy; points must be
// sorted ascending by value.
func NewBenchmarkStrategy(points []BenchmarkPoint) *BenchmarkStrategy {
	return &BenchmarkStrategy{points: points}
}

// Kind returns the strategy tag.
func (s *BenchmarkStrategy) Kind() string { return config.StrategyBenchmark }

// Percentile interpolates the anchor table, clamping outside its range.
func (s *BenchmarkStrategy) Percentile(value float64) float64 {
	if len(s.points) == 0 {
		return 0
	}
	if value <= s.points[0].Value {
		return s.points[0].Percentile
	}
	last := s.points[len(s.points)-1]
	if value >= last.Value {
		return last.Percentile
	}
	for i := 1; i < len(s.points); i++ {
		lo, hi := s.points[i-1], s.points[i]
		if value <= hi.Value {
			frac := (value - lo.Value) / (hi.Value - lo.Value)
			return lo.Percentile + frac*(hi.Percentile-lo.Percentile)
		}
	}
	return last.Percentile
}

// LogNormalStrategy ranks against a log-normal reference distribution.
type LogNormalStrategy struct {
	dist distuv.LogNormal
}

// NewLogNormalStrategy creates a log-normal CDF strategy with the given
// log-space location and scale.
func NewLogNormalStrategy(mu, sigma float64) *LogNormalStrategy {
	return &LogNormalStrategy{dist: distuv.LogNormal{Mu: mu, Sigma: sigma}}
}

// Kind returns the strategy tag.
func (s *LogNormalStrategy) Kind() string { return config.StrategyLogNormal }

// Percentile evaluates the reference CDF at the value.
func (s *LogNormalStrategy) Percentile(value float64) float64 {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	return clamp(s.dist.CDF(value)*100, 0, 100)
}

// Benchmark anchor tables for the hardcoded-benchmark strategy.
var (
	responseBenchmarks = []BenchmarkPoint{
		{Value: 30_000, Percentile: 10},
		{Value: 120_000, Percentile: 25},
		{Value: 300_000, Percentile: 50},
		{Value: 1_800_000, Percentile: 75},
		{Value: 7_200_000, Percentile: 90},
		{Value: 43_200_000, Percentile: 99},
	}
	volumeBenchmarks = []BenchmarkPoint{
		{Value: 1, Percentile: 25},
		{Value: 5, Percentile: 50},
		{Value: 20, Percentile: 75},
		{Value: 50, Percentile: 90},
		{Value: 200, Percentile: 99},
	}
)

// NewResponseStrategy builds the configured strategy for median reply
// time ranking.
func NewResponseStrategy(cfg *config.Config) RankStrategy {
	if cfg.Ranking.Strategy == config.StrategyBenchmark {
		return NewBenchmarkStrategy(responseBenchmarks)
	}
	return NewLogNormalStrategy(cfg.Ranking.ResponseMu, cfg.Ranking.ResponseSigma)
}

// NewVolumeStrategy builds the configured strategy for daily message
// volume ranking.
func NewVolumeStrategy(cfg *config.Config) RankStrategy {
	if cfg.Ranking.Strategy == config.StrategyBenchmark {
		return NewBenchmarkStrategy(volumeBenchmarks)
	}
	return NewLogNormalStrategy(cfg.Ranking.VolumeMu, cfg.Ranking.VolumeSigma)
}
