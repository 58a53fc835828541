package scoring

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/patterns"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Interest sub-score weights. Documented, arbitrary, reproduced exactly.
const (
	interestWeightSpeed       = 0.25
	interestWeightInitiation  = 0.20
	interestWeightDoubleText  = 0.10
	interestWeightLength      = 0.15
	interestWeightEngagement  = 0.15
	interestWeightConsistency = 0.15
)

// Ghost-risk factor weights.
const (
	ghostWeightVolume     = 0.35
	ghostWeightResponse   = 0.30
	ghostWeightInitiation = 0.20
	ghostWeightEngagement = 0.15
)

// CompatibilityScore is the equal-weighted mean of five balance
// sub-scores. Heuristic entertainment metric, not calibrated against
// any reference population.
type CompatibilityScore struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// InterestScore estimates one person's engagement investment.
type InterestScore struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// GhostRisk estimates disengagement likelihood from four monthly trend
// factors. When fewer than the configured minimum months of data exist,
// Sufficient is false and Score must not be read: "unmeasurable" is not
// "medium risk".
type GhostRisk struct {
	Score      float64            `json:"score"`
	Level      string             `json:"level"`
	Sufficient bool               `json:"sufficient"`
	Factors    map[string]float64 `json:"factors,omitempty"`
}

// ViralScores bundles the composite entertainment metrics.
type ViralScores struct {
	Compatibility *CompatibilityScore       `json:"compatibility"`
	Interest      map[string]*InterestScore `json:"interest"`
	GhostRisk     map[string]*GhostRisk     `json:"ghost_risk"`
	Delusion      float64                   `json:"delusion"`
}

// ViralEngine computes the viral score family.
type ViralEngine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewViralEngine creates a new viral score engine.
func NewViralEngine(cfg *config.Config, logger *zap.Logger) *ViralEngine {
	return &ViralEngine{cfg: cfg, logger: logger}
}

// Compute derives compatibility, per-person interest and ghost risk,
// and the delusion delta for the primary dyad. durationDays is the
// conversation span from the normalizer metadata.
func (e *ViralEngine) Compute(participants []string, eng *engagement.Result, tim *timing.Result, durationDays int) *ViralScores {
	scores := &ViralScores{
		Interest:  make(map[string]*InterestScore, len(participants)),
		GhostRisk: make(map[string]*GhostRisk, len(participants)),
	}

	for _, p := range participants {
		scores.Interest[p] = e.interest(p, eng, tim, durationDays)
		scores.GhostRisk[p] = e.ghostRisk(p, eng, tim)
	}

	a, b := patterns.PrimaryDyad(participants, eng)
	scores.Compatibility = e.compatibility(a, b, eng, tim)
	if a != "" && b != "" {
		scores.Delusion = math.Abs(scores.Interest[a].Score - scores.Interest[b].Score)
	}

	e.logger.Debug("viral scores computed",
		zap.Float64("compatibility", scores.Compatibility.Score),
		zap.Float64("delusion", scores.Delusion))

	return scores
}

// compatibility is the equal-weighted mean of five 0-100 sub-scores.
func (e *ViralEngine) compatibility(a, b string, eng *engagement.Result, tim *timing.Result) *CompatibilityScore {
	comp := &CompatibilityScore{Components: make(map[string]float64)}
	if a == "" || b == "" {
		return comp
	}
	ea, eb := eng.PerPerson[a], eng.PerPerson[b]
	ta, tb := tim.PerPerson[a], tim.PerPerson[b]

	comp.Components["activity_overlap"] = heatmapOverlap(eng.Heatmaps[a], eng.Heatmaps[b])
	comp.Components["response_symmetry"] = ratioScore(ta.Median, tb.Median)
	comp.Components["message_balance"] = ratioScore(float64(ea.Messages), float64(eb.Messages))
	comp.Components["engagement_balance"] = ratioScore(ea.ReactionGiveRate, eb.ReactionGiveRate)
	comp.Components["length_match"] = ratioScore(ea.AvgMessageLength, eb.AvgMessageLength)

	sum := comp.Components["activity_overlap"] +
		comp.Components["response_symmetry"] +
		comp.Components["message_balance"] +
		comp.Components["engagement_balance"] +
		comp.Components["length_match"]
	comp.Score = clamp(sum/5, 0, 100)
	return comp
}

// interest is a weighted sum of six behavioral sub-scores.
func (e *ViralEngine) interest(p string, eng *engagement.Result, tim *timing.Result, durationDays int) *InterestScore {
	pe := eng.PerPerson[p]
	ts := tim.PerPerson[p]
	is := &InterestScore{Components: make(map[string]float64)}
	if pe == nil || pe.Messages == 0 {
		return is
	}

	speed := 0.0
	if ts != nil && ts.Sufficient {
		medianMin := ts.Median / 60_000
		speed = clamp(100*30/(30+medianMin), 0, 100)
	}
	doubleRate := float64(pe.DoubleTexts) / float64(pe.Messages)
	consistency := 0.0
	if durationDays > 0 {
		consistency = clamp(100*float64(pe.ActiveDays)/float64(durationDays), 0, 100)
	}

	is.Components["response_speed"] = speed
	is.Components["initiation"] = clamp(pe.InitiationShare*100, 0, 100)
	is.Components["double_text"] = clamp(doubleRate*200, 0, 100)
	is.Components["length_investment"] = clamp(pe.AvgMessageLength*1.25, 0, 100)
	is.Components["engagement"] = math.Min(100, pe.ReactionReceiveRate*500)
	is.Components["consistency"] = consistency

	is.Score = clamp(
		interestWeightSpeed*is.Components["response_speed"]+
			interestWeightInitiation*is.Components["initiation"]+
			interestWeightDoubleText*is.Components["double_text"]+
			interestWeightLength*is.Components["length_investment"]+
			interestWeightEngagement*is.Components["engagement"]+
			interestWeightConsistency*is.Components["consistency"],
		0, 100)
	return is
}

// ghostRisk runs the four-factor monthly trend analysis for one person.
func (e *ViralEngine) ghostRisk(p string, eng *engagement.Result, tim *timing.Result) *GhostRisk {
	months := eng.Months
	if len(months) < e.cfg.Scoring.GhostRiskMinMonths {
		return &GhostRisk{Level: "unknown", Sufficient: false}
	}

	volume := make([]float64, len(months))
	share := make([]float64, len(months))
	initiation := make([]float64, len(months))
	for i, m := range months {
		volume[i] = float64(eng.MonthlyVolume[m][p])
		if total := monthTotal(eng.MonthlyVolume[m]); total > 0 {
			share[i] = volume[i] / float64(total)
		}
	}
	for i, t := range eng.Trends {
		if i < len(months) {
			initiation[i] = t.InitiationShare[p]
		}
	}
	response := monthlyResponse(p, months, tim)

	risk := &GhostRisk{
		Sufficient: true,
		Factors: map[string]float64{
			"volume_trend":     riskFromSlope(normalizedSlope(volume)),
			"response_trend":   riskFromSlope(-normalizedSlope(response)),
			"initiation_trend": riskFromSlope(normalizedSlope(initiation)),
			"engagement_trend": riskFromSlope(normalizedSlope(share)),
		},
	}
	risk.Score = clamp(
		ghostWeightVolume*risk.Factors["volume_trend"]+
			ghostWeightResponse*risk.Factors["response_trend"]+
			ghostWeightInitiation*risk.Factors["initiation_trend"]+
			ghostWeightEngagement*risk.Factors["engagement_trend"],
		0, 100)
	switch {
	case risk.Score < 33:
		risk.Level = "low"
	case risk.Score < 66:
		risk.Level = "medium"
	default:
		risk.Level = "high"
	}
	return risk
}

// monthlyResponse builds the per-month average reply delta series for
// one person from the raw response events.
func monthlyResponse(p string, months []string, tim *timing.Result) []float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, ev := range tim.Events {
		if ev.ReplySender != p {
			continue
		}
		m := time.UnixMilli(ev.Timestamp).Format("2006-01")
		sums[m] += float64(ev.Delta)
		counts[m]++
	}
	out := make([]float64, len(months))
	for i, m := range months {
		if counts[m] > 0 {
			out[i] = sums[m] / float64(counts[m])
		}
	}
	return out
}

// normalizedSlope fits a least-squares line over the series normalized
// by its mean, yielding a relative per-month rate of change.
func normalizedSlope(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := stat.Mean(series, nil)
	if mean == 0 {
		return 0
	}
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, v := range series {
		xs[i] = float64(i)
		ys[i] = v / mean
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) {
		return 0
	}
	return slope
}

// riskFromSlope maps a normalized trend slope to 0-100 risk: flat is
// 50, a halving per month saturates at 100, growth drives toward 0.
func riskFromSlope(slope float64) float64 {
	return clamp(50-100*slope, 0, 100)
}

// heatmapOverlap measures how much two activity distributions coincide:
// the sum of cell-wise minimum shares, scaled to 0-100.
func heatmapOverlap(a, b *engagement.Heatmap) float64 {
	if a == nil || b == nil || a.Total == 0 || b.Total == 0 {
		return 0
	}
	overlap := 0.0
	for wd := 0; wd < 7; wd++ {
		for hr := 0; hr < 24; hr++ {
			sa := float64(a.Counts[wd][hr]) / float64(a.Total)
			sb := float64(b.Counts[wd][hr]) / float64(b.Total)
			overlap += math.Min(sa, sb)
		}
	}
	return clamp(overlap*100, 0, 100)
}

func monthTotal(volume map[string]int) int {
	total := 0
	for _, n := range volume {
		total += n
	}
	return total
}

// ratioScore maps two magnitudes to 0-100 via min/max; both zero is a
// neutral 50.
func ratioScore(a, b float64) float64 {
	if a <= 0 && b <= 0 {
		return 50
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 0
	}
	return 100 * lo / hi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
