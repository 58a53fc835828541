package scoring

import "math"

// SeverityLevel bands a 0-100 factor score.
type SeverityLevel string

const (
	SeverityNone     SeverityLevel = "none"
	SeverityMild     SeverityLevel = "mild"
	SeverityModerate SeverityLevel = "moderate"
	SeveritySevere   SeverityLevel = "severe"
)

// Relational conflict factor weights.
const (
	criticismWeightControl       = 0.6
	criticismWeightSelfFocus     = 0.4
	contemptWeightManipulation   = 0.5
	contemptWeightDramatization  = 0.3
	defensivenessWeightPassive   = 0.5
	defensivenessWeightSuspicion = 0.5
	stonewallingWeightAvoidance  = 0.4
	stonewallingWeightDistance   = 0.4
	asymmetryBoostCap            = 20.0
	ghostBoostCap                = 20.0
)

// PatternConfidence carries the eight 0-100 pattern-screening inputs
// the relational conflict index consumes. Produced by an external
// questionnaire layer; this engine only combines them.
type PatternConfidence struct {
	Control       float64 `json:"control"`
	SelfFocused   float64 `json:"self_focused"`
	Manipulation  float64 `json:"manipulation"`
	Dramatization float64 `json:"dramatization"`
	Passive       float64 `json:"passive"`
	Suspicion     float64 `json:"suspicion"`
	Avoidance     float64 `json:"avoidance"`
	Distance      float64 `json:"distance"`
}

// FactorScore is one banded factor of the index.
type FactorScore struct {
	Score    float64       `json:"score"`
	Severity SeverityLevel `json:"severity"`
	Present  bool          `json:"present"`
}

// RelationalConflictIndex is the four-factor composite.
type RelationalConflictIndex struct {
	Criticism     FactorScore `json:"criticism"`
	Contempt      FactorScore `json:"contempt"`
	Defensiveness FactorScore `json:"defensiveness"`
	Stonewalling  FactorScore `json:"stonewalling"`
}

// ComputeRelationalConflictIndex combines the pattern-confidence inputs
// with response-time asymmetry and ghost risk context. medianA/medianB
// are median reply deltas in milliseconds; ghost may be nil or
// insufficient, in which case its boost is zero.
func ComputeRelationalConflictIndex(pc PatternConfidence, medianA, medianB float64, ghost *GhostRisk) *RelationalConflictIndex {
	criticism := criticismWeightControl*pc.Control + criticismWeightSelfFocus*pc.SelfFocused

	asymmetryBoost := math.Min(asymmetryBoostCap, math.Abs(medianA-medianB)/60_000/5)
	contempt := contemptWeightManipulation*pc.Manipulation +
		contemptWeightDramatization*pc.Dramatization +
		asymmetryBoost

	defensiveness := defensivenessWeightPassive*pc.Passive + defensivenessWeightSuspicion*pc.Suspicion

	ghostBoost := 0.0
	if ghost != nil && ghost.Sufficient {
		ghostBoost = math.Min(ghostBoostCap, ghost.Score*0.2)
	}
	stonewalling := stonewallingWeightAvoidance*pc.Avoidance +
		stonewallingWeightDistance*pc.Distance +
		ghostBoost

	return &RelationalConflictIndex{
		Criticism:     bandFactor(criticism),
		Contempt:      bandFactor(contempt),
		Defensiveness: bandFactor(defensiveness),
		Stonewalling:  bandFactor(stonewalling),
	}
}

// bandFactor clamps the score and applies the fixed severity bands:
// <25 none, 25-44 mild, 45-69 moderate, >=70 severe.
func bandFactor(score float64) FactorScore {
	score = clamp(score, 0, 100)
	f := FactorScore{Score: score}
	switch {
	case score < 25:
		f.Severity = SeverityNone
	case score < 45:
		f.Severity = SeverityMild
	case score < 70:
		f.Severity = SeverityModerate
	default:
		f.Severity = SeveritySevere
	}
	f.Present = f.Severity != SeverityNone
	return f
}
