package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRelationalConflictIndex(t *testing.T) {
	t.Run("criticism combines control and self focus", func(t *testing.T) {
		idx := ComputeRelationalConflictIndex(PatternConfidence{
			Control:     60,
			SelfFocused: 40,
		}, 0, 0, nil)

		assert.InDelta(t, 52, idx.Criticism.Score, 0.001)
		assert.Equal(t, SeverityModerate, idx.Criticism.Severity)
		assert.True(t, idx.Criticism.Present)
	})

	t.Run("zero inputs produce absent factors", func(t *testing.T) {
		idx := ComputeRelationalConflictIndex(PatternConfidence{}, 0, 0, nil)

		for _, f := range []FactorScore{idx.Criticism, idx.Contempt, idx.Defensiveness, idx.Stonewalling} {
			assert.Zero(t, f.Score)
			assert.Equal(t, SeverityNone, f.Severity)
			assert.False(t, f.Present)
		}
	})

	t.Run("response asymmetry boosts contempt", func(t *testing.T) {
		base := ComputeRelationalConflictIndex(PatternConfidence{Manipulation: 40}, 0, 0, nil)
		// A 50 minute median difference adds 10 points.
		boosted := ComputeRelationalConflictIndex(PatternConfidence{Manipulation: 40}, 0, 50*60_000, nil)

		assert.InDelta(t, 20, base.Contempt.Score, 0.001)
		assert.InDelta(t, 30, boosted.Contempt.Score, 0.001)
	})

	t.Run("asymmetry boost is capped", func(t *testing.T) {
		idx := ComputeRelationalConflictIndex(PatternConfidence{}, 0, 1e12, nil)
		assert.InDelta(t, 20, idx.Contempt.Score, 0.001)
	})

	t.Run("ghost risk boosts stonewalling only when sufficient", func(t *testing.T) {
		pc := PatternConfidence{Avoidance: 50, Distance: 50}

		without := ComputeRelationalConflictIndex(pc, 0, 0, nil)
		insufficient := ComputeRelationalConflictIndex(pc, 0, 0, &GhostRisk{Score: 80})
		with := ComputeRelationalConflictIndex(pc, 0, 0, &GhostRisk{Score: 80, Sufficient: true})

		assert.InDelta(t, 40, without.Stonewalling.Score, 0.001)
		assert.InDelta(t, 40, insufficient.Stonewalling.Score, 0.001)
		assert.InDelta(t, 56, with.Stonewalling.Score, 0.001)
	})

	t.Run("severity bands", func(t *testing.T) {
		cases := []struct {
			score    float64
			severity SeverityLevel
		}{
			{24, SeverityNone},
			{25, SeverityMild},
			{44, SeverityMild},
			{45, SeverityModerate},
			{69, SeverityModerate},
			{70, SeveritySevere},
			{250, SeveritySevere},
		}
		for _, tc := range cases {
			f := bandFactor(tc.score)
			assert.Equal(t, tc.severity, f.Severity, "score %.0f", tc.score)
			assert.Equal(t, tc.severity != SeverityNone, f.Present)
		}
	})
}
