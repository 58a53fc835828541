package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/patterns"
	"github.com/chatsight/analysis-engine/internal/timing"
)

func threatEngine(t *testing.T) *ThreatEngine {
	t.Helper()
	return NewThreatEngine(config.Default(), zap.NewNop())
}

func threatInputs() (*engagement.Result, *timing.Result, *patterns.PursuitResult, *patterns.ReciprocityResult, *patterns.ConflictResult, map[string]*GhostRisk) {
	eng := &engagement.Result{
		TotalMessages: 200,
		PerPerson: map[string]*engagement.PersonEngagement{
			"alice": {Messages: 100, Initiations: 5, DoubleTexts: 10, LateNightMessages: 4},
			"bob":   {Messages: 100, Initiations: 5, DoubleTexts: 10, LateNightMessages: 4},
		},
	}
	tim := &timing.Result{PerPerson: map[string]*timing.PersonStats{
		"alice": {Median: 300_000, RawSamples: 30, Sufficient: true},
		"bob":   {Median: 300_000, RawSamples: 30, Sufficient: true},
	}}
	pursuit := &patterns.PursuitResult{Intensity: map[string]float64{"alice": 0, "bob": 0}}
	reciprocity := &patterns.ReciprocityResult{Score: 90, Sufficient: true}
	conflict := &patterns.ConflictResult{Scores: map[string]float64{}}
	ghost := map[string]*GhostRisk{
		"alice": {Score: 30, Level: "low", Sufficient: true},
		"bob":   {Score: 50, Level: "medium", Sufficient: true},
	}
	return eng, tim, pursuit, reciprocity, conflict, ghost
}

func TestThreatCompute(t *testing.T) {
	participants := []string{"alice", "bob"}

	t.Run("fixed meter order with explicit polarity", func(t *testing.T) {
		eng, tim, pursuit, reciprocity, conflict, ghost := threatInputs()
		meters := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		require.Len(t, meters, 4)
		assert.Equal(t, "codependency", meters[0].Name)
		assert.Equal(t, "power_imbalance", meters[1].Name)
		assert.Equal(t, "ghost_threat", meters[2].Name)
		assert.Equal(t, "trust", meters[3].Name)
		for _, m := range meters[:3] {
			assert.Equal(t, PolarityConcern, m.Polarity, m.Name)
		}
		assert.Equal(t, PolarityHealth, meters[3].Polarity)
		for _, m := range meters {
			assert.GreaterOrEqual(t, m.Score, 0.0, m.Name)
			assert.LessOrEqual(t, m.Score, 100.0, m.Name)
		}
	})

	t.Run("ghost threat averages the dyad", func(t *testing.T) {
		eng, tim, pursuit, reciprocity, conflict, ghost := threatInputs()
		meters := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		assert.True(t, meters[2].Sufficient)
		assert.InDelta(t, 40, meters[2].Score, 0.001)
	})

	t.Run("insufficient ghost risk propagates", func(t *testing.T) {
		eng, tim, pursuit, reciprocity, conflict, ghost := threatInputs()
		ghost["bob"] = &GhostRisk{Level: "unknown"}
		meters := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		assert.False(t, meters[2].Sufficient)
		assert.Zero(t, meters[2].Score)
	})

	t.Run("trust follows reciprocity and conflict history", func(t *testing.T) {
		eng, tim, pursuit, reciprocity, conflict, ghost := threatInputs()
		calm := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		conflict.Events = []patterns.ConflictEvent{
			{Type: patterns.ConflictEscalation}, {Type: patterns.ConflictEscalation},
			{Type: patterns.ConflictEscalation}, {Type: patterns.ConflictEscalation},
		}
		heated := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		assert.Less(t, heated[3].Score, calm[3].Score)

		conflict.Events = append(conflict.Events, patterns.ConflictEvent{Type: patterns.ConflictResolution})
		repaired := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)
		assert.Greater(t, repaired[3].Score, heated[3].Score)
	})

	t.Run("power imbalance reflects one sided pursuit", func(t *testing.T) {
		eng, tim, pursuit, reciprocity, conflict, ghost := threatInputs()
		balanced := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		pursuit.Intensity["alice"] = 100
		eng.PerPerson["alice"].Initiations = 10
		eng.PerPerson["bob"].Initiations = 1
		skewed := threatEngine(t).Compute(participants, eng, tim, pursuit, reciprocity, conflict, ghost, 100)

		assert.Greater(t, skewed[1].Score, balanced[1].Score)
	})

	t.Run("missing dyad yields insufficient meters", func(t *testing.T) {
		eng := &engagement.Result{PerPerson: map[string]*engagement.PersonEngagement{}}
		tim := &timing.Result{PerPerson: map[string]*timing.PersonStats{}}
		pursuit := &patterns.PursuitResult{Intensity: map[string]float64{}}
		reciprocity := &patterns.ReciprocityResult{Score: 50}
		conflict := &patterns.ConflictResult{}

		meters := threatEngine(t).Compute([]string{"alice"}, eng, tim, pursuit, reciprocity, conflict, nil, 0)

		require.Len(t, meters, 4)
		assert.False(t, meters[0].Sufficient)
		assert.False(t, meters[1].Sufficient)
		assert.False(t, meters[2].Sufficient)
	})
}
