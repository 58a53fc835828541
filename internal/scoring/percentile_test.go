package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsight/analysis-engine/config"
)

func TestBenchmarkStrategy(t *testing.T) {
	s := NewBenchmarkStrategy(responseBenchmarks)

	t.Run("kind tag", func(t *testing.T) {
		assert.Equal(t, config.StrategyBenchmark, s.Kind())
	})

	t.Run("anchor values map exactly", func(t *testing.T) {
		assert.InDelta(t, 50, s.Percentile(300_000), 0.001)
		assert.InDelta(t, 90, s.Percentile(7_200_000), 0.001)
	})

	t.Run("interpolates between anchors", func(t *testing.T) {
		// Halfway between the 2 minute and 5 minute anchors.
		assert.InDelta(t, 37.5, s.Percentile(210_000), 0.001)
	})

	t.Run("clamps outside the table", func(t *testing.T) {
		assert.InDelta(t, 10, s.Percentile(0), 0.001)
		assert.InDelta(t, 99, s.Percentile(1e12), 0.001)
	})

	t.Run("empty table", func(t *testing.T) {
		assert.Zero(t, NewBenchmarkStrategy(nil).Percentile(42))
	})
}

func TestLogNormalStrategy(t *testing.T) {
	s := NewLogNormalStrategy(math.Log(300_000), 1.8)

	t.Run("kind tag", func(t *testing.T) {
		assert.Equal(t, config.StrategyLogNormal, s.Kind())
	})

	t.Run("median of the reference lands at fifty", func(t *testing.T) {
		assert.InDelta(t, 50, s.Percentile(300_000), 0.5)
	})

	t.Run("monotone in the value", func(t *testing.T) {
		fast := s.Percentile(30_000)
		mid := s.Percentile(300_000)
		slow := s.Percentile(30_000_000)
		assert.Less(t, fast, mid)
		assert.Less(t, mid, slow)
	})

	t.Run("non-positive values rank at zero", func(t *testing.T) {
		assert.Zero(t, s.Percentile(0))
		assert.Zero(t, s.Percentile(-5))
	})
}

func TestStrategySelection(t *testing.T) {
	t.Run("defaults to log-normal", func(t *testing.T) {
		cfg := config.Default()
		assert.Equal(t, config.StrategyLogNormal, NewResponseStrategy(cfg).Kind())
		assert.Equal(t, config.StrategyLogNormal, NewVolumeStrategy(cfg).Kind())
	})

	t.Run("benchmark strategy is selectable", func(t *testing.T) {
		cfg := config.Default()
		cfg.Ranking.Strategy = config.StrategyBenchmark
		require.NoError(t, cfg.Validate())
		assert.Equal(t, config.StrategyBenchmark, NewResponseStrategy(cfg).Kind())
		assert.Equal(t, config.StrategyBenchmark, NewVolumeStrategy(cfg).Kind())
	})
}
