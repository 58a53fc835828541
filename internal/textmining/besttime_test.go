package textmining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsight/analysis-engine/internal/engagement"
)

func heatmapResult(cells map[string][][2]int) *engagement.Result {
	result := &engagement.Result{Heatmaps: map[string]*engagement.Heatmap{}}
	for person, hits := range cells {
		h := &engagement.Heatmap{}
		for _, cell := range hits {
			h.Add(cell[0], cell[1])
		}
		result.Heatmaps[person] = h
	}
	return result
}

func TestBestTimes(t *testing.T) {
	t.Run("peak cell with a two hour window", func(t *testing.T) {
		eng := heatmapResult(map[string][][2]int{
			"alice": {{2, 21}, {2, 21}, {2, 21}, {4, 9}},
		})
		out := BestTimes([]string{"alice"}, eng)

		bt := out["alice"]
		require.True(t, bt.Sufficient)
		assert.Equal(t, 2, bt.Weekday)
		assert.Equal(t, "Tuesday", bt.WeekdayName())
		assert.Equal(t, 21, bt.Hour)
		assert.Equal(t, 3, bt.Count)
		assert.Equal(t, "20:00-22:00", bt.Window)
	})

	t.Run("window wraps midnight", func(t *testing.T) {
		eng := heatmapResult(map[string][][2]int{
			"alice": {{0, 0}, {0, 0}},
		})
		bt := BestTimes([]string{"alice"}, eng)["alice"]

		assert.Equal(t, 23, bt.WindowStart)
		assert.Equal(t, 1, bt.WindowEnd)
		assert.Equal(t, "23:00-01:00", bt.Window)
	})

	t.Run("no activity is insufficient", func(t *testing.T) {
		eng := heatmapResult(map[string][][2]int{"alice": {}})
		bt := BestTimes([]string{"alice"}, eng)["alice"]
		assert.False(t, bt.Sufficient)
	})

	t.Run("missing heatmap is insufficient", func(t *testing.T) {
		eng := &engagement.Result{Heatmaps: map[string]*engagement.Heatmap{}}
		bt := BestTimes([]string{"alice"}, eng)["alice"]
		assert.False(t, bt.Sufficient)
	})
}
