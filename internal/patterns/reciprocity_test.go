package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/sessions"
	"github.com/chatsight/analysis-engine/internal/timing"
)

func reciprocityEngine(t *testing.T) *ReciprocityEngine {
	t.Helper()
	return NewReciprocityEngine(config.Default(), zap.NewNop())
}

func engagementFor(counts map[string]*engagement.PersonEngagement) *engagement.Result {
	return &engagement.Result{PerPerson: counts}
}

func sessionsOf(n int, initiations map[string]int) *sessions.Result {
	return &sessions.Result{
		Sessions:    make([]conversation.Session, n),
		Initiations: initiations,
	}
}

func timingFor(stats map[string]*timing.PersonStats) *timing.Result {
	return &timing.Result{PerPerson: stats}
}

func TestReciprocity(t *testing.T) {
	participants := []string{"alice", "bob"}

	t.Run("perfectly balanced dyad", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{
			"alice": {Messages: 30, Initiations: 3, ReactionsGiven: 3},
			"bob":   {Messages: 30, Initiations: 3, ReactionsGiven: 3},
		})
		sess := sessionsOf(6, map[string]int{"alice": 3, "bob": 3})
		tim := timingFor(map[string]*timing.PersonStats{
			"alice": {Median: 60_000, RawSamples: 10},
			"bob":   {Median: 60_000, RawSamples: 10},
		})

		result := reciprocityEngine(t).Compute(participants, eng, sess, tim)

		assert.Equal(t, "alice", result.PersonA)
		assert.Equal(t, "bob", result.PersonB)
		assert.True(t, result.Sufficient)
		assert.InDelta(t, 100, result.Score, 0.001)
		assert.True(t, result.MessageBalance.Measured)
		assert.True(t, result.ResponseSymmetry.Measured)
	})

	t.Run("lopsided effort drags the score down", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{
			"alice": {Messages: 90, Initiations: 9, ReactionsGiven: 9},
			"bob":   {Messages: 10, Initiations: 1, ReactionsGiven: 1},
		})
		sess := sessionsOf(10, map[string]int{"alice": 9, "bob": 1})
		tim := timingFor(map[string]*timing.PersonStats{
			"alice": {Median: 60_000, RawSamples: 10},
			"bob":   {Median: 540_000, RawSamples: 10},
		})

		result := reciprocityEngine(t).Compute(participants, eng, sess, tim)

		assert.True(t, result.Sufficient)
		// Every sub-score is a 1:9 ratio.
		assert.InDelta(t, 100.0/9, result.Score, 0.01)
	})

	t.Run("sparse data stays neutral and unmeasured", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{
			"alice": {Messages: 2},
			"bob":   {Messages: 2},
		})
		sess := sessionsOf(1, map[string]int{"alice": 1})
		tim := timingFor(map[string]*timing.PersonStats{
			"alice": {RawSamples: 1},
			"bob":   {RawSamples: 1},
		})

		result := reciprocityEngine(t).Compute(participants, eng, sess, tim)

		assert.False(t, result.Sufficient)
		assert.InDelta(t, 50, result.Score, 0.001)
		assert.False(t, result.MessageBalance.Measured)
		assert.False(t, result.InitiationBalance.Measured)
		assert.False(t, result.ResponseSymmetry.Measured)
		assert.False(t, result.ReactionBalance.Measured)
	})

	t.Run("group chats score the two most active", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{
			"alice": {Messages: 40, Initiations: 3, ReactionsGiven: 3},
			"bob":   {Messages: 5},
			"carol": {Messages: 40, Initiations: 3, ReactionsGiven: 3},
		})
		sess := sessionsOf(6, map[string]int{"alice": 3, "carol": 3})
		tim := timingFor(map[string]*timing.PersonStats{
			"alice": {Median: 60_000, RawSamples: 10},
			"bob":   {RawSamples: 1},
			"carol": {Median: 60_000, RawSamples: 10},
		})

		result := reciprocityEngine(t).Compute([]string{"alice", "bob", "carol"}, eng, sess, tim)

		assert.Equal(t, "alice", result.PersonA)
		assert.Equal(t, "carol", result.PersonB)
	})
}

func TestPrimaryDyad(t *testing.T) {
	t.Run("needs two participants", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{"alice": {Messages: 5}})
		a, b := PrimaryDyad([]string{"alice"}, eng)
		assert.Empty(t, a)
		assert.Empty(t, b)
	})

	t.Run("pair keeps participant order", func(t *testing.T) {
		eng := engagementFor(map[string]*engagement.PersonEngagement{
			"alice": {Messages: 5},
			"bob":   {Messages: 50},
		})
		a, b := PrimaryDyad([]string{"alice", "bob"}, eng)
		assert.Equal(t, "alice", a)
		assert.Equal(t, "bob", b)
	})
}
