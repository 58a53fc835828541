package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/scoring"
)

// dailyConversation builds a two-person conversation with one four
// message exchange per day.
func dailyConversation(days int) *conversation.ParsedConversation {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	var msgs []conversation.UnifiedMessage
	lines := []struct {
		sender  string
		content string
	}{
		{"alice", "good morning friend"},
		{"bob", "morning how are you"},
		{"alice", "doing great today"},
		{"bob", "same here honestly"},
	}
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for i, line := range lines {
			msgs = append(msgs, conversation.UnifiedMessage{
				Index:     len(msgs),
				Sender:    line.sender,
				Content:   line.content,
				Timestamp: day.Add(time.Duration(i) * 4 * time.Minute).UnixMilli(),
				Type:      conversation.MessageTypeText,
			})
		}
	}
	return &conversation.ParsedConversation{
		Platform:     "whatsapp",
		Participants: []string{"alice", "bob"},
		Messages:     msgs,
	}
}

func TestEngineAnalyze(t *testing.T) {
	engine := NewEngine(config.Default(), nil, nil)

	t.Run("full pipeline over a daily conversation", func(t *testing.T) {
		conv := dailyConversation(120)
		result, err := engine.Analyze(context.Background(), conv)
		require.NoError(t, err)

		assert.NotEmpty(t, result.Run.ID)
		assert.NotEmpty(t, result.Fingerprint)
		assert.Equal(t, "whatsapp", result.Platform)
		assert.Equal(t, 480, result.Metadata.TotalMessages)

		// One session per day.
		assert.Len(t, result.Sessions.Sessions, 120)

		bob := result.Timing.PerPerson["bob"]
		require.NotNil(t, bob)
		assert.True(t, bob.Sufficient)
		assert.InDelta(t, 4*60_000, bob.Median, 1)

		assert.True(t, result.Reciprocity.MessageBalance.Measured)
		require.Len(t, result.ThreatMeters, 4)
		assert.Equal(t, "trust", result.ThreatMeters[3].Name)

		// Five calendar months of history: ghost risk is measurable.
		g := result.Viral.GhostRisk["alice"]
		require.NotNil(t, g)
		assert.True(t, g.Sufficient)

		assert.True(t, result.BestTimes["alice"].Sufficient)
		assert.NotEmpty(t, result.Ranks)
		for _, r := range result.Ranks {
			assert.Equal(t, config.StrategyLogNormal, r.Kind)
			assert.GreaterOrEqual(t, r.Percentile, 0.0)
			assert.LessOrEqual(t, r.Percentile, 100.0)
		}
	})

	t.Run("identical input yields identical metrics", func(t *testing.T) {
		conv := dailyConversation(60)
		first, err := engine.Analyze(context.Background(), conv)
		require.NoError(t, err)
		second, err := engine.Analyze(context.Background(), conv)
		require.NoError(t, err)

		assert.NotEqual(t, first.Run.ID, second.Run.ID)
		assert.Equal(t, first.Fingerprint, second.Fingerprint)
		assert.Equal(t, first.Sessions, second.Sessions)
		assert.Equal(t, first.Timing, second.Timing)
		assert.Equal(t, first.Engagement, second.Engagement)
		assert.Equal(t, first.Conflict, second.Conflict)
		assert.Equal(t, first.Pursuit, second.Pursuit)
		assert.Equal(t, first.Reciprocity, second.Reciprocity)
		assert.Equal(t, first.Badges, second.Badges)
		assert.Equal(t, first.Viral, second.Viral)
		assert.Equal(t, first.ThreatMeters, second.ThreatMeters)
		assert.Equal(t, first.TextPatterns, second.TextPatterns)
		assert.Equal(t, first.Ranks, second.Ranks)
	})

	t.Run("empty conversation degrades gracefully", func(t *testing.T) {
		conv := &conversation.ParsedConversation{
			Platform:     "imessage",
			Participants: []string{"alice", "bob"},
		}
		result, err := engine.Analyze(context.Background(), conv)
		require.NoError(t, err)

		assert.Empty(t, result.Sessions.Sessions)
		assert.Empty(t, result.Ranks)
		assert.False(t, result.Viral.GhostRisk["alice"].Sufficient)
		assert.False(t, result.BestTimes["alice"].Sufficient)
	})

	t.Run("nil conversation is rejected", func(t *testing.T) {
		_, err := engine.Analyze(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.Analyze(ctx, dailyConversation(10))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		conv := dailyConversation(5)
		// Shuffle two messages out of order.
		conv.Messages[0], conv.Messages[1] = conv.Messages[1], conv.Messages[0]
		snapshot := conv.Messages[0]

		_, err := engine.Analyze(context.Background(), conv)
		require.NoError(t, err)
		assert.Equal(t, snapshot, conv.Messages[0])
	})
}

func TestRelationalConflictIndex(t *testing.T) {
	engine := NewEngine(config.Default(), nil, nil)
	result, err := engine.Analyze(context.Background(), dailyConversation(120))
	require.NoError(t, err)

	idx := engine.RelationalConflictIndex(result, PatternConfidence{
		Control:     60,
		SelfFocused: 40,
	})

	require.NotNil(t, idx)
	assert.InDelta(t, 52, idx.Criticism.Score, 0.001)
	assert.Equal(t, scoring.SeverityModerate, idx.Criticism.Severity)
	assert.True(t, idx.Criticism.Present)
	// Symmetric reply medians add no contempt boost.
	assert.Zero(t, idx.Contempt.Score)
}

func TestCompareRuns(t *testing.T) {
	engine := NewEngine(config.Default(), nil, nil)

	t.Run("longitudinal diff of the same conversation", func(t *testing.T) {
		before, err := engine.Analyze(context.Background(), dailyConversation(60))
		require.NoError(t, err)
		after, err := engine.Analyze(context.Background(), dailyConversation(90))
		require.NoError(t, err)

		cmp, err := Compare(before, after)
		require.NoError(t, err)
		assert.Equal(t, before.Fingerprint, cmp.Fingerprint)
		assert.NotEmpty(t, cmp.Deltas)

		for _, d := range cmp.Deltas {
			if d.Metric == "total_messages" {
				assert.Equal(t, "improved", string(d.Direction))
			}
		}
		assert.Equal(t, "stable", cmp.VolumeTrend)
	})

	t.Run("different conversations do not compare", func(t *testing.T) {
		a, err := engine.Analyze(context.Background(), dailyConversation(30))
		require.NoError(t, err)

		other := dailyConversation(30)
		other.Platform = "imessage"
		b, err := engine.Analyze(context.Background(), other)
		require.NoError(t, err)

		_, err = Compare(a, b)
		assert.Error(t, err)
	})

	t.Run("nil results are rejected", func(t *testing.T) {
		_, err := Compare(nil, nil)
		assert.Error(t, err)
	})
}
