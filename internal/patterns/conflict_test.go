package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/sessions"
)

const (
	minute = int64(60 * 1000)
	hour   = 60 * minute
)

func textMsg(index int, sender, content string, ts int64) conversation.UnifiedMessage {
	return conversation.UnifiedMessage{
		Index: index, Sender: sender, Content: content, Timestamp: ts,
		Type: conversation.MessageTypeText,
	}
}

func detectConflicts(t *testing.T, msgs []conversation.UnifiedMessage) *ConflictResult {
	t.Helper()
	cfg := config.Default()
	logger := zap.NewNop()
	sess := sessions.NewSegmenter(cfg, logger).Segment(msgs)
	return NewConflictDetector(cfg, logger).Detect([]string{"alice", "bob"}, msgs, sess)
}

// calmExchange builds n alternating low-intensity messages one minute
// apart starting at ts.
func calmExchange(start int64, n int) []conversation.UnifiedMessage {
	msgs := make([]conversation.UnifiedMessage, 0, n)
	senders := [2]string{"alice", "bob"}
	for i := 0; i < n; i++ {
		msgs = append(msgs, textMsg(i, senders[i%2], "ok sure", start+int64(i)*minute))
	}
	return msgs
}

func TestDetectEscalations(t *testing.T) {
	t.Run("intensity spike in rapid alternation", func(t *testing.T) {
		msgs := calmExchange(0, 16)
		spike := textMsg(16, "alice", "WHY DO YOU NEVER LISTEN TO ME!!!", 16*minute)
		msgs = append(msgs, spike)

		result := detectConflicts(t, msgs)

		require.NotEmpty(t, result.Events)
		ev := result.Events[0]
		assert.Equal(t, ConflictEscalation, ev.Type)
		assert.Equal(t, SeveritySevere, ev.Severity)
		assert.Equal(t, spike.Timestamp, ev.Timestamp)
		assert.Contains(t, ev.Participants, "alice")
		assert.Contains(t, ev.Participants, "bob")
		assert.Equal(t, "conflict-0001", ev.ID)
	})

	t.Run("spike without the seed list stays mild", func(t *testing.T) {
		msgs := calmExchange(0, 16)
		msgs = append(msgs, textMsg(16, "alice", "WHY ARE YOU LIKE THIS!!!", 16*minute))

		result := detectConflicts(t, msgs)
		require.NotEmpty(t, result.Events)
		assert.Equal(t, SeverityMild, result.Events[0].Severity)
	})

	t.Run("spike without alternation is ignored", func(t *testing.T) {
		msgs := make([]conversation.UnifiedMessage, 0, 17)
		for i := 0; i < 16; i++ {
			msgs = append(msgs, textMsg(i, "alice", "ok sure", int64(i)*minute))
		}
		msgs = append(msgs, textMsg(16, "alice", "WHY DO YOU NEVER LISTEN TO ME!!!", 16*minute))

		result := detectConflicts(t, msgs)
		assert.Empty(t, result.Events)
	})

	t.Run("calm conversation yields nothing", func(t *testing.T) {
		result := detectConflicts(t, calmExchange(0, 40))
		assert.Empty(t, result.Events)
		assert.Empty(t, result.MostConflictProne)
	})
}

func TestDetectColdSilences(t *testing.T) {
	t.Run("long silence after an active stretch", func(t *testing.T) {
		msgs := calmExchange(0, 8)
		msgs = append(msgs, textMsg(8, "alice", "hello again", 8*minute+13*hour))

		result := detectConflicts(t, msgs)

		require.Len(t, result.Events, 1)
		ev := result.Events[0]
		assert.Equal(t, ConflictColdSilence, ev.Type)
		assert.Equal(t, SeverityModerate, ev.Severity)
		assert.Equal(t, msgs[7].Timestamp, ev.Timestamp)
	})

	t.Run("very long silence is severe", func(t *testing.T) {
		msgs := calmExchange(0, 8)
		msgs = append(msgs, textMsg(8, "alice", "hello again", 8*minute+30*hour))

		result := detectConflicts(t, msgs)
		require.Len(t, result.Events, 1)
		assert.Equal(t, SeveritySevere, result.Events[0].Severity)
	})

	t.Run("silence from an already quiet stretch is not cold", func(t *testing.T) {
		msgs := []conversation.UnifiedMessage{
			textMsg(0, "alice", "hey", 0),
			textMsg(1, "bob", "hey", minute),
			textMsg(2, "alice", "later", minute+13*hour),
		}
		result := detectConflicts(t, msgs)
		assert.Empty(t, result.Events)
	})
}

func TestDetectResolutions(t *testing.T) {
	t.Run("short reconnection burst after a cold silence", func(t *testing.T) {
		msgs := calmExchange(0, 8)
		reconnect := 8*minute + 13*hour
		msgs = append(msgs,
			textMsg(8, "alice", "hey", reconnect),
			textMsg(9, "bob", "hi", reconnect+minute),
			textMsg(10, "alice", "im sorry", reconnect+2*minute),
			textMsg(11, "bob", "me too", reconnect+3*minute),
		)

		result := detectConflicts(t, msgs)

		types := make(map[ConflictType]int)
		for _, ev := range result.Events {
			types[ev.Type]++
		}
		assert.Equal(t, 1, types[ConflictColdSilence])
		assert.Equal(t, 1, types[ConflictResolution])
	})

	t.Run("long messages do not count as reconnection", func(t *testing.T) {
		msgs := calmExchange(0, 8)
		reconnect := 8*minute + 13*hour
		long := "this is a much longer message that goes well past the short reply cutoff"
		msgs = append(msgs,
			textMsg(8, "alice", long, reconnect),
			textMsg(9, "bob", long, reconnect+minute),
			textMsg(10, "alice", long, reconnect+2*minute),
			textMsg(11, "bob", long, reconnect+3*minute),
		)

		result := detectConflicts(t, msgs)
		for _, ev := range result.Events {
			assert.NotEqual(t, ConflictResolution, ev.Type)
		}
	})
}

func TestConflictRanking(t *testing.T) {
	msgs := calmExchange(0, 8)
	msgs = append(msgs, textMsg(8, "alice", "hello again", 8*minute+13*hour))

	result := detectConflicts(t, msgs)
	require.NotEmpty(t, result.Events)
	assert.NotEmpty(t, result.MostConflictProne)
	assert.InDelta(t, 1.5, result.Scores[result.MostConflictProne], 0.001)
}

func TestMessageIntensity(t *testing.T) {
	calm := textMsg(0, "alice", "ok sure", 0)
	loud := textMsg(1, "alice", "STOP DOING THAT!!!", 0)
	assert.Greater(t, messageIntensity(&loud), 3*messageIntensity(&calm))
}
