package sessions

import (
	"sort"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
)

// Segmenter partitions a sorted message stream into sessions using a
// fixed inactivity gap. The gap is deliberately not adaptive per user
// chronotype; any single long gap ends a session regardless of cause.
type Segmenter struct {
	cfg    *config.Config
	logger *zap.Logger
}

// Result holds the session partition plus the derived gap statistics
// downstream detectors need.
type Result struct {
	Sessions    []conversation.Session `json:"sessions"`
	Gaps        []int64                `json:"-"`
	GapP75      float64                `json:"gap_p75"`
	Initiations map[string]int         `json:"initiations"`
}

// NewSegmenter creates a new session segmenter.
func NewSegmenter(cfg *config.Config, logger *zap.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, logger: logger}
}

// Segment partitions msgs into sessions. The partition is exhaustive
// and non-overlapping: every message belongs to exactly one session.
func (s *Segmenter) Segment(msgs []conversation.UnifiedMessage) *Result {
	result := &Result{
		Sessions:    make([]conversation.Session, 0),
		Initiations: make(map[string]int),
	}
	if len(msgs) == 0 {
		return result
	}

	gap := s.cfg.Session.GapMillis
	start := 0
	for i := 1; i < len(msgs); i++ {
		delta := msgs[i].Timestamp - msgs[i-1].Timestamp
		result.Gaps = append(result.Gaps, delta)
		if delta > gap {
			result.Sessions = append(result.Sessions, buildSession(msgs, start, i-1))
			start = i
		}
	}
	result.Sessions = append(result.Sessions, buildSession(msgs, start, len(msgs)-1))

	for _, sess := range result.Sessions {
		result.Initiations[sess.Initiator]++
	}
	result.GapP75 = gapPercentile(result.Gaps, 0.75)

	s.logger.Debug("segmented conversation",
		zap.Int("messages", len(msgs)),
		zap.Int("sessions", len(result.Sessions)),
		zap.Float64("gap_p75_ms", result.GapP75))

	return result
}

func buildSession(msgs []conversation.UnifiedMessage, start, end int) conversation.Session {
	return conversation.Session{
		StartIndex:   start,
		EndIndex:     end,
		Start:        msgs[start].Timestamp,
		End:          msgs[end].Timestamp,
		MessageCount: end - start + 1,
		Initiator:    msgs[start].Sender,
	}
}

// gapPercentile computes an empirical percentile over inter-message
// gaps without gonum so the zero-gap case stays trivial.
func gapPercentile(gaps []int64, p float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	sorted := append([]int64(nil), gaps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	return float64(sorted[idx])
}
