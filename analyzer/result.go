package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/delta"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/patterns"
	"github.com/chatsight/analysis-engine/internal/scoring"
	"github.com/chatsight/analysis-engine/internal/sessions"
	"github.com/chatsight/analysis-engine/internal/textmining"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Public aliases for the types callers exchange with the engine.
type (
	// PatternConfidence carries the external questionnaire inputs for
	// the relational conflict index.
	PatternConfidence = scoring.PatternConfidence
	// RelationalConflictIndex is the banded four-factor composite.
	RelationalConflictIndex = scoring.RelationalConflictIndex
	// Comparison is the longitudinal diff between two runs.
	Comparison = delta.Comparison
	// Snapshot is the comparable summary of one run.
	Snapshot = delta.Snapshot
)

// Run holds per-run metadata. It is intentionally separate from the
// metric payload: two runs over identical input produce identical
// metrics but distinct Run blocks.
type Run struct {
	ID          string        `json:"id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
}

// Result is the aggregate analysis output: plain nested records keyed
// by participant name and by YYYY-MM month string. Consumers must treat
// it as read-only; a re-analysis replaces it wholesale.
type Result struct {
	Run          Run                            `json:"run"`
	Fingerprint  string                         `json:"fingerprint"`
	Platform     string                         `json:"platform"`
	Participants []string                       `json:"participants"`
	Metadata     conversation.Metadata          `json:"metadata"`
	Sessions     *sessions.Result               `json:"sessions"`
	Timing       *timing.Result                 `json:"timing"`
	Engagement   *engagement.Result             `json:"engagement"`
	Conflict     *patterns.ConflictResult       `json:"conflict"`
	Pursuit      *patterns.PursuitResult        `json:"pursuit"`
	Reciprocity  *patterns.ReciprocityResult    `json:"reciprocity"`
	Badges       []scoring.Badge                `json:"badges"`
	Viral        *scoring.ViralScores           `json:"viral"`
	ThreatMeters []scoring.ThreatMeter          `json:"threat_meters"`
	TextPatterns *textmining.Result             `json:"text_patterns"`
	BestTimes    map[string]textmining.BestTime `json:"best_times"`
	Ranks        []scoring.RankResult           `json:"ranks"`
}

// Snapshot reduces the result to the comparable summary the delta
// comparator consumes.
func (r *Result) Snapshot() Snapshot {
	s := Snapshot{
		Fingerprint:       r.Fingerprint,
		TotalMessages:     r.Engagement.TotalMessages,
		TotalWords:        r.Engagement.TotalWords,
		SessionCount:      len(r.Sessions.Sessions),
		AvgResponseMillis: r.Timing.AverageResponseMillis,
		DurationDays:      r.Metadata.DurationDays,
	}

	chars, texts := 0.0, 0
	for _, p := range r.Participants {
		if pe := r.Engagement.PerPerson[p]; pe != nil && pe.TextMessages > 0 {
			chars += pe.AvgMessageLength * float64(pe.TextMessages)
			texts += pe.TextMessages
		}
	}
	if texts > 0 {
		s.AvgMessageLength = chars / float64(texts)
	}
	return s
}

// Compare diffs two completed analyses of the same conversation,
// oldest first.
func Compare(before, after *Result) (*Comparison, error) {
	if before == nil || after == nil {
		return nil, fmt.Errorf("both results are required")
	}
	return delta.Compare(before.Snapshot(), after.Snapshot())
}

// fingerprint identifies a conversation across repeated analyses: it
// hashes the stable head of the conversation, not its current extent,
// so a grown conversation keeps its identity.
func fingerprint(conv *conversation.ParsedConversation) string {
	h := sha256.New()
	h.Write([]byte(conv.Platform))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(conv.Participants, "\x00")))
	if len(conv.Messages) > 0 {
		first := conv.Messages[0]
		fmt.Fprintf(h, "\x00%d\x00%d\x00%s", first.Timestamp, first.Index, first.Sender)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
