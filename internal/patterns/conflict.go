package patterns

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/sessions"
)

// ConflictType represents the kind of detected conflict event.
type ConflictType string

const (
	ConflictEscalation  ConflictType = "escalation"
	ConflictColdSilence ConflictType = "cold_silence"
	ConflictResolution  ConflictType = "resolution"
)

// Severity grades a conflict event.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Conflict-proneness weights per event type.
const (
	weightEscalation  = 2.0
	weightColdSilence = 1.5
	weightResolution  = -0.5
)

// conflictBigrams is the fixed seed list that upgrades an escalation to
// severe when present in the triggering message.
var conflictBigrams = []string{
	"shut up",
	"leave me",
	"your fault",
	"my fault",
	"so done",
	"hate you",
	"never listen",
	"always do",
	"stop texting",
	"dont care",
	"don't care",
	"whatever fine",
	"not fair",
	"fed up",
}

// ConflictEvent is one detected conflict signal.
type ConflictEvent struct {
	ID           string       `json:"id"`
	Type         ConflictType `json:"type"`
	Timestamp    int64        `json:"timestamp"`
	Participants []string     `json:"participants"`
	Severity     Severity     `json:"severity"`
	MessageRange [2]int       `json:"message_range"`
}

// ConflictResult holds all detected events and the derived per-person
// conflict-proneness ranking.
type ConflictResult struct {
	Events            []ConflictEvent    `json:"events"`
	Scores            map[string]float64 `json:"scores"`
	MostConflictProne string             `json:"most_conflict_prone"`
}

// ConflictDetector runs a state machine over the session-aware timeline
// with a rolling intensity average.
type ConflictDetector struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConflictDetector creates a new conflict detector.
func NewConflictDetector(cfg *config.Config, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{cfg: cfg, logger: logger}
}

// Detect finds escalations, cold silences, and resolutions.
func (d *ConflictDetector) Detect(participants []string, msgs []conversation.UnifiedMessage, sess *sessions.Result) *ConflictResult {
	result := &ConflictResult{
		Events: make([]ConflictEvent, 0),
		Scores: make(map[string]float64, len(participants)),
	}
	for _, p := range participants {
		result.Scores[p] = 0
	}

	d.detectEscalations(msgs, result)
	coldReplies := d.detectColdSilences(msgs, sess, result)
	d.detectResolutions(msgs, coldReplies, result)

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Timestamp < result.Events[j].Timestamp
	})
	for i := range result.Events {
		result.Events[i].ID = fmt.Sprintf("conflict-%04d", i+1)
	}

	d.rank(participants, result)

	d.logger.Debug("conflict detection complete",
		zap.Int("events", len(result.Events)),
		zap.String("most_conflict_prone", result.MostConflictProne))

	return result
}

func (d *ConflictDetector) detectEscalations(msgs []conversation.UnifiedMessage, result *ConflictResult) {
	window := d.cfg.Conflict.RollingWindow
	intensities := make([]float64, 0, len(msgs))
	positions := make([]int, 0, len(msgs))
	for i := range msgs {
		if msgs[i].HasText() {
			intensities = append(intensities, messageIntensity(&msgs[i]))
			positions = append(positions, i)
		}
	}

	lastEvent := -window
	for k := window; k < len(intensities); k++ {
		if k-lastEvent < window {
			continue
		}
		avg := 0.0
		for _, v := range intensities[k-window : k] {
			avg += v
		}
		avg /= float64(window)
		if avg == 0 || intensities[k] <= d.cfg.Conflict.EscalationRatio*avg {
			continue
		}
		idx := positions[k]
		if !d.isBackAndForth(msgs, idx) {
			continue
		}

		severity := SeverityMild
		if containsConflictBigram(msgs[idx].Content) {
			severity = SeveritySevere
		}
		startIdx := positions[maxInt(0, k-4)]
		result.Events = append(result.Events, ConflictEvent{
			Type:         ConflictEscalation,
			Timestamp:    msgs[idx].Timestamp,
			Participants: sendersInRange(msgs, startIdx, idx),
			Severity:     severity,
			MessageRange: [2]int{startIdx, idx},
		})
		lastEvent = k
	}
}

// isBackAndForth reports whether the exchange ending at idx is a rapid
// alternation between senders.
func (d *ConflictDetector) isBackAndForth(msgs []conversation.UnifiedMessage, idx int) bool {
	alternations := 0
	checked := 0
	prev := idx
	for i := idx - 1; i >= 0 && checked < 5; i-- {
		if !msgs[i].IsAnalyzable() {
			continue
		}
		if msgs[prev].Timestamp-msgs[i].Timestamp > d.cfg.Conflict.RapidExchangeMillis {
			break
		}
		if msgs[i].Sender != msgs[prev].Sender {
			alternations++
		}
		prev = i
		checked++
	}
	return alternations >= d.cfg.Conflict.MinAlternations
}

// detectColdSilences returns, per detected silence, the position of the
// message that broke it, for resolution matching.
func (d *ConflictDetector) detectColdSilences(msgs []conversation.UnifiedMessage, sess *sessions.Result, result *ConflictResult) []int {
	var coldReplies []int
	threshold := float64(d.cfg.Conflict.ColdSilenceGapMillis)
	if sess.GapP75 > threshold {
		threshold = sess.GapP75
	}

	for i := 1; i < len(msgs); i++ {
		gap := float64(msgs[i].Timestamp - msgs[i-1].Timestamp)
		if gap <= threshold {
			continue
		}
		// Rule out silences that start from an already-quiet stretch.
		windowStart := msgs[i-1].Timestamp - d.cfg.Conflict.LookbackWindowMillis
		recent := 0
		first := i - 1
		for j := i - 1; j >= 0 && msgs[j].Timestamp >= windowStart; j-- {
			recent++
			first = j
		}
		if recent < d.cfg.Conflict.LookbackMinMessages {
			continue
		}

		severity := SeverityModerate
		if gap > 2*float64(d.cfg.Conflict.ColdSilenceGapMillis) {
			severity = SeveritySevere
		}
		result.Events = append(result.Events, ConflictEvent{
			Type:         ConflictColdSilence,
			Timestamp:    msgs[i-1].Timestamp,
			Participants: sendersInRange(msgs, first, i-1),
			Severity:     severity,
			MessageRange: [2]int{i - 1, i},
		})
		coldReplies = append(coldReplies, i)
	}
	return coldReplies
}

func (d *ConflictDetector) detectResolutions(msgs []conversation.UnifiedMessage, coldReplies []int, result *ConflictResult) {
	for _, start := range coldReplies {
		deadline := msgs[start].Timestamp + d.cfg.Conflict.ResolutionWindowMillis
		short := 0
		last := start
		for j := start; j < len(msgs) && msgs[j].Timestamp <= deadline; j++ {
			if !msgs[j].HasText() {
				continue
			}
			if wc := msgs[j].WordCount(); wc > 0 && wc <= d.cfg.Conflict.ResolutionMaxWords {
				short++
				last = j
			}
		}
		if short >= d.cfg.Conflict.ResolutionMinMessages {
			result.Events = append(result.Events, ConflictEvent{
				Type:         ConflictResolution,
				Timestamp:    msgs[start].Timestamp,
				Participants: sendersInRange(msgs, start, last),
				Severity:     SeverityMild,
				MessageRange: [2]int{start, last},
			})
		}
	}
}

func (d *ConflictDetector) rank(participants []string, result *ConflictResult) {
	for _, ev := range result.Events {
		var w float64
		switch ev.Type {
		case ConflictEscalation:
			w = weightEscalation
		case ConflictColdSilence:
			w = weightColdSilence
		case ConflictResolution:
			w = weightResolution
		}
		for _, p := range ev.Participants {
			if _, ok := result.Scores[p]; ok {
				result.Scores[p] += w
			}
		}
	}

	best := ""
	bestScore := 0.0
	for _, p := range participants {
		if s := result.Scores[p]; s > bestScore {
			best = p
			bestScore = s
		}
	}
	result.MostConflictProne = best
}

// messageIntensity is the local signal compared against the rolling
// average: punctuation pressure, shouting, and message weight.
func messageIntensity(m *conversation.UnifiedMessage) float64 {
	content := m.Content
	intensity := 1.0 + float64(minInt(m.WordCount(), 40))/10.0
	intensity += 2.0 * float64(strings.Count(content, "!"))
	intensity += 1.0 * float64(strings.Count(content, "?"))

	letters, uppers := 0, 0
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters >= 5 {
		intensity += 8.0 * float64(uppers) / float64(letters)
	}
	return intensity
}

func containsConflictBigram(content string) bool {
	lower := strings.ToLower(content)
	for _, b := range conflictBigrams {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// sendersInRange returns the distinct senders in [start, end] in order
// of first appearance.
func sendersInRange(msgs []conversation.UnifiedMessage, start, end int) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := start; i <= end && i < len(msgs); i++ {
		if _, ok := seen[msgs[i].Sender]; !ok {
			seen[msgs[i].Sender] = struct{}{}
			out = append(out, msgs[i].Sender)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
