package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/sessions"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Badge is one earned achievement. Cutoffs come from config.BadgesConfig
// and are absolute counts, not scaled to conversation length: a short
// conversation and a multi-year one use identical thresholds.
type Badge struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Holder   string `json:"holder"`
	Evidence string `json:"evidence"`
}

// BadgeEngine evaluates fixed-threshold achievement rules once per run.
type BadgeEngine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBadgeEngine creates a new badge engine.
func NewBadgeEngine(cfg *config.Config, logger *zap.Logger) *BadgeEngine {
	return &BadgeEngine{cfg: cfg, logger: logger}
}

// Evaluate returns every qualifying badge, ordered by participant then
// rule order. Rules are monotone: increasing a qualifying count never
// removes an earned badge.
func (e *BadgeEngine) Evaluate(participants []string, msgs []conversation.UnifiedMessage, eng *engagement.Result, tim *timing.Result, sess *sessions.Result) []Badge {
	badges := make([]Badge, 0)
	cuts := e.cfg.Badges

	sessionMax := e.perSessionMax(participants, msgs, sess)

	for _, p := range participants {
		pe := eng.PerPerson[p]
		if pe == nil {
			continue
		}
		ts := tim.PerPerson[p]

		if pe.LongestDailyStreak > cuts.StreakMasterDays {
			badges = append(badges, Badge{
				ID: "streak_master", Name: "Streak Master", Holder: p,
				Evidence: fmt.Sprintf("messaged %d days in a row", pe.LongestDailyStreak),
			})
		}
		if pe.DoubleTexts >= cuts.DoubleTexterCount {
			badges = append(badges, Badge{
				ID: "double_texter", Name: "Double Texter", Holder: p,
				Evidence: fmt.Sprintf("followed up on their own message %d times", pe.DoubleTexts),
			})
		}
		if pe.LateNightMessages >= cuts.NightOwlCount {
			badges = append(badges, Badge{
				ID: "night_owl", Name: "Night Owl", Holder: p,
				Evidence: fmt.Sprintf("sent %d messages between 23:00 and 05:00", pe.LateNightMessages),
			})
		}
		if pe.EarlyMorningMessages >= cuts.EarlyBirdCount {
			badges = append(badges, Badge{
				ID: "early_bird", Name: "Early Bird", Holder: p,
				Evidence: fmt.Sprintf("sent %d messages between 05:00 and 09:00", pe.EarlyMorningMessages),
			})
		}
		if pe.Messages >= cuts.NovelistMinMessages && pe.AvgMessageLength >= cuts.NovelistAvgLength {
			badges = append(badges, Badge{
				ID: "novelist", Name: "Novelist", Holder: p,
				Evidence: fmt.Sprintf("averages %.0f characters per message", pe.AvgMessageLength),
			})
		}
		if ts != nil && ts.RawSamples >= cuts.SpeedDemonMinReplies && ts.Median < cuts.SpeedDemonMedianMillis {
			badges = append(badges, Badge{
				ID: "speed_demon", Name: "Speed Demon", Holder: p,
				Evidence: fmt.Sprintf("median reply time of %.0f seconds", ts.Median/1000),
			})
		}
		if len(sess.Sessions) >= cuts.StarterMinSessions && pe.InitiationShare >= cuts.StarterShare {
			badges = append(badges, Badge{
				ID: "conversation_starter", Name: "Conversation Starter", Holder: p,
				Evidence: fmt.Sprintf("started %.0f%% of all conversations", pe.InitiationShare*100),
			})
		}
		if pe.ReactionsGiven >= cuts.ReactorCount {
			badges = append(badges, Badge{
				ID: "reactor", Name: "Reactor", Holder: p,
				Evidence: fmt.Sprintf("gave %d reactions", pe.ReactionsGiven),
			})
		}
		if pe.Words >= cuts.WordsmithWords {
			badges = append(badges, Badge{
				ID: "wordsmith", Name: "Wordsmith", Holder: p,
				Evidence: fmt.Sprintf("wrote %d words in total", pe.Words),
			})
		}
		if best := sessionMax[p]; best >= cuts.MarathonOwnMessages {
			badges = append(badges, Badge{
				ID: "marathoner", Name: "Marathoner", Holder: p,
				Evidence: fmt.Sprintf("sent %d messages in a single sitting", best),
			})
		}
	}

	e.logger.Debug("badge evaluation complete", zap.Int("badges", len(badges)))
	return badges
}

// perSessionMax returns, per person, their own message count within
// their busiest marathon-sized session.
func (e *BadgeEngine) perSessionMax(participants []string, msgs []conversation.UnifiedMessage, sess *sessions.Result) map[string]int {
	out := make(map[string]int, len(participants))
	for _, s := range sess.Sessions {
		if s.MessageCount < e.cfg.Badges.MarathonSessionSize {
			continue
		}
		counts := make(map[string]int)
		for i := s.StartIndex; i <= s.EndIndex; i++ {
			counts[msgs[i].Sender]++
		}
		for p, n := range counts {
			if n > out[p] {
				out[p] = n
			}
		}
	}
	return out
}
