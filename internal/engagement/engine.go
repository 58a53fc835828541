package engagement

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/sessions"
)

// Engine computes per-person engagement counters, calendar volume
// aggregates, the hour-by-weekday heatmap, burst windows, and monthly
// trend series.
//
// Heatmap hours use each message's local calendar hour as observed by
// the computing process; no per-participant timezone adjustment is
// applied. Documented simplification.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// PersonEngagement holds engagement counters for one participant.
// AvgMessageLength averages rune counts over text messages only, so a
// media-heavy sender's written messages are not diluted.
type PersonEngagement struct {
	Messages             int     `json:"messages"`
	TextMessages         int     `json:"text_messages"`
	Words                int     `json:"words"`
	AvgMessageLength     float64 `json:"avg_message_length"`
	DoubleTexts          int     `json:"double_texts"`
	MaxConsecutiveRun    int     `json:"max_consecutive_run"`
	MessageShare         float64 `json:"message_share"`
	ReactionsGiven       int     `json:"reactions_given"`
	ReactionsReceived    int     `json:"reactions_received"`
	ReactionGiveRate     float64 `json:"reaction_give_rate"`
	ReactionReceiveRate  float64 `json:"reaction_receive_rate"`
	MediaCount           int     `json:"media_count"`
	LinkCount            int     `json:"link_count"`
	LateNightMessages    int     `json:"late_night_messages"`
	EarlyMorningMessages int     `json:"early_morning_messages"`
	ActiveDays           int     `json:"active_days"`
	LongestDailyStreak   int     `json:"longest_daily_streak"`
	Initiations          int     `json:"initiations"`
	InitiationShare      float64 `json:"initiation_share"`
}

// Heatmap counts messages per (weekday, hour) cell. Weekday 0 is
// Sunday, matching time.Weekday.
type Heatmap struct {
	Counts [7][24]int `json:"counts"`
	Total  int        `json:"total"`
}

// Add records one message at the given cell.
func (h *Heatmap) Add(weekday, hour int) {
	h.Counts[weekday][hour]++
	h.Total++
}

// Peak returns the busiest cell, scanning weekday 0-6 then hour 0-23 so
// ties resolve to the first-encountered cell.
func (h *Heatmap) Peak() (weekday, hour, count int) {
	for wd := 0; wd < 7; wd++ {
		for hr := 0; hr < 24; hr++ {
			if h.Counts[wd][hr] > count {
				weekday, hour, count = wd, hr, h.Counts[wd][hr]
			}
		}
	}
	return weekday, hour, count
}

// BurstWindow is a run of contiguous days whose volume exceeds a
// multiple of the local daily average.
type BurstWindow struct {
	StartDay string  `json:"start_day"`
	EndDay   string  `json:"end_day"`
	Days     int     `json:"days"`
	Messages int     `json:"messages"`
	Multiple float64 `json:"multiple"`
}

// MonthlyTrend is one month of the longitudinal trend series.
type MonthlyTrend struct {
	Month             string             `json:"month"`
	Messages          int                `json:"messages"`
	AvgResponseMillis float64            `json:"avg_response_millis"`
	AvgMessageLength  float64            `json:"avg_message_length"`
	InitiationShare   map[string]float64 `json:"initiation_share"`
	Sentiment         float64            `json:"sentiment"`
}

// Result holds the engagement engine output.
type Result struct {
	PerPerson       map[string]*PersonEngagement `json:"per_person"`
	MonthlyVolume   map[string]map[string]int    `json:"monthly_volume"`
	Months          []string                     `json:"months"`
	WeekdayMessages int                          `json:"weekday_messages"`
	WeekendMessages int                          `json:"weekend_messages"`
	WeekendShare    float64                      `json:"weekend_share"`
	Heatmaps        map[string]*Heatmap          `json:"heatmaps"`
	Combined        *Heatmap                     `json:"combined"`
	Bursts          []BurstWindow                `json:"bursts"`
	Trends          []MonthlyTrend               `json:"trends"`
	TotalMessages   int                          `json:"total_messages"`
	TotalWords      int                          `json:"total_words"`
}

// NewEngine creates a new engagement engine.
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Analyze computes all engagement metrics for the conversation.
func (e *Engine) Analyze(participants []string, msgs []conversation.UnifiedMessage, sess *sessions.Result) *Result {
	result := &Result{
		PerPerson:     make(map[string]*PersonEngagement, len(participants)),
		MonthlyVolume: make(map[string]map[string]int),
		Heatmaps:      make(map[string]*Heatmap, len(participants)),
		Combined:      &Heatmap{},
	}
	for _, p := range participants {
		result.PerPerson[p] = &PersonEngagement{}
		result.Heatmaps[p] = &Heatmap{}
	}

	activeDays := make(map[string]map[string]struct{}, len(participants))
	for _, p := range participants {
		activeDays[p] = make(map[string]struct{})
	}
	dailyTotals := make(map[string]int)

	prevSender := ""
	run := 0
	for i := range msgs {
		m := &msgs[i]
		if !m.IsAnalyzable() {
			continue
		}
		pe, known := result.PerPerson[m.Sender]
		if !known {
			// Sender outside the declared participant list; skip rather
			// than invent a participant.
			continue
		}

		pe.Messages++
		result.TotalMessages++
		if m.HasText() {
			words := m.WordCount()
			pe.TextMessages++
			pe.Words += words
			result.TotalWords += words
			pe.AvgMessageLength += float64(len([]rune(m.Content)))
		}
		if m.HasMedia {
			pe.MediaCount++
		}
		if m.HasLink {
			pe.LinkCount++
		}
		for _, r := range m.Reactions {
			pe.ReactionsReceived++
			if giver, ok := result.PerPerson[r.Actor]; ok {
				giver.ReactionsGiven++
			}
		}

		t := m.Time()
		hour := t.Hour()
		weekday := int(t.Weekday())
		result.Heatmaps[m.Sender].Add(weekday, hour)
		result.Combined.Add(weekday, hour)
		if weekday == 0 || weekday == 6 {
			result.WeekendMessages++
		} else {
			result.WeekdayMessages++
		}
		if isLateNight(hour) {
			pe.LateNightMessages++
		}
		if hour >= 5 && hour < 9 {
			pe.EarlyMorningMessages++
		}

		day := t.Format("2006-01-02")
		month := t.Format("2006-01")
		activeDays[m.Sender][day] = struct{}{}
		dailyTotals[day]++
		if result.MonthlyVolume[month] == nil {
			result.MonthlyVolume[month] = make(map[string]int)
		}
		result.MonthlyVolume[month][m.Sender]++

		if m.Sender == prevSender {
			run++
			pe.DoubleTexts++
		} else {
			run = 1
			prevSender = m.Sender
		}
		if run > pe.MaxConsecutiveRun {
			pe.MaxConsecutiveRun = run
		}
	}

	e.finalizePerPerson(participants, result, sess, activeDays)

	result.Months = sortedMonths(result.MonthlyVolume)
	if result.WeekdayMessages+result.WeekendMessages > 0 {
		result.WeekendShare = float64(result.WeekendMessages) / float64(result.WeekdayMessages+result.WeekendMessages)
	}
	result.Bursts = e.detectBursts(dailyTotals)
	result.Trends = e.buildTrends(result.Months, msgs, sess)

	e.logger.Debug("engagement analysis complete",
		zap.Int("messages", result.TotalMessages),
		zap.Int("months", len(result.Months)),
		zap.Int("bursts", len(result.Bursts)))

	return result
}

func (e *Engine) finalizePerPerson(participants []string, result *Result, sess *sessions.Result, activeDays map[string]map[string]struct{}) {
	totalSessions := len(sess.Sessions)
	for _, p := range participants {
		pe := result.PerPerson[p]
		if pe.TextMessages > 0 {
			pe.AvgMessageLength /= float64(pe.TextMessages)
		}
		if pe.Messages > 0 {
			pe.ReactionGiveRate = float64(pe.ReactionsGiven) / float64(pe.Messages)
			pe.ReactionReceiveRate = float64(pe.ReactionsReceived) / float64(pe.Messages)
		}
		if result.TotalMessages > 0 {
			pe.MessageShare = float64(pe.Messages) / float64(result.TotalMessages)
		}
		pe.Initiations = sess.Initiations[p]
		if totalSessions > 0 {
			pe.InitiationShare = float64(pe.Initiations) / float64(totalSessions)
		}
		pe.ActiveDays = len(activeDays[p])
		pe.LongestDailyStreak = longestStreak(activeDays[p])
	}
}

// detectBursts flags days whose volume exceeds the configured multiple
// of the surrounding window's average, merging contiguous burst days.
func (e *Engine) detectBursts(dailyTotals map[string]int) []BurstWindow {
	if len(dailyTotals) == 0 {
		return nil
	}
	days := make([]string, 0, len(dailyTotals))
	for d := range dailyTotals {
		days = append(days, d)
	}
	sort.Strings(days)

	counts := make([]float64, len(days))
	for i, d := range days {
		counts[i] = float64(dailyTotals[d])
	}

	w := e.cfg.Engagement.BurstWindowDays
	burst := make([]bool, len(days))
	multiples := make([]float64, len(days))
	for i := range days {
		lo := i - w
		if lo < 0 {
			lo = 0
		}
		hi := i + w
		if hi >= len(days) {
			hi = len(days) - 1
		}
		local := stat.Mean(counts[lo:hi+1], nil)
		if local > 0 && counts[i] > e.cfg.Engagement.BurstMultiplier*local {
			burst[i] = true
			multiples[i] = counts[i] / local
		}
	}

	var windows []BurstWindow
	for i := 0; i < len(days); {
		if !burst[i] {
			i++
			continue
		}
		j := i
		total := 0
		maxMult := 0.0
		for j < len(days) && burst[j] {
			total += dailyTotals[days[j]]
			if multiples[j] > maxMult {
				maxMult = multiples[j]
			}
			j++
		}
		windows = append(windows, BurstWindow{
			StartDay: days[i],
			EndDay:   days[j-1],
			Days:     j - i,
			Messages: total,
			Multiple: maxMult,
		})
		i = j
	}
	return windows
}

// buildTrends assembles the monthly trend series for response time,
// message length, initiation share, and sentiment.
func (e *Engine) buildTrends(months []string, msgs []conversation.UnifiedMessage, sess *sessions.Result) []MonthlyTrend {
	if len(months) == 0 {
		return nil
	}

	type acc struct {
		messages    int
		lengthSum   float64
		lengthN     int
		responseSum float64
		responseN   int
		sentiment   float64
		sentimentN  int
		initiations map[string]int
		sessions    int
	}
	byMonth := make(map[string]*acc, len(months))
	for _, m := range months {
		byMonth[m] = &acc{initiations: make(map[string]int)}
	}

	for i := range msgs {
		m := &msgs[i]
		if !m.IsAnalyzable() {
			continue
		}
		a, ok := byMonth[m.Time().Format("2006-01")]
		if !ok {
			continue
		}
		a.messages++
		if m.HasText() {
			a.lengthSum += float64(len([]rune(m.Content)))
			a.lengthN++
			a.sentiment += sentimentScore(m.Content)
			a.sentimentN++
		}
	}
	for _, ev := range conversation.BuildResponseEvents(msgs) {
		if a, ok := byMonth[time.UnixMilli(ev.Timestamp).Format("2006-01")]; ok {
			a.responseSum += float64(ev.Delta)
			a.responseN++
		}
	}
	for _, s := range sess.Sessions {
		if a, ok := byMonth[time.UnixMilli(s.Start).Format("2006-01")]; ok {
			a.initiations[s.Initiator]++
			a.sessions++
		}
	}

	trends := make([]MonthlyTrend, 0, len(months))
	for _, month := range months {
		a := byMonth[month]
		t := MonthlyTrend{
			Month:           month,
			Messages:        a.messages,
			InitiationShare: make(map[string]float64),
		}
		if a.responseN > 0 {
			t.AvgResponseMillis = a.responseSum / float64(a.responseN)
		}
		if a.lengthN > 0 {
			t.AvgMessageLength = a.lengthSum / float64(a.lengthN)
		}
		if a.sentimentN > 0 {
			t.Sentiment = a.sentiment / float64(a.sentimentN)
		}
		if a.sessions > 0 {
			for who, n := range a.initiations {
				t.InitiationShare[who] = float64(n) / float64(a.sessions)
			}
		}
		trends = append(trends, t)
	}
	return trends
}

// isLateNight reports whether an hour falls in the 23:00-04:59 band.
func isLateNight(hour int) bool {
	return hour >= 23 || hour < 5
}

func sortedMonths(volume map[string]map[string]int) []string {
	months := make([]string, 0, len(volume))
	for m := range volume {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// longestStreak returns the longest run of consecutive active calendar
// days.
func longestStreak(days map[string]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	sorted := make([]string, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	best, current := 1, 1
	prev, _ := time.ParseInLocation("2006-01-02", sorted[0], time.Local)
	for _, d := range sorted[1:] {
		day, err := time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			continue
		}
		if prev.AddDate(0, 0, 1).Equal(day) {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
		prev = day
	}
	return best
}
