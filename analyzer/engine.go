package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/metrics"
	"github.com/chatsight/analysis-engine/internal/patterns"
	"github.com/chatsight/analysis-engine/internal/scoring"
	"github.com/chatsight/analysis-engine/internal/sessions"
	"github.com/chatsight/analysis-engine/internal/textmining"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Engine is the analysis pipeline facade. It owns every sub-engine and
// runs them in dependency order, parallelizing independent stages. An
// Engine is safe for concurrent Analyze calls; all per-run state lives
// on the stack.
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector

	segmenter   *sessions.Segmenter
	timing      *timing.Engine
	engagement  *engagement.Engine
	conflicts   *patterns.ConflictDetector
	pursuits    *patterns.PursuitDetector
	reciprocity *patterns.ReciprocityEngine
	badges      *scoring.BadgeEngine
	viral       *scoring.ViralEngine
	threats     *scoring.ThreatEngine
	extractor   *textmining.Extractor

	responseRank scoring.RankStrategy
	volumeRank   scoring.RankStrategy
}

// NewEngine creates a fully wired analysis engine. A nil cfg uses the
// built-in defaults, a nil logger disables logging, and a nil collector
// records metrics into a private registry.
func NewEngine(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}

	return &Engine{
		cfg:          cfg,
		logger:       logger,
		collector:    collector,
		segmenter:    sessions.NewSegmenter(cfg, logger),
		timing:       timing.NewEngine(cfg, logger),
		engagement:   engagement.NewEngine(cfg, logger),
		conflicts:    patterns.NewConflictDetector(cfg, logger),
		pursuits:     patterns.NewPursuitDetector(cfg, logger),
		reciprocity:  patterns.NewReciprocityEngine(cfg, logger),
		badges:       scoring.NewBadgeEngine(cfg, logger),
		viral:        scoring.NewViralEngine(cfg, logger),
		threats:      scoring.NewThreatEngine(cfg, logger),
		extractor:    textmining.NewExtractor(cfg, logger),
		responseRank: scoring.NewResponseStrategy(cfg),
		volumeRank:   scoring.NewVolumeStrategy(cfg),
	}
}

// Analyze runs the full pipeline over one parsed conversation. The
// input is never mutated. Re-running over identical input yields an
// identical metric payload; only the Run block differs.
func (e *Engine) Analyze(ctx context.Context, conv *conversation.ParsedConversation) (*Result, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is required")
	}
	started := time.Now()

	norm := conversation.Normalize(conv)
	msgs := norm.Messages
	participants := norm.Participants

	e.logger.Info("starting analysis",
		zap.String("platform", norm.Platform),
		zap.Int("messages", len(msgs)),
		zap.Int("participants", len(participants)))

	result := &Result{
		Fingerprint:  fingerprint(norm),
		Platform:     norm.Platform,
		Participants: participants,
		Metadata:     norm.Metadata,
	}

	// Sessions feed nearly everything downstream and run first.
	e.stage("sessions", func() {
		result.Sessions = e.segmenter.Segment(msgs)
	})

	// Timing and engagement only read the message slice; they run in
	// parallel.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.stage("timing", func() {
			result.Timing = e.timing.Analyze(participants, msgs)
		})
		return nil
	})
	g.Go(func() error {
		e.stage("engagement", func() {
			result.Engagement = e.engagement.Analyze(participants, msgs, result.Sessions)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.stage("patterns", func() {
		result.Conflict = e.conflicts.Detect(participants, msgs, result.Sessions)
		result.Pursuit = e.pursuits.Detect(participants, msgs)
		result.Reciprocity = e.reciprocity.Compute(participants, result.Engagement, result.Sessions, result.Timing)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Composite scoring and text mining are independent of each other.
	g, _ = errgroup.WithContext(ctx)
	g.Go(func() error {
		e.stage("scoring", func() {
			result.Viral = e.viral.Compute(participants, result.Engagement, result.Timing, norm.Metadata.DurationDays)
			result.ThreatMeters = e.threats.Compute(participants,
				result.Engagement, result.Timing,
				result.Pursuit, result.Reciprocity, result.Conflict,
				result.Viral.GhostRisk, norm.Metadata.DurationDays)
			result.Badges = e.badges.Evaluate(participants, msgs, result.Engagement, result.Timing, result.Sessions)
		})
		return nil
	})
	g.Go(func() error {
		e.stage("textmining", func() {
			result.TextPatterns = e.extractor.Extract(participants, msgs)
			result.BestTimes = textmining.BestTimes(participants, result.Engagement)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Ranks = e.rank(participants, result.Timing, result.Engagement, norm.Metadata.DurationDays)

	result.Run = Run{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Duration:    time.Since(started),
	}
	e.observe(result, len(msgs))

	e.logger.Info("analysis complete",
		zap.String("run_id", result.Run.ID),
		zap.Duration("duration", result.Run.Duration),
		zap.Int("conflict_events", len(result.Conflict.Events)),
		zap.Int("badges", len(result.Badges)))

	return result, nil
}

// RelationalConflictIndex combines externally supplied pattern
// confidences with the behavioral context of a completed analysis. The
// asymmetry input is the primary dyad's median reply deltas; the ghost
// context is the dyad member with the higher sufficient ghost risk, or
// absent when neither member has enough trend history.
func (e *Engine) RelationalConflictIndex(res *Result, pc PatternConfidence) *RelationalConflictIndex {
	var medianA, medianB float64
	var ghost *scoring.GhostRisk

	a, b := patterns.PrimaryDyad(res.Participants, res.Engagement)
	if a != "" && b != "" {
		if ta := res.Timing.PerPerson[a]; ta != nil {
			medianA = ta.Median
		}
		if tb := res.Timing.PerPerson[b]; tb != nil {
			medianB = tb.Median
		}
		for _, p := range []string{a, b} {
			g := res.Viral.GhostRisk[p]
			if g == nil || !g.Sufficient {
				continue
			}
			if ghost == nil || g.Score > ghost.Score {
				ghost = g
			}
		}
	}

	return scoring.ComputeRelationalConflictIndex(pc, medianA, medianB, ghost)
}

// rank builds the percentile rankings: one median reply entry per
// participant with enough samples, plus one combined daily volume entry.
func (e *Engine) rank(participants []string, tim *timing.Result, eng *engagement.Result, durationDays int) []scoring.RankResult {
	ranks := make([]scoring.RankResult, 0, len(participants)+1)
	for _, p := range participants {
		ts := tim.PerPerson[p]
		if ts == nil || !ts.Sufficient {
			continue
		}
		ranks = append(ranks, scoring.RankResult{
			Metric:     "median_response:" + p,
			Kind:       e.responseRank.Kind(),
			Value:      ts.Median,
			Percentile: e.responseRank.Percentile(ts.Median),
		})
	}
	if durationDays > 0 && eng.TotalMessages > 0 {
		perDay := float64(eng.TotalMessages) / float64(durationDays)
		ranks = append(ranks, scoring.RankResult{
			Metric:     "daily_volume",
			Kind:       e.volumeRank.Kind(),
			Value:      perDay,
			Percentile: e.volumeRank.Percentile(perDay),
		})
	}
	return ranks
}

func (e *Engine) stage(name string, fn func()) {
	start := time.Now()
	fn()
	e.collector.ObserveStage(name, time.Since(start))
}

func (e *Engine) observe(result *Result, messages int) {
	e.collector.ObserveRun(result.Run.Duration, messages)
	for _, ev := range result.Conflict.Events {
		e.collector.ObserveEvents(string(ev.Type), 1)
	}
	e.collector.ObserveEvents("pursuit_cycle", len(result.Pursuit.Cycles))
	e.collector.ObserveBadges(len(result.Badges))
}
