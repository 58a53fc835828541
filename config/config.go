package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every tunable constant of the analysis pipeline. All
// thresholds that shape analyzer behavior live here rather than as
// package-level constants so tests can exercise boundary values.
type Config struct {
	Session     SessionConfig     `mapstructure:"session"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Conflict    ConflictConfig    `mapstructure:"conflict"`
	Pursuit     PursuitConfig     `mapstructure:"pursuit"`
	Engagement  EngagementConfig  `mapstructure:"engagement"`
	Catchphrase CatchphraseConfig `mapstructure:"catchphrase"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Badges      BadgesConfig      `mapstructure:"badges"`
	Ranking     RankingConfig     `mapstructure:"ranking"`
}

// SessionConfig holds session segmentation configuration.
type SessionConfig struct {
	// GapMillis is the inactivity gap that closes a session. Fixed for
	// all participants regardless of chronotype; a single long gap always
	// ends a session no matter its cause.
	GapMillis int64 `mapstructure:"gap_millis"`
}

// TimingConfig holds response-time statistics configuration.
type TimingConfig struct {
	OutlierMultiplier float64 `mapstructure:"outlier_multiplier"`
	IQRFloorMillis    float64 `mapstructure:"iqr_floor_millis"`
	MinFilterSamples  int     `mapstructure:"min_filter_samples"`
	TrimFraction      float64 `mapstructure:"trim_fraction"`
}

// ConflictConfig holds conflict detector configuration.
type ConflictConfig struct {
	RollingWindow          int     `mapstructure:"rolling_window"`
	EscalationRatio        float64 `mapstructure:"escalation_ratio"`
	RapidExchangeMillis    int64   `mapstructure:"rapid_exchange_millis"`
	MinAlternations        int     `mapstructure:"min_alternations"`
	ColdSilenceGapMillis   int64   `mapstructure:"cold_silence_gap_millis"`
	LookbackWindowMillis   int64   `mapstructure:"lookback_window_millis"`
	LookbackMinMessages    int     `mapstructure:"lookback_min_messages"`
	ResolutionWindowMillis int64   `mapstructure:"resolution_window_millis"`
	ResolutionMinMessages  int     `mapstructure:"resolution_min_messages"`
	ResolutionMaxWords     int     `mapstructure:"resolution_max_words"`
}

// PursuitConfig holds pursuit-withdrawal detector configuration.
type PursuitConfig struct {
	WindowMillis            int64 `mapstructure:"window_millis"`
	BurstSize               int   `mapstructure:"burst_size"`
	WithdrawalSilenceMillis int64 `mapstructure:"withdrawal_silence_millis"`
}

// EngagementConfig holds engagement and pattern engine configuration.
type EngagementConfig struct {
	BurstMultiplier float64 `mapstructure:"burst_multiplier"`
	BurstWindowDays int     `mapstructure:"burst_window_days"`
}

// CatchphraseConfig holds text-pattern mining configuration.
type CatchphraseConfig struct {
	MinCount           int     `mapstructure:"min_count"`
	MinUniqueness      float64 `mapstructure:"min_uniqueness"`
	SharedMinGlobal    int     `mapstructure:"shared_min_global"`
	SharedMinEach      int     `mapstructure:"shared_min_each"`
	SharedDominanceCap float64 `mapstructure:"shared_dominance_cap"`
	MaxPerPerson       int     `mapstructure:"max_per_person"`
}

// ScoringConfig holds composite scoring configuration.
type ScoringConfig struct {
	GhostRiskMinMonths int `mapstructure:"ghost_risk_min_months"`
}

// BadgesConfig holds the badge cutoffs. All thresholds are absolute
// counts or values, never scaled to conversation length.
type BadgesConfig struct {
	StreakMasterDays       int     `mapstructure:"streak_master_days"`
	DoubleTexterCount      int     `mapstructure:"double_texter_count"`
	NightOwlCount          int     `mapstructure:"night_owl_count"`
	EarlyBirdCount         int     `mapstructure:"early_bird_count"`
	NovelistAvgLength      float64 `mapstructure:"novelist_avg_length"`
	NovelistMinMessages    int     `mapstructure:"novelist_min_messages"`
	SpeedDemonMedianMillis float64 `mapstructure:"speed_demon_median_millis"`
	SpeedDemonMinReplies   int     `mapstructure:"speed_demon_min_replies"`
	StarterShare           float64 `mapstructure:"starter_share"`
	StarterMinSessions     int     `mapstructure:"starter_min_sessions"`
	ReactorCount           int     `mapstructure:"reactor_count"`
	WordsmithWords         int     `mapstructure:"wordsmith_words"`
	MarathonSessionSize    int     `mapstructure:"marathon_session_size"`
	MarathonOwnMessages    int     `mapstructure:"marathon_own_messages"`
}

// RankingConfig selects the percentile ranking strategy and its
// reference distribution parameters.
type RankingConfig struct {
	// Strategy is either "hardcoded-benchmark" or "lognormal-cdf".
	Strategy      string  `mapstructure:"strategy"`
	ResponseMu    float64 `mapstructure:"response_mu"`
	ResponseSigma float64 `mapstructure:"response_sigma"`
	VolumeMu      float64 `mapstructure:"volume_mu"`
	VolumeSigma   float64 `mapstructure:"volume_sigma"`
}

// Load reads configuration from an optional YAML file plus environment
// variables, layered over the built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ANALYSIS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(cfg)

	return cfg
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Session.GapMillis <= 0 {
		return fmt.Errorf("session.gap_millis must be positive, got %d", c.Session.GapMillis)
	}
	if c.Timing.OutlierMultiplier <= 0 {
		return fmt.Errorf("timing.outlier_multiplier must be positive, got %f", c.Timing.OutlierMultiplier)
	}
	if c.Timing.TrimFraction < 0 || c.Timing.TrimFraction >= 0.5 {
		return fmt.Errorf("timing.trim_fraction must be in [0, 0.5), got %f", c.Timing.TrimFraction)
	}
	if c.Conflict.RollingWindow < 2 {
		return fmt.Errorf("conflict.rolling_window must be at least 2, got %d", c.Conflict.RollingWindow)
	}
	if c.Pursuit.BurstSize < 2 {
		return fmt.Errorf("pursuit.burst_size must be at least 2, got %d", c.Pursuit.BurstSize)
	}
	if c.Catchphrase.MinUniqueness < 0 || c.Catchphrase.MinUniqueness > 1 {
		return fmt.Errorf("catchphrase.min_uniqueness must be in [0, 1], got %f", c.Catchphrase.MinUniqueness)
	}
	if c.Catchphrase.SharedDominanceCap <= 0 || c.Catchphrase.SharedDominanceCap > 1 {
		return fmt.Errorf("catchphrase.shared_dominance_cap must be in (0, 1], got %f", c.Catchphrase.SharedDominanceCap)
	}
	if c.Badges.StarterShare <= 0 || c.Badges.StarterShare > 1 {
		return fmt.Errorf("badges.starter_share must be in (0, 1], got %f", c.Badges.StarterShare)
	}
	if c.Badges.MarathonSessionSize < 1 {
		return fmt.Errorf("badges.marathon_session_size must be at least 1, got %d", c.Badges.MarathonSessionSize)
	}
	switch c.Ranking.Strategy {
	case StrategyBenchmark, StrategyLogNormal:
	default:
		return fmt.Errorf("ranking.strategy must be %q or %q, got %q", StrategyBenchmark, StrategyLogNormal, c.Ranking.Strategy)
	}
	return nil
}

// Percentile ranking strategy identifiers.
const (
	StrategyBenchmark = "hardcoded-benchmark"
	StrategyLogNormal = "lognormal-cdf"
)

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Session defaults: 6 hour inactivity gap.
	v.SetDefault("session.gap_millis", 6*60*60*1000)

	// Timing defaults: Tukey-style fence with a widened multiplier and a
	// one-minute IQR floor so tightly clustered replies are not over-trimmed.
	v.SetDefault("timing.outlier_multiplier", 3.0)
	v.SetDefault("timing.iqr_floor_millis", 60_000)
	v.SetDefault("timing.min_filter_samples", 5)
	v.SetDefault("timing.trim_fraction", 0.10)

	// Conflict detector defaults.
	v.SetDefault("conflict.rolling_window", 15)
	v.SetDefault("conflict.escalation_ratio", 1.6)
	v.SetDefault("conflict.rapid_exchange_millis", 5*60*1000)
	v.SetDefault("conflict.min_alternations", 3)
	v.SetDefault("conflict.cold_silence_gap_millis", 12*60*60*1000)
	v.SetDefault("conflict.lookback_window_millis", 6*60*60*1000)
	v.SetDefault("conflict.lookback_min_messages", 5)
	v.SetDefault("conflict.resolution_window_millis", 4*60*60*1000)
	v.SetDefault("conflict.resolution_min_messages", 4)
	v.SetDefault("conflict.resolution_max_words", 8)

	// Pursuit-withdrawal defaults.
	v.SetDefault("pursuit.window_millis", 2*60*60*1000)
	v.SetDefault("pursuit.burst_size", 4)
	v.SetDefault("pursuit.withdrawal_silence_millis", 6*60*60*1000)

	// Engagement defaults.
	v.SetDefault("engagement.burst_multiplier", 2.0)
	v.SetDefault("engagement.burst_window_days", 7)

	// Catchphrase defaults.
	v.SetDefault("catchphrase.min_count", 3)
	v.SetDefault("catchphrase.min_uniqueness", 0.5)
	v.SetDefault("catchphrase.shared_min_global", 5)
	v.SetDefault("catchphrase.shared_min_each", 2)
	v.SetDefault("catchphrase.shared_dominance_cap", 0.7)
	v.SetDefault("catchphrase.max_per_person", 8)

	// Scoring defaults.
	v.SetDefault("scoring.ghost_risk_min_months", 3)

	// Badge cutoffs.
	v.SetDefault("badges.streak_master_days", 14)
	v.SetDefault("badges.double_texter_count", 25)
	v.SetDefault("badges.night_owl_count", 50)
	v.SetDefault("badges.early_bird_count", 50)
	v.SetDefault("badges.novelist_avg_length", 80.0)
	v.SetDefault("badges.novelist_min_messages", 100)
	v.SetDefault("badges.speed_demon_median_millis", 60_000)
	v.SetDefault("badges.speed_demon_min_replies", 20)
	v.SetDefault("badges.starter_share", 0.60)
	v.SetDefault("badges.starter_min_sessions", 10)
	v.SetDefault("badges.reactor_count", 100)
	v.SetDefault("badges.wordsmith_words", 10_000)
	v.SetDefault("badges.marathon_session_size", 100)
	v.SetDefault("badges.marathon_own_messages", 50)

	// Ranking defaults: log-normal reference centered on a 5 minute
	// median reply and ~12 messages/day.
	v.SetDefault("ranking.strategy", StrategyLogNormal)
	v.SetDefault("ranking.response_mu", 12.6) // log(300000 ms)
	v.SetDefault("ranking.response_sigma", 1.8)
	v.SetDefault("ranking.volume_mu", 2.5) // log(12.2 msgs/day)
	v.SetDefault("ranking.volume_sigma", 1.1)
}
