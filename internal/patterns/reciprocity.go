package patterns

import (
	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/sessions"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Reciprocity sub-score weights. Documented and deliberately arbitrary;
// reproduce exactly for consistent output.
const (
	weightMessageBalance    = 0.30
	weightInitiationBalance = 0.25
	weightResponseSymmetry  = 0.15
	weightReactionBalance   = 0.30
)

// neutralScore stands in for a sub-score with insufficient data. The
// Measured flag is how callers tell "neutral because balanced" from
// "neutral because unmeasured".
const neutralScore = 50.0

// SubScore is one reciprocity component with its sufficiency flag.
type SubScore struct {
	Score    float64 `json:"score"`
	Measured bool    `json:"measured"`
}

// ReciprocityResult is the weighted balance-of-effort composite for the
// conversation's primary dyad.
type ReciprocityResult struct {
	PersonA           string   `json:"person_a"`
	PersonB           string   `json:"person_b"`
	Score             float64  `json:"score"`
	Sufficient        bool     `json:"sufficient"`
	MessageBalance    SubScore `json:"message_balance"`
	InitiationBalance SubScore `json:"initiation_balance"`
	ResponseSymmetry  SubScore `json:"response_symmetry"`
	ReactionBalance   SubScore `json:"reaction_balance"`
}

// ReciprocityEngine computes the reciprocity index.
type ReciprocityEngine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReciprocityEngine creates a new reciprocity engine.
func NewReciprocityEngine(cfg *config.Config, logger *zap.Logger) *ReciprocityEngine {
	return &ReciprocityEngine{cfg: cfg, logger: logger}
}

// Compute derives the reciprocity index for the two most active
// participants. In group conversations the index is dyadic over that
// pair only.
func (e *ReciprocityEngine) Compute(participants []string, eng *engagement.Result, sess *sessions.Result, tim *timing.Result) *ReciprocityResult {
	result := &ReciprocityResult{
		MessageBalance:    SubScore{Score: neutralScore},
		InitiationBalance: SubScore{Score: neutralScore},
		ResponseSymmetry:  SubScore{Score: neutralScore},
		ReactionBalance:   SubScore{Score: neutralScore},
	}

	a, b := PrimaryDyad(participants, eng)
	if a == "" || b == "" {
		result.Score = neutralScore
		return result
	}
	result.PersonA, result.PersonB = a, b

	ea, eb := eng.PerPerson[a], eng.PerPerson[b]

	if ea.Messages+eb.Messages >= 10 {
		result.MessageBalance = SubScore{
			Score:    balanceScore(float64(ea.Messages), float64(eb.Messages)),
			Measured: true,
		}
	}
	if len(sess.Sessions) >= 5 {
		result.InitiationBalance = SubScore{
			Score:    balanceScore(float64(ea.Initiations), float64(eb.Initiations)),
			Measured: true,
		}
	}
	ta, tb := tim.PerPerson[a], tim.PerPerson[b]
	if ta != nil && tb != nil && ta.RawSamples >= 3 && tb.RawSamples >= 3 {
		// min/max ratio: extreme asymmetry drives this sharply toward 0.
		result.ResponseSymmetry = SubScore{
			Score:    balanceScore(ta.Median, tb.Median),
			Measured: true,
		}
	}
	if ea.ReactionsGiven+eb.ReactionsGiven >= 5 {
		result.ReactionBalance = SubScore{
			Score:    balanceScore(float64(ea.ReactionsGiven), float64(eb.ReactionsGiven)),
			Measured: true,
		}
	}

	result.Score = weightMessageBalance*result.MessageBalance.Score +
		weightInitiationBalance*result.InitiationBalance.Score +
		weightResponseSymmetry*result.ResponseSymmetry.Score +
		weightReactionBalance*result.ReactionBalance.Score
	result.Sufficient = result.MessageBalance.Measured &&
		result.InitiationBalance.Measured &&
		result.ResponseSymmetry.Measured &&
		result.ReactionBalance.Measured

	e.logger.Debug("reciprocity computed",
		zap.Float64("score", result.Score),
		zap.Bool("sufficient", result.Sufficient))

	return result
}

// PrimaryDyad returns the two most active participants by message
// count, ties broken by participant order.
func PrimaryDyad(participants []string, eng *engagement.Result) (string, string) {
	if len(participants) < 2 {
		return "", ""
	}
	first, second := "", ""
	for _, p := range participants {
		pe := eng.PerPerson[p]
		if pe == nil {
			continue
		}
		switch {
		case first == "" || pe.Messages > eng.PerPerson[first].Messages:
			second = first
			first = p
		case second == "" || pe.Messages > eng.PerPerson[second].Messages:
			second = p
		}
	}
	if first == "" || second == "" {
		return "", ""
	}
	// Keep participant-list order for the pair itself.
	for _, p := range participants {
		if p == first || p == second {
			if p == first {
				return first, second
			}
			return second, first
		}
	}
	return first, second
}

// balanceScore maps a pair of magnitudes to 0-100 via min/max.
func balanceScore(a, b float64) float64 {
	if a <= 0 && b <= 0 {
		return neutralScore
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 0
	}
	return 100 * lo / hi
}
