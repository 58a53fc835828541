package patterns

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
)

// PursuitCycle pairs a pursuit burst with the withdrawal that followed
// it. Resolved means the withdrawer's eventual reply landed within the
// session-gap threshold of the message immediately preceding it, i.e.
// inside an active exchange rather than opening a cold one.
type PursuitCycle struct {
	ID               string `json:"id"`
	Pursuer          string `json:"pursuer"`
	Withdrawer       string `json:"withdrawer"`
	Start            int64  `json:"start"`
	BurstSize        int    `json:"burst_size"`
	BurstRange       [2]int `json:"burst_range"`
	WithdrawalMillis int64  `json:"withdrawal_millis"`
	Resolved         bool   `json:"resolved"`
}

// PursuitResult holds detected cycles plus a per-person pursuit
// intensity on a 0-100 scale for downstream composite scoring.
type PursuitResult struct {
	Cycles    []PursuitCycle     `json:"cycles"`
	Intensity map[string]float64 `json:"intensity"`
}

// PursuitDetector finds pursuit-withdrawal cycles: a one-sided message
// burst followed by a long silence.
type PursuitDetector struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPursuitDetector creates a new pursuit-withdrawal detector.
func NewPursuitDetector(cfg *config.Config, logger *zap.Logger) *PursuitDetector {
	return &PursuitDetector{cfg: cfg, logger: logger}
}

// Detect scans sender runs for pursuit bursts and pairs them with
// withdrawals.
func (d *PursuitDetector) Detect(participants []string, msgs []conversation.UnifiedMessage) *PursuitResult {
	result := &PursuitResult{
		Cycles:    make([]PursuitCycle, 0),
		Intensity: make(map[string]float64, len(participants)),
	}
	for _, p := range participants {
		result.Intensity[p] = 0
	}

	idx := analyzableIndices(msgs)
	for a := 0; a < len(idx); {
		b := a
		for b+1 < len(idx) && msgs[idx[b+1]].Sender == msgs[idx[a]].Sender {
			b++
		}
		if cycle := d.evaluateRun(msgs, idx, a, b); cycle != nil {
			cycle.ID = fmt.Sprintf("cycle-%04d", len(result.Cycles)+1)
			result.Cycles = append(result.Cycles, *cycle)
		}
		a = b + 1
	}

	for _, c := range result.Cycles {
		if _, ok := result.Intensity[c.Pursuer]; ok {
			result.Intensity[c.Pursuer] += 25
		}
	}
	for p, v := range result.Intensity {
		if v > 100 {
			result.Intensity[p] = 100
		}
	}

	d.logger.Debug("pursuit-withdrawal detection complete", zap.Int("cycles", len(result.Cycles)))
	return result
}

// evaluateRun checks one same-sender run [a, b] (positions into idx)
// for a pursuit burst and a following withdrawal. The withdrawal gap
// may fall inside the run itself: a pursuer who resumes texting after
// an unanswered silence is still being withdrawn from.
func (d *PursuitDetector) evaluateRun(msgs []conversation.UnifiedMessage, idx []int, a, b int) *PursuitCycle {
	bs := d.cfg.Pursuit.BurstSize
	if b-a+1 < bs {
		return nil
	}

	// Walk forward looking for the first long silence after a window of
	// BurstSize consecutive messages inside the pursuit window.
	qualified := false
	gapAt := -1
	for k := a + bs - 1; k <= b && k+1 < len(idx); k++ {
		if msgs[idx[k]].Timestamp-msgs[idx[k-bs+1]].Timestamp <= d.cfg.Pursuit.WindowMillis {
			qualified = true
		}
		if qualified && msgs[idx[k+1]].Timestamp-msgs[idx[k]].Timestamp > d.cfg.Pursuit.WithdrawalSilenceMillis {
			gapAt = k
			break
		}
	}
	if gapAt < 0 {
		return nil
	}

	lastIdx := idx[gapAt]
	pursuer := msgs[lastIdx].Sender
	cycle := &PursuitCycle{
		Pursuer:          pursuer,
		Start:            msgs[idx[a]].Timestamp,
		BurstSize:        gapAt - a + 1,
		BurstRange:       [2]int{idx[a], lastIdx},
		WithdrawalMillis: msgs[idx[gapAt+1]].Timestamp - msgs[lastIdx].Timestamp,
	}

	// Find the withdrawer's eventual reply.
	for k := gapAt + 1; k < len(idx); k++ {
		if msgs[idx[k]].Sender == pursuer {
			continue
		}
		cycle.Withdrawer = msgs[idx[k]].Sender
		cycle.WithdrawalMillis = msgs[idx[k]].Timestamp - msgs[lastIdx].Timestamp
		prevGap := msgs[idx[k]].Timestamp - msgs[idx[k-1]].Timestamp
		cycle.Resolved = prevGap <= d.cfg.Session.GapMillis
		break
	}

	return cycle
}

func analyzableIndices(msgs []conversation.UnifiedMessage) []int {
	out := make([]int, 0, len(msgs))
	for i := range msgs {
		if msgs[i].IsAnalyzable() {
			out = append(out, i)
		}
	}
	return out
}
