package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/internal/engagement"
	"github.com/chatsight/analysis-engine/internal/patterns"
	"github.com/chatsight/analysis-engine/internal/timing"
)

// Polarity tags how to read a meter: concern meters worsen as they
// rise, health meters improve. The tag is explicit per meter and must
// never be inferred from position in the list.
type Polarity string

const (
	PolarityConcern Polarity = "concern"
	PolarityHealth  Polarity = "health"
)

// Power imbalance component weights.
const (
	powerWeightInitiation = 0.35
	powerWeightDoubleText = 0.18
	powerWeightResponse   = 0.27
	powerWeightPursuit    = 0.20
)

// Codependency component weights.
const (
	codepWeightContact   = 0.40
	codepWeightSpeed     = 0.35
	codepWeightLateNight = 0.25
)

// Trust component weights.
const (
	trustWeightReciprocity = 0.50
	trustWeightCalm        = 0.30
	trustWeightRepair      = 0.20
)

// ThreatMeter is one named composite meter with its component
// breakdown recorded for audit.
type ThreatMeter struct {
	Name       string             `json:"name"`
	Score      float64            `json:"score"`
	Polarity   Polarity           `json:"polarity"`
	Sufficient bool               `json:"sufficient"`
	Components map[string]float64 `json:"components"`
}

// ThreatEngine derives the meter set from previously computed
// sub-metrics; it reads no raw messages itself.
type ThreatEngine struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewThreatEngine creates a new threat meter engine.
func NewThreatEngine(cfg *config.Config, logger *zap.Logger) *ThreatEngine {
	return &ThreatEngine{cfg: cfg, logger: logger}
}

// Compute builds the meters for the primary dyad. Order is fixed:
// codependency, power imbalance, ghost threat, trust.
func (e *ThreatEngine) Compute(
	participants []string,
	eng *engagement.Result,
	tim *timing.Result,
	pursuit *patterns.PursuitResult,
	reciprocity *patterns.ReciprocityResult,
	conflict *patterns.ConflictResult,
	ghost map[string]*GhostRisk,
	durationDays int,
) []ThreatMeter {
	a, b := patterns.PrimaryDyad(participants, eng)
	meters := []ThreatMeter{
		e.codependency(a, b, eng, tim, durationDays),
		e.powerImbalance(a, b, eng, tim, pursuit),
		e.ghostThreat(a, b, ghost),
		e.trust(reciprocity, conflict),
	}

	e.logger.Debug("threat meters computed", zap.Int("meters", len(meters)))
	return meters
}

func (e *ThreatEngine) codependency(a, b string, eng *engagement.Result, tim *timing.Result, durationDays int) ThreatMeter {
	m := ThreatMeter{Name: "codependency", Polarity: PolarityConcern, Components: map[string]float64{}}
	if a == "" || b == "" {
		return m
	}
	m.Sufficient = true

	perDay := 0.0
	if durationDays > 0 {
		perDay = float64(eng.TotalMessages) / float64(durationDays)
	}
	contact := clamp(perDay*2.5, 0, 100)

	speed := 0.0
	if ta, tb := tim.PerPerson[a], tim.PerPerson[b]; ta != nil && tb != nil && ta.Sufficient && tb.Sufficient {
		speed = (speedScore(ta.Median) + speedScore(tb.Median)) / 2
	}

	lateShare := 0.0
	if eng.TotalMessages > 0 {
		late := eng.PerPerson[a].LateNightMessages + eng.PerPerson[b].LateNightMessages
		lateShare = clamp(float64(late)/float64(eng.TotalMessages)*400, 0, 100)
	}

	m.Components["daily_contact"] = contact
	m.Components["reply_speed"] = speed
	m.Components["late_night"] = lateShare
	m.Score = clamp(codepWeightContact*contact+codepWeightSpeed*speed+codepWeightLateNight*lateShare, 0, 100)
	return m
}

func (e *ThreatEngine) powerImbalance(a, b string, eng *engagement.Result, tim *timing.Result, pursuit *patterns.PursuitResult) ThreatMeter {
	m := ThreatMeter{Name: "power_imbalance", Polarity: PolarityConcern, Components: map[string]float64{}}
	if a == "" || b == "" {
		return m
	}
	m.Sufficient = true
	ea, eb := eng.PerPerson[a], eng.PerPerson[b]

	initImbalance := 100 - ratioScore(float64(ea.Initiations), float64(eb.Initiations))

	doubleRate := math.Max(doubleTextRate(ea), doubleTextRate(eb))
	doubleNorm := clamp(doubleRate*250, 0, 100)

	rtAsym := 0.0
	if ta, tb := tim.PerPerson[a], tim.PerPerson[b]; ta != nil && tb != nil && ta.Sufficient && tb.Sufficient && tb.Median > 0 {
		ratio := ta.Median / tb.Median
		rtAsym = clamp(math.Abs(math.Log10(math.Max(ratio, 0.01)))*30, 0, 100)
	}

	pursuitIntensity := math.Max(pursuit.Intensity[a], pursuit.Intensity[b])

	m.Components["initiation_imbalance"] = initImbalance
	m.Components["double_text"] = doubleNorm
	m.Components["response_asymmetry"] = rtAsym
	m.Components["pursuit_intensity"] = pursuitIntensity
	m.Score = clamp(
		powerWeightInitiation*initImbalance+
			powerWeightDoubleText*doubleNorm+
			powerWeightResponse*rtAsym+
			powerWeightPursuit*pursuitIntensity,
		0, 100)
	return m
}

// ghostThreat averages the dyad's ghost risks. Insufficient underlying
// trend data propagates as an insufficient meter, never a neutral score.
func (e *ThreatEngine) ghostThreat(a, b string, ghost map[string]*GhostRisk) ThreatMeter {
	m := ThreatMeter{Name: "ghost_threat", Polarity: PolarityConcern, Components: map[string]float64{}}
	if a == "" || b == "" {
		return m
	}
	ga, gb := ghost[a], ghost[b]
	if ga == nil || gb == nil || !ga.Sufficient || !gb.Sufficient {
		return m
	}
	m.Sufficient = true
	m.Components[a] = ga.Score
	m.Components[b] = gb.Score
	m.Score = clamp((ga.Score+gb.Score)/2, 0, 100)
	return m
}

// trust is the inverted-polarity meter: higher is healthier.
func (e *ThreatEngine) trust(reciprocity *patterns.ReciprocityResult, conflict *patterns.ConflictResult) ThreatMeter {
	m := ThreatMeter{Name: "trust", Polarity: PolarityHealth, Components: map[string]float64{}}
	m.Sufficient = reciprocity.Sufficient

	escalations, resolutions := 0, 0
	for _, ev := range conflict.Events {
		switch ev.Type {
		case patterns.ConflictEscalation:
			escalations++
		case patterns.ConflictResolution:
			resolutions++
		}
	}
	calm := clamp(100-float64(escalations)*10, 0, 100)
	repair := clamp(float64(resolutions)*25, 0, 100)
	if escalations == 0 {
		// Nothing to repair; a calm history counts as repaired.
		repair = 100
	}

	m.Components["reciprocity"] = reciprocity.Score
	m.Components["calm"] = calm
	m.Components["repair"] = repair
	m.Score = clamp(trustWeightReciprocity*reciprocity.Score+trustWeightCalm*calm+trustWeightRepair*repair, 0, 100)
	return m
}

func doubleTextRate(pe *engagement.PersonEngagement) float64 {
	if pe.Messages == 0 {
		return 0
	}
	return float64(pe.DoubleTexts) / float64(pe.Messages)
}

// speedScore maps a median reply delta to 0-100, saturating at instant
// replies and decaying past a five minute median.
func speedScore(medianMillis float64) float64 {
	medianMin := medianMillis / 60_000
	return clamp(100*5/(5+medianMin), 0, 100)
}
