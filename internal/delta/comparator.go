package delta

import (
	"fmt"
	"math"
)

// Direction tags how a metric moved between two analyses of the same
// conversation. Neutral metrics stay neutral no matter which way they
// moved: message length has no inherently better direction.
type Direction string

const (
	DirectionImproved  Direction = "improved"
	DirectionDeclined  Direction = "declined"
	DirectionNeutral   Direction = "neutral"
	DirectionUnchanged Direction = "unchanged"
)

// Snapshot is the comparable summary of one full analysis run. The
// fingerprint identifies the conversation, not the run; two snapshots
// with different fingerprints are different conversations and cannot
// be compared.
type Snapshot struct {
	Fingerprint       string  `json:"fingerprint"`
	TotalMessages     int     `json:"total_messages"`
	TotalWords        int     `json:"total_words"`
	SessionCount      int     `json:"session_count"`
	AvgResponseMillis float64 `json:"avg_response_millis"`
	AvgMessageLength  float64 `json:"avg_message_length"`
	DurationDays      int     `json:"duration_days"`
}

// MetricDelta is one compared metric.
type MetricDelta struct {
	Metric        string    `json:"metric"`
	Before        float64   `json:"before"`
	After         float64   `json:"after"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	Direction     Direction `json:"direction"`
}

// Comparison is the longitudinal diff between two analyses.
type Comparison struct {
	Fingerprint string        `json:"fingerprint"`
	Deltas      []MetricDelta `json:"deltas"`
	VolumeTrend string        `json:"volume_trend"`
}

// higherIsBetter maps each compared metric to its improvement
// direction; metrics absent from the map are neutral.
var higherIsBetter = map[string]bool{
	"total_messages":      true,
	"total_words":         true,
	"session_count":       true,
	"avg_response_millis": false,
}

// Compare diffs two snapshots of the same conversation, oldest first.
func Compare(before, after Snapshot) (*Comparison, error) {
	if before.Fingerprint != after.Fingerprint {
		return nil, fmt.Errorf("fingerprint mismatch: %q vs %q", before.Fingerprint, after.Fingerprint)
	}

	cmp := &Comparison{
		Fingerprint: before.Fingerprint,
		Deltas: []MetricDelta{
			metricDelta("total_messages", float64(before.TotalMessages), float64(after.TotalMessages)),
			metricDelta("total_words", float64(before.TotalWords), float64(after.TotalWords)),
			metricDelta("session_count", float64(before.SessionCount), float64(after.SessionCount)),
			metricDelta("avg_response_millis", before.AvgResponseMillis, after.AvgResponseMillis),
			metricDelta("avg_message_length", before.AvgMessageLength, after.AvgMessageLength),
		},
		VolumeTrend: volumeTrend(before, after),
	}
	return cmp, nil
}

func metricDelta(metric string, before, after float64) MetricDelta {
	d := MetricDelta{
		Metric: metric,
		Before: before,
		After:  after,
		Change: after - before,
	}
	if before != 0 {
		d.PercentChange = (after - before) / math.Abs(before) * 100
	}

	better, directional := higherIsBetter[metric]
	switch {
	case !directional:
		d.Direction = DirectionNeutral
	case d.Change == 0:
		d.Direction = DirectionUnchanged
	case (d.Change > 0) == better:
		d.Direction = DirectionImproved
	default:
		d.Direction = DirectionDeclined
	}
	return d
}

// volumeTrend compares messages-per-day rates with a 10% dead band.
func volumeTrend(before, after Snapshot) string {
	rate := func(s Snapshot) float64 {
		if s.DurationDays <= 0 {
			return 0
		}
		return float64(s.TotalMessages) / float64(s.DurationDays)
	}
	rb, ra := rate(before), rate(after)
	switch {
	case rb == 0 && ra == 0:
		return "stable"
	case ra > rb*1.1:
		return "growing"
	case ra < rb*0.9:
		return "declining"
	default:
		return "stable"
	}
}
