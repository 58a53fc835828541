package textmining

import (
	"fmt"

	"github.com/chatsight/analysis-engine/internal/engagement"
)

// BestTime is the (weekday, hour) cell where a person is most active,
// with a two-hour display window centered on the peak hour. The window
// wraps across midnight.
type BestTime struct {
	Weekday     int    `json:"weekday"`
	Hour        int    `json:"hour"`
	Count       int    `json:"count"`
	WindowStart int    `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
	Window      string `json:"window"`
	Sufficient  bool   `json:"sufficient"`
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayName returns the display name for the peak weekday.
func (b *BestTime) WeekdayName() string {
	if b.Weekday < 0 || b.Weekday > 6 {
		return ""
	}
	return weekdayNames[b.Weekday]
}

// BestTimes computes the best time to text each participant from their
// personal heatmap. Ties resolve to the first-encountered cell in
// weekday-then-hour iteration order.
func BestTimes(participants []string, eng *engagement.Result) map[string]BestTime {
	out := make(map[string]BestTime, len(participants))
	for _, p := range participants {
		h := eng.Heatmaps[p]
		if h == nil || h.Total == 0 {
			out[p] = BestTime{}
			continue
		}
		wd, hr, count := h.Peak()
		start := (hr + 23) % 24
		end := (hr + 1) % 24
		out[p] = BestTime{
			Weekday:     wd,
			Hour:        hr,
			Count:       count,
			WindowStart: start,
			WindowEnd:   end,
			Window:      fmt.Sprintf("%02d:00-%02d:00", start, end),
			Sufficient:  true,
		}
	}
	return out
}
