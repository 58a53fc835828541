package conversation

import "sort"

// Normalize returns a copy of the conversation with messages re-sorted
// by (timestamp, index) and metadata totals recomputed. The normalizer
// guarantees sorted input, but the pipeline re-sorts defensively rather
// than assume. The input is never mutated.
func Normalize(conv *ParsedConversation) *ParsedConversation {
	out := &ParsedConversation{
		Platform:     conv.Platform,
		Participants: append([]string(nil), conv.Participants...),
		Messages:     append([]UnifiedMessage(nil), conv.Messages...),
		Metadata:     conv.Metadata,
	}

	sort.SliceStable(out.Messages, func(i, j int) bool {
		if out.Messages[i].Timestamp != out.Messages[j].Timestamp {
			return out.Messages[i].Timestamp < out.Messages[j].Timestamp
		}
		return out.Messages[i].Index < out.Messages[j].Index
	})

	out.Metadata.TotalMessages = len(out.Messages)
	if len(out.Messages) > 0 {
		first := out.Messages[0].Timestamp
		last := out.Messages[len(out.Messages)-1].Timestamp
		out.Metadata.DateRange = DateRange{Start: first, End: last}
		out.Metadata.DurationDays = int((last-first)/millisPerDay) + 1
	}
	out.Metadata.IsGroup = len(out.Participants) > 2

	return out
}

const millisPerDay = 24 * 60 * 60 * 1000
