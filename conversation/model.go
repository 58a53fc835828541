package conversation

import (
	"strings"
	"time"
)

// MessageType classifies a normalized message.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeMedia  MessageType = "media"
	MessageTypeCall   MessageType = "call"
	MessageTypeSystem MessageType = "system"
	MessageTypeUnsent MessageType = "unsent"
)

// Reaction represents a single emoji reaction attached to a message.
type Reaction struct {
	Emoji string `json:"emoji"`
	Actor string `json:"actor"`
}

// UnifiedMessage is the platform-agnostic message produced by the
// normalizer. Timestamps are epoch milliseconds; Index preserves the
// original export order and breaks timestamp ties.
type UnifiedMessage struct {
	Index     int         `json:"index"`
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
	Type      MessageType `json:"type"`
	Reactions []Reaction  `json:"reactions,omitempty"`
	HasMedia  bool        `json:"has_media"`
	HasLink   bool        `json:"has_link"`
	IsUnsent  bool        `json:"is_unsent"`
}

// Time returns the message timestamp as a local time.Time.
func (m *UnifiedMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// WordCount returns the number of whitespace-separated words in the
// message content.
func (m *UnifiedMessage) WordCount() int {
	return len(strings.Fields(m.Content))
}

// IsAnalyzable reports whether the message participates in volume and
// behavioral analysis. Unknown message types are skipped rather than
// failing the run.
func (m *UnifiedMessage) IsAnalyzable() bool {
	switch m.Type {
	case MessageTypeText, MessageTypeMedia, MessageTypeCall:
		return !m.IsUnsent
	default:
		return false
	}
}

// HasText reports whether the message carries analyzable text content.
func (m *UnifiedMessage) HasText() bool {
	return m.Type == MessageTypeText && !m.IsUnsent && strings.TrimSpace(m.Content) != ""
}

// DateRange bounds a conversation in epoch milliseconds.
type DateRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Metadata summarizes a parsed conversation.
type Metadata struct {
	TotalMessages int       `json:"total_messages"`
	DateRange     DateRange `json:"date_range"`
	IsGroup       bool      `json:"is_group"`
	DurationDays  int       `json:"duration_days"`
}

// ParsedConversation is the read-only input contract from the message
// normalizer: messages sorted ascending by (timestamp, index) and
// deduplicated, participants ordered and unique.
type ParsedConversation struct {
	Platform     string           `json:"platform"`
	Participants []string         `json:"participants"`
	Messages     []UnifiedMessage `json:"messages"`
	Metadata     Metadata         `json:"metadata"`
}

// Session is a maximal contiguous run of messages where no consecutive
// gap exceeds the session gap threshold. StartIndex and EndIndex are
// positions in the normalized message slice, inclusive.
type Session struct {
	StartIndex   int    `json:"start_index"`
	EndIndex     int    `json:"end_index"`
	Start        int64  `json:"start"`
	End          int64  `json:"end"`
	MessageCount int    `json:"message_count"`
	Initiator    string `json:"initiator"`
}

// DurationMillis returns the session span in milliseconds.
func (s *Session) DurationMillis() int64 {
	return s.End - s.Start
}

// ResponseEvent records a sender change: Delta is the wait between the
// reply and the most recent prior message from the other sender. During
// multi-message bursts this measures from the last message of the run,
// not the first, which under-counts true wait time. Documented behavior;
// changing it recalibrates every downstream composite score.
type ResponseEvent struct {
	PriorSender string `json:"prior_sender"`
	ReplySender string `json:"reply_sender"`
	Delta       int64  `json:"delta"`
	Timestamp   int64  `json:"timestamp"`
	Index       int    `json:"index"`
}

// BuildResponseEvents derives response events from a sorted message
// slice. Only analyzable messages participate.
func BuildResponseEvents(msgs []UnifiedMessage) []ResponseEvent {
	events := make([]ResponseEvent, 0, len(msgs)/2)
	prev := -1
	for i := range msgs {
		if !msgs[i].IsAnalyzable() {
			continue
		}
		if prev >= 0 && msgs[i].Sender != msgs[prev].Sender {
			events = append(events, ResponseEvent{
				PriorSender: msgs[prev].Sender,
				ReplySender: msgs[i].Sender,
				Delta:       msgs[i].Timestamp - msgs[prev].Timestamp,
				Timestamp:   msgs[i].Timestamp,
				Index:       i,
			})
		}
		prev = i
	}
	return events
}
