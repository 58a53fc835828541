package engagement

import "strings"

// Heuristic lexicon sentiment. Not a calibrated model; only the monthly
// direction of the series is meaningful.
var positiveWords = map[string]struct{}{
	"love": {}, "loved": {}, "great": {}, "awesome": {}, "amazing": {},
	"happy": {}, "glad": {}, "good": {}, "nice": {}, "best": {},
	"fun": {}, "funny": {}, "sweet": {}, "cute": {}, "beautiful": {},
	"thanks": {}, "thank": {}, "miss": {}, "excited": {}, "perfect": {},
	"haha": {}, "lol": {}, "lmao": {}, "yay": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"hate": {}, "hated": {}, "angry": {}, "mad": {}, "annoyed": {},
	"sad": {}, "upset": {}, "terrible": {}, "awful": {}, "worst": {},
	"sorry": {}, "ugh": {}, "tired": {}, "sick": {}, "hurt": {},
	"stop": {}, "never": {}, "whatever": {}, "fine": {}, "wrong": {},
	"stupid": {}, "annoying": {}, "bad": {}, "cry": {}, "alone": {},
}

var positiveEmoji = []string{"❤", "😍", "😂", "🥰", "😊", "💕", "😘", "🤣", "👍", "🎉"}
var negativeEmoji = []string{"😢", "😭", "😡", "💔", "😠", "😞", "👎", "😤", "🙄", "😒"}

// sentimentScore returns a valence in [-1, 1] for one message.
func sentimentScore(content string) float64 {
	fields := strings.Fields(strings.ToLower(content))
	score := 0.0
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"")
		if _, ok := positiveWords[f]; ok {
			score++
		}
		if _, ok := negativeWords[f]; ok {
			score--
		}
	}
	for _, e := range positiveEmoji {
		score += float64(strings.Count(content, e))
	}
	for _, e := range negativeEmoji {
		score -= float64(strings.Count(content, e))
	}
	if len(fields) == 0 {
		return 0
	}
	score /= float64(len(fields))
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
