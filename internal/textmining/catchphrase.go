package textmining

import (
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/chatsight/analysis-engine/config"
	"github.com/chatsight/analysis-engine/conversation"
)

// stopwords excluded from n-gram building. Fixed list; no locale
// switching.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"i": {}, "im": {}, "you": {}, "u": {}, "he": {}, "she": {}, "it": {},
	"we": {}, "they": {}, "me": {}, "my": {}, "your": {}, "his": {},
	"her": {}, "our": {}, "their": {}, "this": {}, "that": {}, "these": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"with": {}, "from": {}, "by": {}, "as": {}, "so": {}, "if": {},
	"do": {}, "did": {}, "does": {}, "have": {}, "has": {}, "had": {},
	"not": {}, "no": {}, "yes": {}, "ok": {}, "okay": {}, "just": {},
	"will": {}, "would": {}, "can": {}, "could": {}, "its": {}, "am": {},
}

// Catchphrase is a phrase one person owns: frequent for them and rare
// for everyone else. No recency weighting is applied; old and new
// repetitions count identically.
type Catchphrase struct {
	Phrase     string  `json:"phrase"`
	Count      int     `json:"count"`
	Uniqueness float64 `json:"uniqueness"`
	Score      float64 `json:"score"`
}

// SharedPhrase is vocabulary the conversation owns collectively, with
// no single heavy user dominating it.
type SharedPhrase struct {
	Phrase       string         `json:"phrase"`
	Count        int            `json:"count"`
	Contributors map[string]int `json:"contributors"`
}

// Result holds the text-pattern mining output.
type Result struct {
	Catchphrases map[string][]Catchphrase `json:"catchphrases"`
	Shared       []SharedPhrase           `json:"shared"`
}

// Extractor builds bigram and trigram frequency tables per person and
// derives personal and shared phrases.
type Extractor struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExtractor creates a new catchphrase extractor.
func NewExtractor(cfg *config.Config, logger *zap.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract mines catchphrases and shared phrases from the text messages.
func (e *Extractor) Extract(participants []string, msgs []conversation.UnifiedMessage) *Result {
	result := &Result{
		Catchphrases: make(map[string][]Catchphrase, len(participants)),
		Shared:       make([]SharedPhrase, 0),
	}

	global := make(map[string]int)
	byPerson := make(map[string]map[string]int, len(participants))
	for _, p := range participants {
		byPerson[p] = make(map[string]int)
		result.Catchphrases[p] = make([]Catchphrase, 0)
	}

	for i := range msgs {
		m := &msgs[i]
		if !m.HasText() {
			continue
		}
		personal, ok := byPerson[m.Sender]
		if !ok {
			continue
		}
		for _, phrase := range ngrams(tokenize(m.Content)) {
			personal[phrase]++
			global[phrase]++
		}
	}

	for _, p := range participants {
		result.Catchphrases[p] = e.personalPhrases(byPerson[p], global)
	}
	result.Shared = e.sharedPhrases(participants, byPerson, global)

	e.logger.Debug("catchphrase extraction complete",
		zap.Int("global_phrases", len(global)),
		zap.Int("shared", len(result.Shared)))

	return result
}

func (e *Extractor) personalPhrases(personal, global map[string]int) []Catchphrase {
	cfg := e.cfg.Catchphrase
	out := make([]Catchphrase, 0)
	for phrase, count := range personal {
		if count < cfg.MinCount {
			continue
		}
		uniqueness := float64(count) / float64(global[phrase])
		if uniqueness < cfg.MinUniqueness {
			continue
		}
		out = append(out, Catchphrase{
			Phrase:     phrase,
			Count:      count,
			Uniqueness: uniqueness,
			Score:      float64(count) * uniqueness,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > cfg.MaxPerPerson {
		out = out[:cfg.MaxPerPerson]
	}
	return out
}

func (e *Extractor) sharedPhrases(participants []string, byPerson map[string]map[string]int, global map[string]int) []SharedPhrase {
	cfg := e.cfg.Catchphrase
	out := make([]SharedPhrase, 0)
	for phrase, total := range global {
		if total < cfg.SharedMinGlobal {
			continue
		}
		contributors := make(map[string]int)
		qualified := 0
		dominated := false
		for _, p := range participants {
			n := byPerson[p][phrase]
			if n == 0 {
				continue
			}
			contributors[p] = n
			if n >= cfg.SharedMinEach {
				qualified++
			}
			if float64(n)/float64(total) >= cfg.SharedDominanceCap {
				dominated = true
			}
		}
		if qualified < 2 || dominated {
			continue
		}
		out = append(out, SharedPhrase{Phrase: phrase, Count: total, Contributors: contributors})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	return out
}

// tokenize lowercases, strips emoji and punctuation, and drops
// stopwords and single-character leftovers.
func tokenize(content string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return ' '
		}
	}, content)

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ngrams emits the bigrams and trigrams of a token sequence.
func ngrams(tokens []string) []string {
	var out []string
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
		if i+2 < len(tokens) {
			out = append(out, tokens[i]+" "+tokens[i+1]+" "+tokens[i+2])
		}
	}
	return out
}
