package coordinator

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Scorer rates the relevance of a capability to message content on a 0-1
// scale. The supervisor and the node handoff heuristics are written against
// this interface only, so an LLM-backed or ML-backed scorer can be
// substituted without touching the coordinator.
type Scorer interface {
	Score(ctx context.Context, content, capability string) float64
}

// Per-keyword contribution and cap for the default heuristic. Two keyword
// hits clear 0.5, which is what lets a clearly on-topic message beat the
// supervisor's fallback confidence.
const (
	keywordWeight = 0.4
	keywordCap    = 1.0
)

// KeywordScorer is the default capability scorer: a keyword-weighted
// heuristic with a keyword set per known capability class. Each matched
// keyword contributes a fixed partial score, capped at 1.
type KeywordScorer struct {
	categories map[string][]string
}

// NewKeywordScorer creates a scorer with the built-in keyword sets.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		categories: map[string][]string{
			"ethical": {"ethical", "ethics", "moral", "consent", "fair", "fairness",
				"bias", "privacy", "responsible", "harm"},
			"security": {"security", "vulnerability", "exploit", "attack", "breach",
				"malware", "encrypt", "phishing", "firewall", "intrusion"},
			"creative": {"creative", "story", "write", "poem", "design", "brainstorm",
				"imagine", "compose", "artwork", "narrative"},
			"technical": {"technical", "bug", "error", "crash", "code", "deploy",
				"server", "debug", "install", "configure", "api"},
			"maintenance": {"maintenance", "backup", "upgrade", "patch", "cleanup",
				"monitor", "restart", "disk", "schedule"},
		},
	}
}

// Score counts keyword hits for the capability's class in the content. A
// capability whose name names no known class falls back to its own name
// tokens as the keyword set.
func (s *KeywordScorer) Score(_ context.Context, content, capability string) float64 {
	text := strings.ToLower(content)
	keywords := s.keywordsFor(capability)

	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	score := float64(hits) * keywordWeight
	if score > keywordCap {
		score = keywordCap
	}
	return score
}

func (s *KeywordScorer) keywordsFor(capability string) []string {
	name := strings.ToLower(capability)
	for category, keywords := range s.categories {
		if strings.Contains(name, category) {
			return keywords
		}
	}
	// Unknown class: the capability's own name tokens are the best signal
	// available.
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '/'
	})
}

// CompletionFunc asks an external model to complete a prompt. It is the only
// contract ModelScorer needs, so any LLM client can back it.
type CompletionFunc func(ctx context.Context, prompt string) (string, error)

// ModelScorer rates relevance by asking an external model for a numeric
// score. Any failure or unparseable reply falls back to the keyword
// heuristic so supervision keeps working when the model is unavailable.
type ModelScorer struct {
	complete CompletionFunc
	fallback Scorer
	logger   *zap.Logger
}

// NewModelScorer creates a model-backed scorer with the keyword heuristic as
// fallback.
func NewModelScorer(complete CompletionFunc, logger *zap.Logger) *ModelScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelScorer{
		complete: complete,
		fallback: NewKeywordScorer(),
		logger:   logger.With(zap.String("component", "model_scorer")),
	}
}

// Score asks the model to rate the capability's relevance from 0 to 1.
func (s *ModelScorer) Score(ctx context.Context, content, capability string) float64 {
	prompt := "Rate from 0.0 to 1.0 how relevant the capability \"" + capability +
		"\" is for handling this message. Reply with only the number.\n\nMessage: " + content
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("model scoring failed, using keyword fallback", zap.Error(err))
		return s.fallback.Score(ctx, content, capability)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil || value < 0 || value > 1 {
		s.logger.Warn("unparseable model score, using keyword fallback", zap.String("reply", reply))
		return s.fallback.Score(ctx, content, capability)
	}
	return value
}
