package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
	"podcast/internal/port"
)

const (
	DefaultTopLessons  = 15
	DefaultMaxKeywords = 30
)

// Extractor turns a transcript into lessons and keywords.
type Extractor struct {
	ranker      port.PhraseRanker
	topLessons  int
	maxKeywords int
	logger      *slog.Logger
}

// NewExtractor creates an Extractor. Non-positive limits use the defaults.
func NewExtractor(ranker port.PhraseRanker, topLessons, maxKeywords int, logger *slog.Logger) *Extractor {
	if topLessons <= 0 {
		topLessons = DefaultTopLessons
	}
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	return &Extractor{
		ranker:      ranker,
		topLessons:  topLessons,
		maxKeywords: maxKeywords,
		logger:      logging.OrDefault(logger),
	}
}

// Extract returns the top-ranked phrases as lessons, highest rank first, and
// the lemmas of their content words as keywords. Phrases of equal rank keep
// the ranker's order.
func (e *Extractor) Extract(ctx context.Context, transcript string) (domain.Extraction, error) {
	result := domain.Extraction{Lessons: []string{}, Keywords: []string{}}
	if strings.TrimSpace(transcript) == "" {
		return result, nil
	}

	phrases, err := e.ranker.Rank(ctx, transcript)
	if err != nil {
		return domain.Extraction{}, errs.Wrap(err, errs.CodeExtractFailure, "rank phrases")
	}
	if len(phrases) == 0 {
		return result, nil
	}

	ranked := make([]domain.Phrase, len(phrases))
	copy(ranked, phrases)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank > ranked[j].Rank })
	if len(ranked) > e.topLessons {
		ranked = ranked[:e.topLessons]
	}

	seen := make(map[string]struct{})
	for _, p := range ranked {
		result.Lessons = append(result.Lessons, p.Text)
		for _, tok := range p.Tokens {
			if len(result.Keywords) >= e.maxKeywords {
				break
			}
			if tok.IsStop || tok.IsPunct {
				continue
			}
			kw := strings.ToLower(tok.Lemma)
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			result.Keywords = append(result.Keywords, kw)
		}
	}

	e.logger.Debug("extracted lessons", "phrases", len(phrases),
		"lessons", len(result.Lessons), "keywords", len(result.Keywords))
	return result, nil
}
