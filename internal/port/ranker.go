package port

import (
	"context"

	"podcast/internal/domain"
)

// PhraseRanker extracts ranked phrases from text. Phrases are returned in
// the ranker's native order; callers sort by Rank themselves.
type PhraseRanker interface {
	Rank(ctx context.Context, text string) ([]domain.Phrase, error)
}
