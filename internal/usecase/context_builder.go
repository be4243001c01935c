package usecase

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"podcast/internal/adapter/ledger"
	"podcast/internal/adapter/vecindex"
	"podcast/internal/errs"
	"podcast/internal/logging"
	"podcast/internal/metrics"
	"podcast/internal/port"
)

// DefaultTopK is the number of neighbours searched per lesson when the
// caller passes topK <= 0.
const DefaultTopK = 3

// ContextBuilder finds past lessons related to new ones and appends the new
// lessons to the index/ledger pair.
type ContextBuilder struct {
	embedder port.Embedder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewContextBuilder creates a ContextBuilder. logger and m may be nil.
func NewContextBuilder(embedder port.Embedder, logger *slog.Logger, m *metrics.Metrics) *ContextBuilder {
	return &ContextBuilder{
		embedder: embedder,
		logger:   logging.OrDefault(logger),
		metrics:  m,
	}
}

// BuildContext returns the distinct past lessons nearest to newLessons, in
// first-seen order, excluding any text that is itself in newLessons. The new
// lessons are then added to the index and ledger and both files rewritten.
//
// Nothing is written when newLessons is empty or embedding fails. If either
// file fails to persist, the context is still returned together with the
// error.
func (b *ContextBuilder) BuildContext(ctx context.Context, newLessons []string, indexPath, ledgerPath string, topK int) ([]string, error) {
	if indexPath == "" || ledgerPath == "" {
		return nil, errs.New(errs.CodePipelineInputInvalid, "index and ledger paths are required")
	}
	if len(newLessons) == 0 {
		return []string{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := b.embed(ctx, newLessons)
	if err != nil {
		return nil, err
	}

	// the stores are checked against what the provider returned, not what
	// it declares
	idx, led := b.loadPair(indexPath, ledgerPath, len(vectors[0]))

	related := []string{}
	if idx.Count() > 0 {
		related, err = b.related(idx, led, newLessons, vectors, topK)
		if err != nil {
			return nil, err
		}
	}

	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	led.Append(newLessons...)

	indexErr := idx.Persist(indexPath)
	if indexErr != nil {
		b.logger.Error("index persist failed, stores may be unpaired", "path", indexPath, "error", indexErr)
	}
	ledgerErr := led.Persist(ledgerPath)
	if ledgerErr != nil {
		b.logger.Error("ledger persist failed, stores may be unpaired", "path", ledgerPath, "error", ledgerErr)
	}
	if err := stderrors.Join(indexErr, ledgerErr); err != nil {
		return related, err
	}

	b.metrics.AddLessons(len(newLessons))
	b.metrics.AddContextHits(len(related))
	b.metrics.SetIndexEntries(idx.Count())

	b.logger.Info("context built",
		"lessons", len(newLessons), "related", len(related), "entries", idx.Count())
	return related, nil
}

// loadPair loads both stores and resets them together when they cannot be
// trusted to line up.
func (b *ContextBuilder) loadPair(indexPath, ledgerPath string, dim int) (*vecindex.FlatL2, *ledger.Ledger) {
	idx, status := vecindex.Load(indexPath, dim, b.logger)
	led := ledger.Load(ledgerPath, b.logger)

	var reason string
	switch {
	case status == vecindex.StatusDimensionMismatch:
		reason = metrics.ResetDimensionMismatch
	case idx.Count() != led.Len():
		reason = metrics.ResetCountMismatch
	default:
		return idx, led
	}

	b.logger.Warn("resetting index and ledger",
		"reason", reason, "index_entries", idx.Count(), "ledger_entries", led.Len())
	b.metrics.RecordReset(reason)
	return vecindex.New(dim), ledger.New(b.logger)
}

// embed calls the provider once for the whole batch and checks the shape of
// the result: one vector per text, all of the same non-zero length. The
// length may differ from the provider's declared Dimension.
func (b *ContextBuilder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := b.embedder.Embed(ctx, texts)
	b.metrics.ObserveEmbedding(time.Since(start))
	if err != nil {
		b.logger.Error("embedding failed", "model", b.embedder.ModelName(), "error", err)
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstream, "embed lessons",
			errs.Field("model", b.embedder.ModelName()), errs.Field("count", len(texts)))
	}

	if len(vectors) != len(texts) {
		return nil, errs.New(errs.CodeEmbeddingResponse, "embedding count does not match lesson count",
			errs.Field("got", len(vectors)), errs.Field("want", len(texts)))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errs.New(errs.CodeEmbeddingResponse, "empty embedding vector", errs.Field("row", 0))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, errs.New(errs.CodeEmbeddingResponse, "embedding rows differ in dimension",
				errs.Field("row", i), errs.Field("got", len(v)), errs.Field("want", dim))
		}
	}
	if declared := b.embedder.Dimension(); declared != dim {
		b.logger.Warn("provider returned a different dimension than declared",
			"model", b.embedder.ModelName(), "declared", declared, "returned", dim)
	}
	return vectors, nil
}

func (b *ContextBuilder) related(idx *vecindex.FlatL2, led *ledger.Ledger, lessons []string, vectors [][]float32, topK int) ([]string, error) {
	_, positions, err := idx.Search(vectors, topK)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(lessons))
	for _, l := range lessons {
		exclude[l] = struct{}{}
	}

	out := []string{}
	seen := make(map[string]struct{})
	for _, row := range positions {
		for _, text := range led.Resolve(row) {
			if _, self := exclude[text]; self {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, text)
		}
	}
	return out, nil
}

// Stats describes the persisted index/ledger pair.
type Stats struct {
	IndexPath    string `json:"index_path"`
	LedgerPath   string `json:"ledger_path"`
	IndexStatus  string `json:"index_status"`
	Dimension    int    `json:"dimension"`
	IndexEntries int    `json:"index_entries"`
	LedgerLen    int    `json:"ledger_entries"`
	Consistent   bool   `json:"consistent"`
}

// Inspect reports on the stores without modifying them.
func (b *ContextBuilder) Inspect(indexPath, ledgerPath string) (Stats, error) {
	if indexPath == "" || ledgerPath == "" {
		return Stats{}, errs.New(errs.CodePipelineInputInvalid, "index and ledger paths are required")
	}

	idx, status := vecindex.Load(indexPath, b.embedder.Dimension(), b.logger)
	led := ledger.Load(ledgerPath, b.logger)

	return Stats{
		IndexPath:    indexPath,
		LedgerPath:   ledgerPath,
		IndexStatus:  status.String(),
		Dimension:    idx.Dim(),
		IndexEntries: idx.Count(),
		LedgerLen:    led.Len(),
		Consistent:   status != vecindex.StatusDimensionMismatch && idx.Count() == led.Len(),
	}, nil
}
