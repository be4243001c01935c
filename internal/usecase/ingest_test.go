package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/adapter/analyzer"
	"podcast/internal/adapter/embedding"
	"podcast/internal/adapter/fs"
	"podcast/internal/adapter/ledger"
	"podcast/internal/logging"
)

func TestIngest_BackfillsInPathOrder(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"b.txt":     "Costs increased sharply. Hiring slowed.",
		"a.txt":     "Revenue grew twenty percent.",
		"empty.txt": "   ",
		"notes.md":  "Not a transcript.",
		"sub/c.txt": "Revenue growth continued.",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	store := t.TempDir()
	indexPath := filepath.Join(store, "lessons.index")
	ledgerPath := filepath.Join(store, "lessons.json")

	logger := logging.Discard()
	u := NewIngest(
		fs.NewWalker([]string{"**/*.txt"}, nil),
		NewExtractor(analyzer.NewTextRanker(nil), 0, 0, logger),
		NewContextBuilder(embedding.NewHashEmbedder(32), logger, nil),
		logger,
	)

	var seen []string
	res, err := u.Run(context.Background(), root, indexPath, ledgerPath, 3, func(processed, total int, current string) {
		assert.Equal(t, 4, total)
		if current != "" {
			seen = append(seen, filepath.Base(current))
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "empty.txt", "c.txt"}, seen)
	assert.Equal(t, 3, res.FilesIngested)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Empty(t, res.Errors)

	entries := ledger.Load(ledgerPath, logger).Entries()
	assert.Equal(t, res.LessonsAdded, len(entries))
	assert.Equal(t, "Revenue grew twenty percent", entries[0])
}

func TestIngest_CancelledContext(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("Revenue grew."), 0o644))

	logger := logging.Discard()
	u := NewIngest(
		fs.NewWalker(nil, nil),
		NewExtractor(analyzer.NewTextRanker(nil), 0, 0, logger),
		NewContextBuilder(embedding.NewHashEmbedder(8), logger, nil),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := u.Run(ctx, root, filepath.Join(root, "i"), filepath.Join(root, "l"), 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
