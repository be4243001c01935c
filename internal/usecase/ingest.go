package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"podcast/internal/adapter/fs"
	"podcast/internal/logging"
	"podcast/internal/port"
)

// Ingest backfills the context stores from transcripts already on disk.
type Ingest struct {
	walker    port.FileWalker
	extractor *Extractor
	builder   *ContextBuilder
	logger    *slog.Logger
}

func NewIngest(walker port.FileWalker, extractor *Extractor, builder *ContextBuilder, logger *slog.Logger) *Ingest {
	return &Ingest{
		walker:    walker,
		extractor: extractor,
		builder:   builder,
		logger:    logging.OrDefault(logger),
	}
}

// IngestResult contains the results of an ingest run.
type IngestResult struct {
	FilesIngested int
	FilesSkipped  int
	LessonsAdded  int
	ContextHits   int
	Errors        []string
}

// ProgressFunc is called after each file.
type ProgressFunc func(processed, total int, currentFile string)

// Run feeds every matching file under root through extraction and
// BuildContext, in path order. Unreadable files and extraction failures are
// recorded and skipped; a BuildContext failure stops the run.
func (u *Ingest) Run(ctx context.Context, root, indexPath, ledgerPath string, topK int, progress ProgressFunc) (*IngestResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &IngestResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if progress != nil {
			progress(i, len(files), file.Path)
		}

		text, err := fs.ReadFile(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", file.Path, err))
			result.FilesSkipped++
			continue
		}

		extraction, err := u.extractor.Extract(ctx, text)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to extract %s: %v", file.Path, err))
			result.FilesSkipped++
			continue
		}
		if len(extraction.Lessons) == 0 {
			u.logger.Debug("no lessons in transcript", "path", file.Path)
			result.FilesSkipped++
			continue
		}

		related, err := u.builder.BuildContext(ctx, extraction.Lessons, indexPath, ledgerPath, topK)
		if err != nil {
			return result, fmt.Errorf("failed to build context for %s: %w", file.Path, err)
		}

		result.FilesIngested++
		result.LessonsAdded += len(extraction.Lessons)
		result.ContextHits += len(related)
	}
	if progress != nil {
		progress(len(files), len(files), "")
	}

	u.logger.Info("ingest finished", "files", result.FilesIngested,
		"skipped", result.FilesSkipped, "lessons", result.LessonsAdded)
	return result, nil
}
