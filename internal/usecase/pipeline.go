package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
	"podcast/internal/metrics"
	"podcast/internal/port"
)

// Run outcomes, also used as the metrics status label.
const (
	StatusPublished = "published"
	StatusNoNew     = "no_new"
	StatusFailed    = "failed"
)

// PipelineDeps are the collaborators of a Pipeline. Writer and Publisher
// may be nil.
type PipelineDeps struct {
	Feed        port.FeedSource
	Audio       port.AudioFetcher
	Transcriber port.Transcriber
	Extractor   *Extractor
	Context     *ContextBuilder
	Writer      *EpisodeWriter
	Store       port.EpisodeStore
	Publisher   port.FeedPublisher
}

// PipelineConfig holds the paths and limits of a run.
type PipelineConfig struct {
	AudioDir      string
	TranscriptDir string
	IndexPath     string
	LedgerPath    string
	TopK          int
}

// Pipeline processes at most one new feed item per run.
type Pipeline struct {
	deps    PipelineDeps
	cfg     PipelineConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	newGUID func() string
	now     func() time.Time
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		logger:  logging.OrDefault(logger),
		metrics: m,
		newGUID: uuid.NewString,
		now:     time.Now,
	}
}

// RunResult reports what a run did.
type RunResult struct {
	Status  string          `json:"status"`
	Episode *domain.Episode `json:"episode,omitempty"`
}

// Run polls the feed and, if there is a new item, downloads, transcribes and
// analyses it, drafts a script when a Writer is set, records the episode and
// regenerates the output feed. The item
// is marked processed only once the episode is stored.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	item, err := p.deps.Feed.Latest(ctx, p.deps.Store.IsProcessed)
	if err != nil {
		return p.fail("poll", err)
	}
	if item == nil {
		p.metrics.RecordEpisode(StatusNoNew)
		return &RunResult{Status: StatusNoNew}, nil
	}
	log := p.logger.With("source_guid", item.GUID)

	number, err := p.deps.Store.NextEpisodeNumber()
	if err != nil {
		return p.fail("number", errs.Wrap(err, errs.CodeEpisodeStoreFailure, "next episode number"))
	}
	name := fmt.Sprintf("episode_%d", number)

	wavPath := filepath.Join(p.cfg.AudioDir, name+".wav")
	log.Info("fetching audio", "url", item.AudioURL, "path", wavPath)
	if err := p.deps.Audio.Fetch(ctx, item.AudioURL, wavPath); err != nil {
		return p.fail("audio", err)
	}

	transcript, err := p.deps.Transcriber.Transcribe(ctx, wavPath, filepath.Join(p.cfg.TranscriptDir, name))
	if err != nil {
		return p.fail("transcribe", err)
	}

	extraction, err := p.deps.Extractor.Extract(ctx, transcript.Text)
	if err != nil {
		return p.fail("extract", err)
	}
	log.Info("lessons extracted", "lessons", len(extraction.Lessons), "keywords", len(extraction.Keywords))

	related, err := p.deps.Context.BuildContext(ctx, extraction.Lessons, p.cfg.IndexPath, p.cfg.LedgerPath, p.cfg.TopK)
	if err != nil {
		return p.fail("context", err)
	}

	var draft domain.Draft
	if p.deps.Writer != nil {
		// the lessons are already in the context stores; a failed draft
		// does not fail the run
		if draft, err = p.deps.Writer.Write(ctx, extraction.Lessons, related); err != nil {
			log.Warn("episode draft failed, recording without script", "error", err)
		}
	}
	title := item.Title
	if draft.Title != "" {
		title = draft.Title
	}

	ep := domain.Episode{
		Number:         number,
		GUID:           p.newGUID(),
		Title:          title,
		SourceGUID:     item.GUID,
		SourceURL:      item.AudioURL,
		AudioPath:      wavPath,
		TranscriptPath: transcript.Path,
		Lessons:        extraction.Lessons,
		Keywords:       extraction.Keywords,
		Context:        related,
		Script:         draft.Script,
		ShowNotes:      draft.ShowNotes,
		PublishedAt:    p.now(),
	}
	if err := p.deps.Store.PutEpisode(ep); err != nil {
		return p.fail("record", err)
	}
	if err := p.deps.Store.MarkProcessed(item.GUID); err != nil {
		return p.fail("record", err)
	}

	if p.deps.Publisher != nil {
		episodes, err := p.deps.Store.ListEpisodes()
		if err == nil {
			err = p.deps.Publisher.Publish(episodes)
		}
		if err != nil {
			return p.fail("publish", err)
		}
	}

	p.metrics.RecordEpisode(StatusPublished)
	log.Info("episode recorded", "number", number, "guid", ep.GUID, "context", len(related))
	return &RunResult{Status: StatusPublished, Episode: &ep}, nil
}

func (p *Pipeline) fail(step string, err error) (*RunResult, error) {
	p.metrics.RecordEpisode(StatusFailed)
	p.logger.Error("pipeline step failed", "step", step, "error", err)
	return &RunResult{Status: StatusFailed}, err
}
