package port

import (
	"context"

	"podcast/internal/domain"
)

// FeedSource finds the newest episode that has not been processed yet.
// It returns nil when there is nothing new.
type FeedSource interface {
	Latest(ctx context.Context, isProcessed func(guid string) (bool, error)) (*domain.FeedItem, error)
}

// AudioFetcher downloads an episode's audio and converts it to WAV.
type AudioFetcher interface {
	Fetch(ctx context.Context, url, wavPath string) error
}

// Transcriber converts a WAV file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, outPrefix string) (domain.Transcript, error)
}

// EpisodeStore records processed source items and produced episodes.
type EpisodeStore interface {
	IsProcessed(guid string) (bool, error)
	MarkProcessed(guid string) error
	NextEpisodeNumber() (int, error)
	PutEpisode(ep domain.Episode) error
	ListEpisodes() ([]domain.Episode, error)
	Close() error
}

// FeedPublisher renders the recorded episodes as a feed.
type FeedPublisher interface {
	Publish(episodes []domain.Episode) error
}
