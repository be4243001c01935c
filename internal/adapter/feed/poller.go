// Package feed reads the source podcast feed and writes the output feed.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
)

// Poller finds new episodes in an RSS or Atom feed.
type Poller struct {
	url    string
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewPoller creates a Poller for url. A zero timeout means 30 seconds.
func NewPoller(url, userAgent string, timeout time.Duration, logger *slog.Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Poller{
		url:    url,
		parser: parser,
		logger: logging.OrDefault(logger),
	}
}

// Latest returns the first item in feed order that has not been processed
// and carries an audio enclosure, or nil when there is none. Items without
// an id or without audio are skipped.
func (p *Poller) Latest(ctx context.Context, isProcessed func(guid string) (bool, error)) (*domain.FeedItem, error) {
	if p.url == "" {
		return nil, errs.New(errs.CodeFeedFetchFailure, "feed URL is not configured")
	}

	feed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFeedFetchFailure, "fetch feed", errs.Field("url", p.url))
	}

	for _, item := range feed.Items {
		id := itemID(item)
		if id == "" {
			p.logger.Warn("feed item has no id, skipped", "title", item.Title)
			continue
		}

		done, err := isProcessed(id)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}

		audio := audioURL(item)
		if audio == "" {
			p.logger.Warn("feed item has no audio enclosure, skipped", "guid", id, "title", item.Title)
			continue
		}

		fi := &domain.FeedItem{GUID: id, Title: item.Title, AudioURL: audio}
		if item.PublishedParsed != nil {
			fi.Published = *item.PublishedParsed
		}
		p.logger.Info("new feed item", "guid", id, "title", item.Title)
		return fi, nil
	}

	p.logger.Info("no new feed items", "url", p.url, "items", len(feed.Items))
	return nil, nil
}

func itemID(item *gofeed.Item) string {
	if id := strings.TrimSpace(item.GUID); id != "" {
		return id
	}
	return strings.TrimSpace(item.Link)
}

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true, ".ogg": true, ".opus": true, ".flac": true,
}

func audioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "audio/") {
			return enc.URL
		}
		if enc.Type == "" {
			u := enc.URL
			if i := strings.IndexAny(u, "?#"); i >= 0 {
				u = u[:i]
			}
			if audioExtensions[strings.ToLower(path.Ext(u))] {
				return enc.URL
			}
		}
	}
	return ""
}
