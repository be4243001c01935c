package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"podcast/internal/adapter/fs"
	"podcast/internal/domain"
	"podcast/internal/errs"
)

// WriterOptions describes the output channel.
type WriterOptions struct {
	Path        string
	Title       string
	Link        string
	Description string
	ImageURL    string
	PublicURL   string // base URL episode audio is served from
}

// Writer renders recorded episodes as an RSS 2.0 file.
type Writer struct {
	opts WriterOptions
	now  func() time.Time
}

func NewWriter(opts WriterOptions) *Writer {
	return &Writer{opts: opts, now: time.Now}
}

// Publish rewrites the feed file with all episodes, newest first.
func (w *Writer) Publish(episodes []domain.Episode) error {
	rss, err := w.Render(episodes)
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(w.opts.Path, []byte(rss), 0o644); err != nil {
		return errs.Wrap(err, errs.CodeFeedWriteFailure, "write feed", errs.FieldPath(w.opts.Path))
	}
	return nil
}

// Render returns the RSS document.
func (w *Writer) Render(episodes []domain.Episode) (string, error) {
	sorted := make([]domain.Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number > sorted[j].Number })

	feed := &feeds.Feed{
		Title:       w.opts.Title,
		Link:        &feeds.Link{Href: w.opts.Link},
		Description: w.opts.Description,
		Created:     w.now(),
	}
	if w.opts.ImageURL != "" {
		feed.Image = &feeds.Image{Url: w.opts.ImageURL, Title: w.opts.Title, Link: w.opts.Link}
	}

	for _, ep := range sorted {
		item := &feeds.Item{
			Title:       fmt.Sprintf("Episode %d: %s", ep.Number, ep.Title),
			Id:          ep.GUID,
			Link:        &feeds.Link{Href: ep.SourceURL},
			Description: describe(ep),
			Created:     ep.PublishedAt,
		}
		if enc := w.enclosure(ep); enc != nil {
			item.Enclosure = enc
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", errs.Wrap(err, errs.CodeFeedWriteFailure, "render feed")
	}
	return rss, nil
}

func (w *Writer) enclosure(ep domain.Episode) *feeds.Enclosure {
	url := ep.SourceURL
	if w.opts.PublicURL != "" && ep.AudioPath != "" {
		url = strings.TrimRight(w.opts.PublicURL, "/") + "/" + filepath.Base(ep.AudioPath)
	}
	if url == "" {
		return nil
	}

	length := "0"
	mime := "audio/mpeg"
	if ep.AudioPath != "" {
		if info, err := os.Stat(ep.AudioPath); err == nil {
			length = strconv.FormatInt(info.Size(), 10)
		}
		if strings.EqualFold(filepath.Ext(ep.AudioPath), ".wav") {
			mime = "audio/wav"
		}
	}
	return &feeds.Enclosure{Url: url, Length: length, Type: mime}
}

// describe returns the show notes, or a listing of the lessons, context and
// keywords when none were generated.
func describe(ep domain.Episode) string {
	if notes := strings.TrimSpace(ep.ShowNotes); notes != "" {
		return notes
	}
	var b strings.Builder
	if len(ep.Lessons) > 0 {
		b.WriteString("Lessons:\n")
		for _, l := range ep.Lessons {
			b.WriteString("- " + l + "\n")
		}
	}
	if len(ep.Context) > 0 {
		b.WriteString("Related from earlier episodes:\n")
		for _, c := range ep.Context {
			b.WriteString("- " + c + "\n")
		}
	}
	if len(ep.Keywords) > 0 {
		b.WriteString("Keywords: " + strings.Join(ep.Keywords, ", "))
	}
	return strings.TrimSpace(b.String())
}
