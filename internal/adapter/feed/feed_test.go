package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
)

const sourceFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Source Show</title>
  <link>https://source.example.com</link>
  <description>test</description>
  <item>
    <title>No audio here</title>
    <guid>ep-4</guid>
  </item>
  <item>
    <title>Already done</title>
    <guid>ep-3</guid>
    <enclosure url="https://cdn.example.com/ep3.mp3" length="10" type="audio/mpeg"/>
  </item>
  <item>
    <title>Fresh episode</title>
    <link>https://source.example.com/ep2</link>
    <pubDate>Mon, 04 Mar 2024 10:00:00 GMT</pubDate>
    <enclosure url="https://cdn.example.com/ep2.mp3" length="10" type="audio/mpeg"/>
  </item>
  <item>
    <title>Older</title>
    <guid>ep-1</guid>
    <enclosure url="https://cdn.example.com/ep1.mp3" length="10" type="audio/mpeg"/>
  </item>
</channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "podcast-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPoller_LatestSkipsProcessedAndSilentItems(t *testing.T) {
	srv := serveFeed(t, sourceFeed)
	p := NewPoller(srv.URL, "podcast-test", time.Second, logging.Discard())

	processed := map[string]bool{"ep-3": true}
	item, err := p.Latest(context.Background(), func(guid string) (bool, error) {
		return processed[guid], nil
	})
	require.NoError(t, err)
	require.NotNil(t, item)

	// no guid: the link is the id
	assert.Equal(t, "https://source.example.com/ep2", item.GUID)
	assert.Equal(t, "Fresh episode", item.Title)
	assert.Equal(t, "https://cdn.example.com/ep2.mp3", item.AudioURL)
	assert.Equal(t, 2024, item.Published.Year())
}

func TestPoller_NothingNew(t *testing.T) {
	srv := serveFeed(t, sourceFeed)
	p := NewPoller(srv.URL, "podcast-test", time.Second, logging.Discard())

	item, err := p.Latest(context.Background(), func(string) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestPoller_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, "podcast-test", time.Second, logging.Discard())
	_, err := p.Latest(context.Background(), func(string) (bool, error) { return false, nil })
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeFeedFetchFailure))

	_, err = NewPoller("", "", 0, nil).Latest(context.Background(), nil)
	assert.True(t, errs.HasCode(err, errs.CodeFeedFetchFailure))
}

func TestAudioURL_FallsBackToExtension(t *testing.T) {
	item := &gofeed.Item{Enclosures: []*gofeed.Enclosure{
		{URL: "https://cdn.example.com/cover.jpg", Type: "image/jpeg"},
		{URL: "https://cdn.example.com/show.m4a?token=1"},
	}}
	assert.Equal(t, "https://cdn.example.com/show.m4a?token=1", audioURL(item))

	none := &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example.com/notes.pdf"}}}
	assert.Equal(t, "", audioURL(none))
}

func TestWriter_PublishRoundTrip(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "episode_2.wav")
	require.NoError(t, os.WriteFile(audio, []byte("12345"), 0o644))

	out := filepath.Join(dir, "public", "feed.xml")
	w := NewWriter(WriterOptions{
		Path:        out,
		Title:       "Lessons Learned",
		Link:        "https://lessons.example.com",
		Description: "Key lessons",
		PublicURL:   "https://lessons.example.com/audio/",
	})

	episodes := []domain.Episode{
		{Number: 1, GUID: "g1", Title: "First", SourceURL: "https://cdn.example.com/ep1.mp3",
			Lessons: []string{"Revenue grew"}, PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Number: 2, GUID: "g2", Title: "Second", AudioPath: audio,
			Lessons: []string{"Costs fell"}, Context: []string{"Revenue grew"}, Keywords: []string{"cost"},
			PublishedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, w.Publish(episodes))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	parsed, err := gofeed.NewParser().ParseString(string(data))
	require.NoError(t, err)
	assert.Equal(t, "Lessons Learned", parsed.Title)
	require.Len(t, parsed.Items, 2)

	newest := parsed.Items[0]
	assert.Equal(t, "Episode 2: Second", newest.Title)
	assert.Equal(t, "g2", newest.GUID)
	require.Len(t, newest.Enclosures, 1)
	assert.Equal(t, "https://lessons.example.com/audio/episode_2.wav", newest.Enclosures[0].URL)
	assert.Equal(t, "5", newest.Enclosures[0].Length)
	assert.Equal(t, "audio/wav", newest.Enclosures[0].Type)
	assert.True(t, strings.Contains(newest.Description, "Costs fell"))
	assert.True(t, strings.Contains(newest.Description, "Revenue grew"))

	oldest := parsed.Items[1]
	require.Len(t, oldest.Enclosures, 1)
	assert.Equal(t, "https://cdn.example.com/ep1.mp3", oldest.Enclosures[0].URL)
}

func TestWriter_ShowNotesReplaceLessonListing(t *testing.T) {
	w := NewWriter(WriterOptions{Title: "Lessons Learned"})
	rss, err := w.Render([]domain.Episode{
		{Number: 1, GUID: "g1", Title: "Drafted", Lessons: []string{"Revenue grew"},
			ShowNotes: "The hosts argue about growth."},
		{Number: 2, GUID: "g2", Title: "Plain", Lessons: []string{"Costs fell"}},
	})
	require.NoError(t, err)

	parsed, err := gofeed.NewParser().ParseString(rss)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 2)
	assert.Contains(t, parsed.Items[0].Description, "- Costs fell")
	assert.Equal(t, "The hosts argue about growth.", parsed.Items[1].Description)
}

func TestWriter_EmptyFeed(t *testing.T) {
	rss, err := NewWriter(WriterOptions{Title: "Empty"}).Render(nil)
	require.NoError(t, err)
	assert.Contains(t, rss, "<title>Empty</title>")
}
