package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.AddLessons(3)
	m.AddLessons(2)
	m.AddContextHits(4)
	m.RecordReset(ResetDimensionMismatch)
	m.RecordEpisode("success")
	m.SetIndexEntries(5)
	m.ObserveEmbedding(120 * time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.LessonsAdded))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ContextHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreResets.WithLabelValues(ResetDimensionMismatch)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StoreResets.WithLabelValues(ResetCountMismatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EpisodesProcessed.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.IndexEntries))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.AddLessons(1)
	m.RecordReset(ResetCountMismatch)
	m.ObserveEmbedding(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.AddLessons(7)

	path := filepath.Join(t.TempDir(), "podcast.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "podcast_lessons_added_total 7")
}
