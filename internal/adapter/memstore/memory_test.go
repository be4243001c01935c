package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/port"
)

var _ port.EpisodeStore = (*MemoryStore)(nil)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	next, err := s.NextEpisodeNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, s.PutEpisode(domain.Episode{Number: 3, Title: "three"}))
	require.NoError(t, s.PutEpisode(domain.Episode{Number: 1, Title: "one"}))

	next, err = s.NextEpisodeNumber()
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	episodes, err := s.ListEpisodes()
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "one", episodes[0].Title)

	_, err = s.GetEpisode(2)
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, s.MarkProcessed("g"))
	ok, err := s.IsProcessed("g")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
}
