package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls  [][]string
	model  string
	failOn string
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == e.failOn {
			return nil, errors.New("upstream down")
		}
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int    { return 1 }
func (e *countingEmbedder) ModelName() string { return e.model }

func TestEmbeddingCache_LRUEviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Hour)

	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	_, _ = c.Get("m", "a") // a is now most recent
	c.Put("m", "c", []float32{3})

	_, ok := c.Get("m", "b")
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := c.Get("m", "a")
	assert.True(t, ok)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 2, c.Size())
}

func TestEmbeddingCache_TTL(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("m", "a", []float32{1})
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("m", "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCache_KeyedByModel(t *testing.T) {
	c := NewEmbeddingCache(10, time.Hour)
	c.Put("m1", "a", []float32{1})

	_, ok := c.Get("m2", "a")
	assert.False(t, ok)
	_, ok = c.Get("m1", "a")
	assert.True(t, ok)
}

func TestCachedEmbedder_OnlyMissesGoUpstream(t *testing.T) {
	inner := &countingEmbedder{model: "m"}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Hour))
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)

	second, err := e.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])

	_, err = e.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2, "all hits should skip the provider")
	assert.Equal(t, "m", e.ModelName())
	assert.Equal(t, 1, e.Dimension())
}

func TestCachedEmbedder_ErrorIsNotCached(t *testing.T) {
	inner := &countingEmbedder{model: "m", failOn: "boom"}
	c := NewEmbeddingCache(10, time.Hour)
	e := NewCachedEmbedder(inner, c)

	_, err := e.Embed(context.Background(), []string{"ok", "boom"})
	require.Error(t, err)
	assert.Equal(t, 0, c.Size())
}
