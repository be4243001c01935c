package vecindex

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/errs"
	"podcast/internal/logging"
)

func TestFlatL2_SearchEmptyReturnsSentinels(t *testing.T) {
	x := New(2)

	dist, pos, err := x.Search([][]float32{{1, 0}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -1, -1}, pos[0])
	for _, d := range dist[0] {
		assert.True(t, math.IsInf(float64(d), 1))
	}
}

func TestFlatL2_SearchOrdersByDistance(t *testing.T) {
	x := New(2)
	require.NoError(t, x.Add([][]float32{{10, 0}, {1, 0}, {5, 0}}))

	dist, pos, err := x.Search([][]float32{{0, 0}, {9, 0}}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, pos[0])
	assert.Equal(t, []int64{0, 2}, pos[1])
	assert.InDelta(t, 1.0, dist[0][0], 1e-4)
	assert.InDelta(t, 5.0, dist[0][1], 1e-4)
}

func TestFlatL2_SearchPadsWhenKExceedsCount(t *testing.T) {
	x := New(1)
	require.NoError(t, x.Add([][]float32{{3}}))

	dist, pos, err := x.Search([][]float32{{3}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, -1, -1}, pos[0])
	assert.InDelta(t, 0.0, dist[0][0], 1e-6)
	assert.True(t, math.IsInf(float64(dist[0][2]), 1))
}

func TestFlatL2_SearchTiesPreferLowerPosition(t *testing.T) {
	x := New(2)
	require.NoError(t, x.Add([][]float32{{0, 1}, {1, 0}, {0, -1}}))

	_, pos, err := x.Search([][]float32{{0, 0}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, pos[0])
}

func TestFlatL2_AddDimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	x := New(2)
	require.NoError(t, x.Add([][]float32{{1, 1}}))

	err := x.Add([][]float32{{2, 2}, {3, 3, 3}})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeIndexDimensionInvalid))
	assert.Equal(t, 1, x.Count())
}

func TestFlatL2_SearchQueryDimensionMismatch(t *testing.T) {
	x := New(2)
	_, _, err := x.Search([][]float32{{1, 2, 3}}, 1)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeIndexDimensionInvalid))
}

func TestFlatL2_PersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "index.bin")

	x := New(3)
	require.NoError(t, x.Add([][]float32{{1, 2, 3}, {-0.5, 0.25, 1e-7}}))
	require.NoError(t, x.Persist(path))

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, status := Load(path, 3, logging.Discard())
	assert.Equal(t, StatusLoaded, status)
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, 3, loaded.Dim())

	second := filepath.Join(dir, "again.bin")
	require.NoError(t, loaded.Persist(second))
	again, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestFlatL2_EmptyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, New(4).Persist(path))

	loaded, status := Load(path, 4, logging.Discard())
	assert.Equal(t, StatusLoaded, status)
	assert.Equal(t, 0, loaded.Count())

	data, err := loaded.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, headerSize)
}

func TestLoad_Missing(t *testing.T) {
	x, status := Load(filepath.Join(t.TempDir(), "nope.bin"), 8, logging.Discard())
	assert.Equal(t, StatusMissing, status)
	assert.Equal(t, 8, x.Dim())
	assert.Equal(t, 0, x.Count())
}

func TestLoad_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	old := New(384)
	require.NoError(t, old.Add([][]float32{make([]float32, 384)}))
	require.NoError(t, old.Persist(path))

	x, status := Load(path, 512, logging.Discard())
	assert.Equal(t, StatusDimensionMismatch, status)
	assert.Equal(t, 512, x.Dim())
	assert.Equal(t, 0, x.Count())
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"short":     []byte("PLX"),
		"magic":     append([]byte("NOPE"), make([]byte, 12)...),
		"truncated": func() []byte { b, _ := New(2).MarshalBinary(); b[8] = 5; return b }(),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".bin")
			require.NoError(t, os.WriteFile(path, data, 0o644))

			x, status := Load(path, 2, logging.Discard())
			assert.Equal(t, StatusCorrupt, status)
			assert.Equal(t, 0, x.Count())
		})
	}
}

func TestPersist_FailureIsCoded(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := New(2).Persist(filepath.Join(blocker, "index.bin"))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeIndexPersistFailure))
}

func TestLoadStatus_String(t *testing.T) {
	assert.Equal(t, "dimension_mismatch", StatusDimensionMismatch.String())
	assert.Equal(t, "LoadStatus(9)", LoadStatus(9).String())
}
