package audio

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast/internal/errs"
	"podcast/internal/logging"
)

// fakeFFmpeg copies the input file to the output path and records its args.
type fakeFFmpeg struct {
	args  []string
	input []byte
	fail  bool
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	if f.fail {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}
	in := args[indexOf(args, "-i")+1]
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, err
	}
	f.input = data
	return nil, os.WriteFile(args[len(args)-1], data, 0o644)
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func audioServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ep.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3 fake mp3 bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetcher_DownloadsAndTranscodes(t *testing.T) {
	srv := audioServer(t)
	ffmpeg := &fakeFFmpeg{}
	var progress bytes.Buffer
	f := NewFetcher(Options{FFmpegPath: "/usr/bin/ffmpeg", Progress: &progress}, ffmpeg.run, logging.Discard())

	wav := filepath.Join(t.TempDir(), "audio", "episode.wav")
	require.NoError(t, f.Fetch(context.Background(), srv.URL+"/ep.mp3", wav))

	assert.Equal(t, "ID3 fake mp3 bytes", string(ffmpeg.input))
	assert.Equal(t, "/usr/bin/ffmpeg", ffmpeg.args[0])
	assert.Equal(t, "16000", ffmpeg.args[indexOf(ffmpeg.args, "-ar")+1])
	assert.Equal(t, "1", ffmpeg.args[indexOf(ffmpeg.args, "-ac")+1])
	assert.FileExists(t, wav)
	assert.Equal(t, []string{"episode.wav"}, dirEntries(t, filepath.Dir(wav)), "download temp file must be removed")
	assert.NotZero(t, progress.Len())
}

func TestFetcher_DownloadFailure(t *testing.T) {
	srv := audioServer(t)
	ffmpeg := &fakeFFmpeg{}
	f := NewFetcher(Options{}, ffmpeg.run, logging.Discard())

	dir := t.TempDir()
	err := f.Fetch(context.Background(), srv.URL+"/missing.mp3", filepath.Join(dir, "episode.wav"))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeAudioDownloadFailure))
	assert.Nil(t, ffmpeg.args, "ffmpeg must not run after a failed download")
	assert.Empty(t, dirEntries(t, dir))
}

func TestFetcher_TranscodeFailure(t *testing.T) {
	srv := audioServer(t)
	f := NewFetcher(Options{}, (&fakeFFmpeg{fail: true}).run, logging.Discard())

	dir := t.TempDir()
	err := f.Fetch(context.Background(), srv.URL+"/ep.mp3", filepath.Join(dir, "episode.wav"))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeAudioTranscodeFailure))
	assert.Contains(t, err.Error(), "Invalid data")
	assert.Empty(t, dirEntries(t, dir))
}
