// Package audio downloads episode audio and converts it for transcription.
package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"

	"podcast/internal/errs"
	"podcast/internal/logging"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options configures a Fetcher.
type Options struct {
	FFmpegPath string
	SampleRate int
	Channels   int
	Timeout    time.Duration // whole download; 0 means no limit
	Progress   io.Writer     // nil disables the progress bar
}

// Fetcher downloads audio over HTTP and transcodes it to PCM WAV with ffmpeg.
type Fetcher struct {
	opts   Options
	client *http.Client
	run    CommandRunner
	logger *slog.Logger
}

func NewFetcher(opts Options, run CommandRunner, logger *slog.Logger) *Fetcher {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if run == nil {
		run = ExecRunner
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		run:    run,
		logger: logging.OrDefault(logger),
	}
}

// Fetch downloads url and writes a WAV file at wavPath. The intermediate
// download is removed whether or not the conversion succeeds.
func (f *Fetcher) Fetch(ctx context.Context, url, wavPath string) error {
	dir := filepath.Dir(wavPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, errs.CodeAudioDownloadFailure, "create audio directory", errs.FieldPath(dir))
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return errs.Wrap(err, errs.CodeAudioDownloadFailure, "create temp file", errs.FieldPath(dir))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := f.download(ctx, url, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return errs.Wrap(err, errs.CodeAudioDownloadFailure, "download audio", errs.Field("url", url))
	}
	f.logger.Info("audio downloaded", "url", url, "bytes", n)

	out, err := f.run(ctx, f.opts.FFmpegPath,
		"-y", "-loglevel", "error",
		"-i", tmpName,
		"-ar", strconv.Itoa(f.opts.SampleRate),
		"-ac", strconv.Itoa(f.opts.Channels),
		"-c:a", "pcm_s16le",
		wavPath,
	)
	if err != nil {
		return errs.Wrap(err, errs.CodeAudioTranscodeFailure, "ffmpeg: "+string(out), errs.FieldPath(wavPath))
	}
	f.logger.Info("audio converted", "path", wavPath, "sample_rate", f.opts.SampleRate)
	return nil
}

func (f *Fetcher) download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if f.opts.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.opts.Progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]Downloading[reset]"),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(f.opts.Progress)
			}),
		)
		defer bar.Finish()
		w = io.MultiWriter(w, bar)
	}

	return io.Copy(w, resp.Body)
}
