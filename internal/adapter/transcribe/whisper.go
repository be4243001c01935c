// Package transcribe turns WAV audio into text with whisper.cpp.
package transcribe

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"podcast/internal/adapter/audio"
	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
)

// Options configures the whisper.cpp command line.
type Options struct {
	Executable string
	ModelPath  string
	Language   string
	Threads    int
}

// Whisper runs the whisper.cpp CLI and reads back its .txt output.
type Whisper struct {
	opts   Options
	run    audio.CommandRunner
	logger *slog.Logger
}

func NewWhisper(opts Options, run audio.CommandRunner, logger *slog.Logger) *Whisper {
	if opts.Executable == "" {
		opts.Executable = "whisper-cli"
	}
	if run == nil {
		run = audio.ExecRunner
	}
	return &Whisper{opts: opts, run: run, logger: logging.OrDefault(logger)}
}

// Transcribe writes <outPrefix>.txt and returns its contents.
func (w *Whisper) Transcribe(ctx context.Context, wavPath, outPrefix string) (domain.Transcript, error) {
	if w.opts.ModelPath == "" {
		return domain.Transcript{}, errs.New(errs.CodeTranscribeFailure, "whisper model path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(outPrefix), 0o755); err != nil {
		return domain.Transcript{}, errs.Wrap(err, errs.CodeTranscribeFailure, "create transcript directory", errs.FieldPath(outPrefix))
	}

	args := []string{"-m", w.opts.ModelPath, "-f", wavPath, "-otxt", "-of", outPrefix, "-np"}
	if w.opts.Language != "" {
		args = append(args, "-l", w.opts.Language)
	}
	if w.opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.opts.Threads))
	}

	out, err := w.run(ctx, w.opts.Executable, args...)
	if err != nil {
		return domain.Transcript{}, errs.Wrap(err, errs.CodeTranscribeFailure, "whisper: "+string(out), errs.FieldPath(wavPath))
	}

	txtPath := outPrefix + ".txt"
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return domain.Transcript{}, errs.Wrap(err, errs.CodeTranscribeFailure, "read transcript", errs.FieldPath(txtPath))
	}

	text := strings.TrimSpace(string(data))
	w.logger.Info("transcribed", "path", txtPath, "chars", len(text))
	return domain.Transcript{Path: txtPath, Text: text}, nil
}
