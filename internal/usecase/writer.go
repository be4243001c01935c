package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podcast/internal/domain"
	"podcast/internal/errs"
	"podcast/internal/logging"
	"podcast/internal/port"
)

const (
	scriptSystemPrompt = `You write scripts for a two-host podcast that revisits lessons from other shows.
The hosts have distinct personalities and trade witty banter. Keep a subtle running
mystery and end on an intriguing open question. Output only the script.`

	titleSystemPrompt = `You name podcast episodes. Answer with one catchy title on a single line,
without quotes or any other text.`

	notesSystemPrompt = `You write show notes for podcast episodes. Summarise the script in one
paragraph of 50 to 150 words, in plain text.`
)

// EpisodeWriter drafts the title, script and show notes of an episode with
// a chat model.
type EpisodeWriter struct {
	llm    port.LLM
	logger *slog.Logger
}

func NewEpisodeWriter(llm port.LLM, logger *slog.Logger) *EpisodeWriter {
	return &EpisodeWriter{llm: llm, logger: logging.OrDefault(logger)}
}

// Write generates the script from the lessons and the related past lessons,
// then a title and show notes for it. No lessons means nothing to discuss
// and an empty draft.
func (w *EpisodeWriter) Write(ctx context.Context, lessons, related []string) (domain.Draft, error) {
	if len(lessons) == 0 {
		return domain.Draft{}, nil
	}
	log := w.logger.With("model", w.llm.ModelName())

	script, err := w.llm.GenerateWithSystem(ctx, scriptSystemPrompt, scriptPrompt(lessons, related))
	if err != nil {
		return domain.Draft{}, errs.Wrap(err, errs.CodeLLMUpstream, "generate script")
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return domain.Draft{}, errs.New(errs.CodeLLMResponse, "model returned an empty script")
	}
	log.Debug("script generated", "chars", len(script))

	title, err := w.llm.GenerateWithSystem(ctx, titleSystemPrompt, "Lessons:\n"+bullets(lessons))
	if err != nil {
		return domain.Draft{}, errs.Wrap(err, errs.CodeLLMUpstream, "generate title")
	}

	notes, err := w.llm.GenerateWithSystem(ctx, notesSystemPrompt, script)
	if err != nil {
		return domain.Draft{}, errs.Wrap(err, errs.CodeLLMUpstream, "generate show notes")
	}

	draft := domain.Draft{
		Title:     firstLine(title),
		Script:    script,
		ShowNotes: strings.TrimSpace(notes),
	}
	log.Info("episode drafted", "title", draft.Title, "script_chars", len(draft.Script))
	return draft, nil
}

func scriptPrompt(lessons, related []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discuss these lessons:\n%s", bullets(lessons))
	if len(related) > 0 {
		fmt.Fprintf(&b, "\nReference these points from past episodes:\n%s", bullets(related))
	}
	return b.String()
}

func bullets(items []string) string {
	var b strings.Builder
	for _, s := range items {
		b.WriteString("- " + s + "\n")
	}
	return b.String()
}

// firstLine returns the first non-blank line without a "Title:" label or
// surrounding quotes.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 6 && strings.EqualFold(line[:6], "title:") {
			line = strings.TrimSpace(line[6:])
		}
		return strings.Trim(line, "\"'*# ")
	}
	return ""
}
