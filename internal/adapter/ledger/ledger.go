// Package ledger keeps the lesson texts whose embeddings are stored in the
// vector index. Entry i belongs to index position i.
package ledger

import (
	"encoding/json"
	"log/slog"
	"os"

	"podcast/internal/adapter/fs"
	"podcast/internal/errs"
	"podcast/internal/logging"
)

// Ledger is an ordered, append-only list of lesson texts.
type Ledger struct {
	entries []string
	logger  *slog.Logger
}

// New returns an empty ledger.
func New(logger *slog.Logger) *Ledger {
	return &Ledger{entries: []string{}, logger: logging.OrDefault(logger)}
}

// Load reads the JSON array at path. A missing, unreadable or malformed file
// gives an empty ledger.
func Load(path string, logger *slog.Logger) *Ledger {
	l := New(logger)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l
	}
	if err != nil {
		l.logger.Warn("ledger unreadable, starting empty", "path", path, "error", err)
		return l
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("ledger is not a JSON string array, starting empty", "path", path, "error", err)
		return l
	}
	if entries != nil {
		l.entries = entries
	}
	return l
}

func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the texts in position order.
func (l *Ledger) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Append(texts ...string) {
	l.entries = append(l.entries, texts...)
}

// Resolve maps index positions to texts. Negative (no neighbour) and
// out-of-range positions are skipped and logged.
func (l *Ledger) Resolve(positions []int64) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		if p < 0 {
			l.logger.Debug("empty neighbour slot, skipped", "position", p)
			continue
		}
		if p >= int64(len(l.entries)) {
			l.logger.Warn("index position beyond ledger, skipped", "position", p, "ledger_len", len(l.entries))
			continue
		}
		out = append(out, l.entries[p])
	}
	return out
}

// Persist overwrites path with the entries as an indented JSON array.
func (l *Ledger) Persist(path string) error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return errs.Wrap(err, errs.CodeLedgerPersistFailure, "encode ledger", errs.FieldPath(path))
	}
	if err := fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeLedgerPersistFailure, "write ledger", errs.FieldPath(path))
	}
	return nil
}
