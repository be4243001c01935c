// Package embedding provides the embedding providers used by the context
// builder.
package embedding

import (
	"podcast/internal/errs"
	"podcast/internal/port"
)

// New builds the provider named by opts.Provider.
func New(opts Options) (port.Embedder, error) {
	var (
		e   *OpenAIEmbedder
		err error
	)
	switch opts.Provider {
	case "hash":
		return NewHashEmbedder(opts.Dimension), nil
	case "openai":
		e, err = NewOpenAIEmbedder(opts)
	case "deepseek":
		e, err = NewDeepSeekEmbedder(opts)
	case "jina":
		e, err = NewJinaEmbedder(opts)
	case "ollama":
		e, err = NewOllamaEmbedder(opts)
	default:
		return nil, errs.New(errs.CodeEmbeddingConfig, "unknown embedding provider", errs.FieldProvider(opts.Provider))
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
