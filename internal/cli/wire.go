package cli

import (
	"fmt"

	"podcast/config"
	"podcast/internal/adapter/analyzer"
	"podcast/internal/adapter/cache"
	"podcast/internal/adapter/embedding"
	"podcast/internal/adapter/fs"
	"podcast/internal/adapter/llm"
	"podcast/internal/adapter/store"
	"podcast/internal/port"
	"podcast/internal/usecase"
)

// newEmbedder builds the configured provider, wrapped in an in-process
// cache when cache_size is positive.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e, err := embedding.New(embedding.Options{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if cfg.Embedding.CacheSize > 0 {
		return cache.NewCachedEmbedder(e, cache.NewEmbeddingCache(cfg.Embedding.CacheSize, 0)), nil
	}
	return e, nil
}

// newEpisodeWriter returns nil when no chat model is configured.
func newEpisodeWriter(cfg *config.Config) (*usecase.EpisodeWriter, error) {
	if !cfg.LLM.Enabled() {
		return nil, nil
	}
	client, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return usecase.NewEpisodeWriter(client, logger), nil
}

func newExtractor(cfg *config.Config) *usecase.Extractor {
	return usecase.NewExtractor(analyzer.NewTextRanker(nil), cfg.Extract.TopLessons, cfg.Extract.MaxKeywords, logger)
}

func newContextBuilder(cfg *config.Config) (*usecase.ContextBuilder, error) {
	e, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewContextBuilder(e, logger, reg), nil
}

// contextPaths returns the index and ledger locations under the data dir.
func contextPaths(cfg *config.Config) (string, string) {
	return cfg.Path(cfg.Context.IndexPath), cfg.Path(cfg.Context.LedgerPath)
}

// lockStores takes the pipeline lock; commands that write the context
// stores or the episode database must hold it.
func lockStores(cfg *config.Config) (*fs.Lock, error) {
	lock, err := fs.AcquireLock(cfg.LockPath())
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", cfg.DataDir, err)
	}
	return lock, nil
}

// openEpisodeStore opens the episode database and brings its schema up to
// date. A changed embedding configuration is only reported: existing
// vectors are reset by the context builder when the dimension differs.
func openEpisodeStore(cfg *config.Config) (*store.BoltStore, error) {
	st, err := store.NewBoltStore(cfg.Path(cfg.Episodes.DBPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open episode store: %w", err)
	}

	result, err := st.CheckMigration(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if result.FingerprintChanged {
		logger.Warn("embedding configuration changed since last run",
			"provider", cfg.Embedding.Provider, "model", cfg.Embedding.Model,
			"dimension", cfg.Embedding.Dimension)
	}
	if result.NeedsMigration {
		logger.Info("running schema migration", "reason", result.Reason,
			"from", result.OldVersion, "to", result.NewVersion)
	}
	if err := st.Migrate(cfg); err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return st, nil
}
