package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"podcast/internal/errs"
)

// Config holds all configuration for the podcast pipeline.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Feed       FeedConfig       `yaml:"feed"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Extract    ExtractConfig    `yaml:"extract"`
	Context    ContextConfig    `yaml:"context"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Episodes   EpisodesConfig   `yaml:"episodes"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// FeedConfig holds the source RSS feed settings.
type FeedConfig struct {
	URL       string        `yaml:"url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AudioConfig holds download and transcode settings.
type AudioConfig struct {
	FFmpegPath      string        `yaml:"ffmpeg_path"`
	SampleRate      int           `yaml:"sample_rate"`
	Channels        int           `yaml:"channels"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// TranscribeConfig holds whisper.cpp settings.
type TranscribeConfig struct {
	Executable string `yaml:"executable"`
	ModelPath  string `yaml:"model_path"`
	Language   string `yaml:"language"`
	Threads    int    `yaml:"threads"`
}

// ExtractConfig holds lesson/keyword extraction limits.
type ExtractConfig struct {
	TopLessons  int `yaml:"top_lessons"`
	MaxKeywords int `yaml:"max_keywords"`
}

// ContextConfig holds the context store locations.
type ContextConfig struct {
	IndexPath  string `yaml:"index_path"`
	LedgerPath string `yaml:"ledger_path"`
	TopK       int    `yaml:"top_k"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`    // "openai", "jina", "deepseek", "ollama", "hash"
	Model     string        `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string        `yaml:"base_url"`    // Empty uses the provider default
	Dimension int           `yaml:"dimension"`   // 0 uses the model default
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

// LLMConfig holds the chat model that drafts episode scripts and show
// notes. An empty provider disables drafting.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`    // "openai", "deepseek", "ollama", or any name with base_url
	Model       string        `yaml:"model"`       // e.g., "gpt-4o-mini"
	APIKeyEnv   string        `yaml:"api_key_env"` // Empty uses the provider default
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Enabled reports whether episode drafting is configured.
func (c LLMConfig) Enabled() bool {
	return c.Provider != ""
}

// EpisodesConfig holds the episode catalogue and output feed settings.
type EpisodesConfig struct {
	DBPath        string `yaml:"db_path"`
	AudioDir      string `yaml:"audio_dir"`
	TranscriptDir string `yaml:"transcript_dir"`
	RSSPath       string `yaml:"rss_path"`
	PublicURL     string `yaml:"public_url"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Link          string `yaml:"link"`
	ImageURL      string `yaml:"image_url"`
}

// IngestConfig selects local transcripts for backfilling the context stores.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Feed: FeedConfig{
			UserAgent: "podcast-pipeline/1.0",
			Timeout:   30 * time.Second,
		},
		Audio: AudioConfig{
			FFmpegPath:      "ffmpeg",
			SampleRate:      16000,
			Channels:        1,
			DownloadTimeout: 30 * time.Minute,
		},
		Transcribe: TranscribeConfig{
			Executable: "whisper-cli",
			ModelPath:  "models/ggml-base.en.bin",
			Language:   "en",
			Threads:    4,
		},
		Extract: ExtractConfig{
			TopLessons:  15,
			MaxKeywords: 30,
		},
		Context: ContextConfig{
			IndexPath:  "context/lessons.index",
			LedgerPath: "context/lessons.json",
			TopK:       3,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			Timeout:   60 * time.Second,
			CacheSize: 1000,
		},
		LLM: LLMConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
			Timeout:     120 * time.Second,
		},
		Episodes: EpisodesConfig{
			DBPath:        "episodes.db",
			AudioDir:      "audio",
			TranscriptDir: "transcripts",
			RSSPath:       "feed.xml",
			Title:         "Lessons Learned",
			Description:   "Key lessons from the shows we follow.",
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.git/**"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies PODCAST_*
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "read config", errs.FieldPath(path))
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(err, errs.CodeConfigParseInvalid, "parse config", errs.FieldPath(path))
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for podcast.yaml,
// then .podcast/config.yaml). A relative data_dir is resolved against dir.
func LoadFromDir(dir string) (*Config, error) {
	cfg, err := loadFirst(
		filepath.Join(dir, "podcast.yaml"),
		filepath.Join(dir, ".podcast", "config.yaml"),
	)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(dir, cfg.DataDir)
	}
	return cfg, nil
}

func loadFirst(paths ...string) (*Config, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides selected fields from PODCAST_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PODCAST_DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup("PODCAST_FEED_URL"); ok && v != "" {
		c.Feed.URL = v
	}
	if v, ok := lookup("PODCAST_EMBEDDING_PROVIDER"); ok && v != "" {
		c.Embedding.Provider = v
	}
	if v, ok := lookup("PODCAST_LLM_PROVIDER"); ok && v != "" {
		c.LLM.Provider = v
	}
	if v, ok := lookup("PODCAST_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return errs.New(errs.CodeConfigValidateInvalid, fmt.Sprintf(format, args...), errs.Field("field", field))
	}

	switch {
	case c.DataDir == "":
		return invalid("data_dir", "data_dir must be set")
	case c.Context.IndexPath == "" || c.Context.LedgerPath == "":
		return invalid("context", "context.index_path and context.ledger_path must be set")
	case c.Context.TopK < 0:
		return invalid("context.top_k", "context.top_k must not be negative, got %d", c.Context.TopK)
	case c.Extract.TopLessons <= 0:
		return invalid("extract.top_lessons", "extract.top_lessons must be positive, got %d", c.Extract.TopLessons)
	case c.Extract.MaxKeywords <= 0:
		return invalid("extract.max_keywords", "extract.max_keywords must be positive, got %d", c.Extract.MaxKeywords)
	case c.Embedding.Dimension < 0:
		return invalid("embedding.dimension", "embedding.dimension must not be negative, got %d", c.Embedding.Dimension)
	case c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0:
		return invalid("audio", "audio.sample_rate and audio.channels must be positive")
	}

	switch c.Embedding.Provider {
	case "openai", "jina", "deepseek", "ollama", "hash":
	default:
		return invalid("embedding.provider", "unknown embedding provider %q", c.Embedding.Provider)
	}

	if c.LLM.Enabled() {
		switch {
		case c.LLM.Model == "":
			return invalid("llm.model", "llm.model must be set when llm.provider is %q", c.LLM.Provider)
		case c.LLM.MaxTokens < 0:
			return invalid("llm.max_tokens", "llm.max_tokens must not be negative, got %d", c.LLM.MaxTokens)
		}
		switch c.LLM.Provider {
		case "openai", "deepseek", "ollama":
		default:
			if c.LLM.BaseURL == "" {
				return invalid("llm.base_url", "llm.base_url is required for provider %q", c.LLM.Provider)
			}
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return invalid("logging.format", "logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Path resolves p under DataDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// LockPath is the advisory lock taken by commands that modify the stores.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".pipeline.lock")
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
