package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"podcast/internal/errs"
)

const defaultBatchSize = 100

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	provider  string
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	client    *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage embeddingUsage  `json:"usage"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Options configures an HTTP embedding provider. Zero values fall back to
// the provider defaults.
type Options struct {
	Provider  string
	Model     string
	APIKeyEnv string
	BaseURL   string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	opts.Provider = "openai"
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	return NewOpenAICompatibleEmbedder(opts)
}

func NewDeepSeekEmbedder(opts Options) (*OpenAIEmbedder, error) {
	opts.Provider = "deepseek"
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.deepseek.com/v1"
	}
	return NewOpenAICompatibleEmbedder(opts)
}

func NewJinaEmbedder(opts Options) (*OpenAIEmbedder, error) {
	opts.Provider = "jina"
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.jina.ai/v1"
	}
	return NewOpenAICompatibleEmbedder(opts)
}

// NewOllamaEmbedder talks to a local Ollama server; no API key is needed.
func NewOllamaEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434/v1"
	}

	dimension := 768
	switch opts.Model {
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}
	if opts.Dimension > 0 {
		dimension = opts.Dimension
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	return &OpenAIEmbedder{
		provider:  "ollama",
		apiKey:    "ollama",
		model:     opts.Model,
		baseURL:   opts.BaseURL,
		dimension: dimension,
		batchSize: batchSizeOrDefault(opts.BatchSize),
		client:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

func NewOpenAICompatibleEmbedder(opts Options) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, errs.New(errs.CodeEmbeddingConfig, "API key not found in environment",
			errs.FieldProvider(opts.Provider), errs.Field("env", opts.APIKeyEnv))
	}
	if opts.BaseURL == "" {
		return nil, errs.New(errs.CodeEmbeddingConfig, "base URL is required", errs.FieldProvider(opts.Provider))
	}

	dimension := 1536
	switch opts.Model {
	case "text-embedding-3-small":
		dimension = 1536
	case "text-embedding-3-large":
		dimension = 3072
	case "text-embedding-ada-002":
		dimension = 1536

	case "jina-embeddings-v3":
		dimension = 1024
	case "jina-embeddings-v4":
		dimension = 2048
	}
	if opts.Dimension > 0 {
		dimension = opts.Dimension
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &OpenAIEmbedder{
		provider:  opts.Provider,
		apiKey:    apiKey,
		model:     opts.Model,
		baseURL:   opts.BaseURL,
		dimension: dimension,
		batchSize: batchSizeOrDefault(opts.BatchSize),
		client:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

func batchSizeOrDefault(n int) int {
	if n <= 0 {
		return defaultBatchSize
	}
	return n
}

// Embed returns one vector per text, in input order. Large inputs are split
// into several requests; any failure fails the whole call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstream, "marshal request", errs.FieldProvider(e.provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstream, "create request", errs.FieldProvider(e.provider))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstream, "request failed", errs.FieldProvider(e.provider))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingUpstream, "read response", errs.FieldProvider(e.provider))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.CodeEmbeddingUpstream, fmt.Sprintf("API returned status %d: %s", resp.StatusCode, preview(body)),
			errs.FieldProvider(e.provider), errs.Field("status", resp.StatusCode))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbeddingResponse, "parse response (body: "+preview(body)+")",
			errs.FieldProvider(e.provider))
	}

	if embResp.Error != nil {
		return nil, errs.New(errs.CodeEmbeddingUpstream, "API error: "+embResp.Error.Message, errs.FieldProvider(e.provider))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, errs.New(errs.CodeEmbeddingResponse, "response is missing an embedding",
				errs.FieldProvider(e.provider), errs.Field("index", i), errs.Field("inputs", len(texts)))
		}
	}

	return embeddings, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
