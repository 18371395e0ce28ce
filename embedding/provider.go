// Package embedding 是外部文本 embedding 服务的边界：Ollama / OpenAI 兼容客户端、
// 有界重试，以及商品与用户数据集的 embedding 准备。
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/vector"
)

// 服务提供方
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config 是 embedding 服务配置。
type Config struct {
	Provider  string        `koanf:"provider" validate:"oneof=ollama openai"`
	BaseURL   string        `koanf:"base_url"`
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model" validate:"required"`
	Dimension int           `koanf:"dimension" validate:"gt=0"`
	Timeout   time.Duration `koanf:"timeout"`

	// 重试与保护
	Attempts         int           `koanf:"attempts" validate:"gte=1"`
	Backoff          time.Duration `koanf:"backoff"`
	RatePerSecond    float64       `koanf:"rate_per_second" validate:"gte=0"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// DefaultConfig 对应本地 Ollama 上的 nomic-embed-text。
func DefaultConfig() Config {
	return Config{
		Provider:         ProviderOllama,
		Model:            "nomic-embed-text",
		Dimension:        core.DefaultDimension,
		Timeout:          60 * time.Second,
		Attempts:         core.DefaultEmbeddingAttempts,
		Backoff:          time.Second,
		RatePerSecond:    0,
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// OllamaEmbedder 调用 Ollama /api/embed。
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
	dim    int
}

// DefaultOllamaURL 是本地 Ollama 的默认地址。
const DefaultOllamaURL = "http://localhost:11434"

// NewOllamaEmbedder 创建 Ollama 客户端，baseURL 为空时使用 DefaultOllamaURL。
func NewOllamaEmbedder(baseURL, model string, dim int, timeout time.Duration) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("embedding: invalid ollama url %q: %w", baseURL, err)
	}
	httpClient := &http.Client{Timeout: timeout}
	return &OllamaEmbedder{client: ollama.NewClient(u, httpClient), model: model, dim: dim}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := e.client.Embed(ctx, &ollama.EmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, errors.New("ollama embed: empty response")
	}
	return vector.FromFloat32(res.Embeddings[0]), nil
}

func (e *OllamaEmbedder) Dimension() int { return e.dim }

// OpenAIEmbedder 调用任意 OpenAI 兼容的 /embeddings 接口。
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder 创建 OpenAI 兼容客户端。
func NewOpenAIEmbedder(baseURL, apiKey, model string, dim int, timeout time.Duration) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: model, dim: dim}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return vector.FromFloat32(resp.Data[0].Embedding), nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

// New 按配置创建带重试、限速与熔断的 Embedder。
func New(cfg Config, opts ...Option) (*Retrying, error) {
	var (
		base core.Embedder
		err  error
	)
	switch cfg.Provider {
	case ProviderOllama, "":
		base, err = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		cfg.Provider = ProviderOllama
	case ProviderOpenAI:
		base = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension, cfg.Timeout)
	default:
		return nil, core.ErrInvalidInput(core.ModuleEmbedding, "embedding: unknown provider "+cfg.Provider)
	}
	return NewRetrying(base, cfg, opts...), nil
}

var (
	_ core.Embedder = (*OllamaEmbedder)(nil)
	_ core.Embedder = (*OpenAIEmbedder)(nil)
)
