// Package embedding turns extracted screen text into fixed-dimension vectors
// through an OpenAI-compatible /embeddings endpoint.
package embedding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/glimpse/glimpse/internal/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// ErrDimensionMismatch is returned when the backend answers with a vector of
// a different length than configured.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder produces one vector per text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// New returns an OpenAI-compatible client, or a Zero embedder when neither
// an endpoint nor an API key is configured.
func New(cfg config.EmbeddingConfig, logger *slog.Logger) Embedder {
	if cfg.Endpoint == "" && cfg.APIKey == "" {
		logger.Info("no embedding backend configured, storing zero vectors", "dimension", cfg.Dimension)
		return Zero{Dim: cfg.Dimension}
	}
	return NewClient(cfg)
}

// Zero embeds every text as the zero vector
type Zero struct {
	Dim int
}

func (z Zero) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, z.Dim), nil
}

func (z Zero) Dimension() int {
	return z.Dim
}

func (z Zero) Model() string {
	return "zero"
}

// Client calls an OpenAI-compatible embeddings API
type Client struct {
	api   openai.Client
	model string
	dim   int
}

// NewClient builds a Client. Local servers usually need no key; the SDK
// still requires one, so a placeholder is sent.
func NewClient(cfg config.EmbeddingConfig) *Client {
	key := cfg.APIKey
	if key == "" {
		key = "local"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		dim:   cfg.Dimension,
	}
}

// Embed returns the embedding of text. Blank text yields the zero vector
// without a request.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dim), nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:          openai.EmbeddingModel(c.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a requested size.
	if c.dim > 0 && strings.HasPrefix(c.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.dim))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "embedding request to model %s failed", c.model)
	}
	if len(resp.Data) == 0 {
		return nil, errors.Errorf("embedding response from model %s has no data", c.model)
	}

	raw := resp.Data[0].Embedding
	if c.dim > 0 && len(raw) != c.dim {
		return nil, errors.Wrapf(ErrDimensionMismatch, "got %d, want %d", len(raw), c.dim)
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (c *Client) Dimension() int {
	return c.dim
}

func (c *Client) Model() string {
	return c.model
}
