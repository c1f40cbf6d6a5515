package memory

import (
	"context"
	"hash/fnv"
	"math"

	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chittyos/chittyrouter/errors"
)

type (
	// Embedder derives the semantic-tier key vector from text.
	Embedder interface {
		Embed(ctx context.Context, texts ...string) ([][]float32, error)
	}

	// OpenAIEmbedder embeds through the OpenAI embeddings API.
	OpenAIEmbedder struct {
		client goopenai.Client
		model  string
	}

	// HashEmbedder is a deterministic, offline embedder: token hashes
	// folded into a fixed-dimension vector, L2-normalized. Recall quality
	// is crude, but identical text always maps to the identical vector,
	// which is all the contract requires when no embedding backend is
	// configured.
	HashEmbedder struct {
		dim int
	}
)

var (
	_ Embedder = (*OpenAIEmbedder)(nil)
	_ Embedder = (*HashEmbedder)(nil)
)

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: goopenai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, goopenai.EmbeddingNewParams{
		Input: goopenai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          goopenai.EmbeddingModel(e.model),
		EncodingFormat: goopenai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed %d texts", len(texts))
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		embedding := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			embedding[j] = float32(v)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)

	start := 0
	flush := func(end int) {
		if end <= start {
			return
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(text[start:end]))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		if sum&1 == 0 {
			vec[idx] += 1
		} else {
			vec[idx] -= 1
		}
	}
	for end, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			flush(end)
			start = end + 1
		}
	}
	flush(len(text))

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
