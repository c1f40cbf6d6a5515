package memory

import (
	"context"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/chittyos/chittyrouter/errors"
)

type (
	// SemanticStore is the append-only similarity tier. A query with no
	// match above the threshold returns an empty list, never an error.
	SemanticStore interface {
		Append(ctx context.Context, entry *SemanticEntry) error
		Search(ctx context.Context, agentID string, queryEmbedding []float32, topK int, minScore float64) ([]ScoredEntry, error)
	}

	// InMemorySemanticStore scores candidates with one batched
	// matrix-vector product over normalized embeddings.
	InMemorySemanticStore struct {
		mu      sync.RWMutex
		entries []*SemanticEntry
	}
)

var _ SemanticStore = (*InMemorySemanticStore)(nil)

func NewInMemorySemanticStore() *InMemorySemanticStore {
	return &InMemorySemanticStore{}
}

func (s *InMemorySemanticStore) Append(ctx context.Context, entry *SemanticEntry) error {
	if entry == nil || entry.AgentID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "semantic entry requires an agent id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemorySemanticStore) Search(ctx context.Context, agentID string, queryEmbedding []float32, topK int, minScore float64) ([]ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryEmbedding) == 0 {
		return []ScoredEntry{}, nil
	}

	embeddingDim := len(queryEmbedding)
	var candidates []*SemanticEntry
	for _, entry := range s.entries {
		// Dimension-mismatched entries cannot participate in the product.
		if entry.AgentID == agentID && len(entry.Embedding) == embeddingDim {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return []ScoredEntry{}, nil
	}

	queryVec := make([]float64, embeddingDim)
	for i, v := range queryEmbedding {
		queryVec[i] = float64(v)
	}

	candidateData := make([]float64, len(candidates)*embeddingDim)
	for i, entry := range candidates {
		for j, v := range entry.Embedding {
			candidateData[i*embeddingDim+j] = float64(v)
		}
	}

	queryVector := mat.NewVecDense(embeddingDim, queryVec)
	candidateMatrix := mat.NewDense(len(candidates), embeddingDim, candidateData)

	var resultVec mat.VecDense
	resultVec.MulVec(candidateMatrix, queryVector)

	// Embeddings are normalized, so the inner product lies in [-1, 1];
	// shift to [0, 1] before thresholding.
	results := make([]ScoredEntry, 0, len(candidates))
	for i, entry := range candidates {
		score := (resultVec.AtVec(i) + 1.0) * 0.5
		if score < minScore {
			continue
		}
		results = append(results, ScoredEntry{Entry: entry, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}
