package pruner

import (
	"context"
	"hash/fnv"
	"strings"
)

const keywordDimensions = 256

// KeywordEmbedder is a network-free Embedder stand-in: feature-hashed
// bag-of-words vectors, enough to rank provenance entries by lexical
// overlap with a query when no real embedding-provider HTTP client is
// configured. Grounded on internal/embedding/engine.go's EmbeddingEngine
// contract, but implemented without any external provider.
type KeywordEmbedder struct{}

func (KeywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, keywordDimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%keywordDimensions] += 1
	}
	return vec, nil
}
