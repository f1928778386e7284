// Package pruner implements C5: scoring a provenance log against a query
// and keeping the most recent + most relevant entries.
package pruner

import "context"

// Embedder generates vector embeddings for text. Grounded on
// internal/embedding/engine.go's EmbeddingEngine interface; no concrete
// HTTP-backed provider ships in this module
// — only the contract it would satisfy, plus a keyword-overlap stand-in
// usable without network access.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NoEmbedder is used when no embedding provider is configured; its
// presence (or absence) is exactly what selects the FIFO fallback in
// Prune.
var NoEmbedder Embedder = nil
