package reranker

import (
	"fmt"

	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
)

// Config selects and configures a reranker.
type Config struct {
	// Provider is the reranker type: "similarity" (default) or "tei".
	// The TEI reranker is always wrapped with a similarity fallback.
	Provider string `koanf:"provider"`

	// BaseURL is the TEI rerank URL (only used for the TEI provider).
	BaseURL string `koanf:"base_url"`

	// Model is the cross-encoder model name (only used for TEI).
	Model string `koanf:"model"`

	// TimeoutSeconds bounds each rerank request.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// TruncateChars caps candidate text length before submission to TEI.
	TruncateChars int `koanf:"truncate_chars"`
}

// New creates a reranker based on the configuration. The embedding provider
// backs the similarity reranker, which is always present: standalone for
// "similarity", as the fallback path for "tei".
func New(cfg Config, embedder embeddings.Provider, logger *logging.Logger) (Reranker, error) {
	similarity, err := NewSimilarityReranker(embedder)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "similarity", "":
		return similarity, nil
	case "tei":
		tei, err := NewTEIReranker(TEIConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			TruncateChars:  cfg.TruncateChars,
		})
		if err != nil {
			return nil, err
		}
		return NewFallbackReranker(tei, similarity, logger)
	default:
		return nil, fmt.Errorf("%w: unknown reranker provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
