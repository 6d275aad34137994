package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderTEI(t *testing.T) {
	provider, err := NewProvider(ProviderConfig{
		Provider: "tei",
		BaseURL:  "http://localhost:8080",
		Model:    "BAAI/bge-base-en-v1.5",
	})
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, 768, provider.Dimension())
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectDimensionFromModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"BAAI/bge-small-en-v1.5", 384},
		{"BAAI/bge-base-en-v1.5", 768},
		{"BAAI/bge-small-zh-v1.5", 512},
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"some-org/some-base-model", 768},
		{"some-org/some-large-model", 1024},
		{"some-org/some-small-model", 384},
		{"unknown", 384},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDimensionFromModel(tt.model))
		})
	}
}
