// Package config provides configuration loading for cvsearchd.
//
// Configuration is read from a YAML file, overridden by environment
// variables, with hardcoded defaults filling the gaps.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/cvsearchd/internal/docstore"
	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
	"github.com/fyrsmithlabs/cvsearchd/internal/pipeline"
	"github.com/fyrsmithlabs/cvsearchd/internal/reranker"
)

// Config holds the complete cvsearchd configuration.
type Config struct {
	Server     ServerConfig              `koanf:"server"`
	Logging    logging.Config            `koanf:"logging"`
	Embeddings embeddings.ProviderConfig `koanf:"embeddings"`
	Reranker   reranker.Config           `koanf:"reranker"`
	Store      docstore.Config           `koanf:"store"`
	Search     pipeline.Config           `koanf:"search"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9180
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Format == "" {
		defaults := logging.NewDefaultConfig()
		cfg.Logging.Format = defaults.Format
		cfg.Logging.Caller = defaults.Caller
		if cfg.Logging.Fields == nil {
			cfg.Logging.Fields = defaults.Fields
		}
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Reranker.Provider == "" {
		cfg.Reranker.Provider = "similarity"
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "memory"
	}

	cfg.Search.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Search.RelevanceThreshold < 0 || c.Search.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance threshold must be in [0,1], got %g", c.Search.RelevanceThreshold)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Reranker.Provider == "tei" && c.Reranker.BaseURL == "" {
		return fmt.Errorf("reranker base_url required for tei provider")
	}
	if c.Embeddings.Provider == "tei" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings base_url required for tei provider")
	}
	return nil
}
