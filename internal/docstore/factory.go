package docstore

import (
	"fmt"

	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
)

// Config selects and configures a store implementation.
type Config struct {
	// Provider is the store type: "memory" (default) or "chromem".
	Provider string `koanf:"provider"`

	// Chromem configures the chromem-go backed store.
	Chromem ChromemConfig `koanf:"chromem"`
}

// New creates a store based on the configuration.
//
// The store is chosen once at startup; its lifecycle belongs to the
// composition root, which passes the handle to the pipeline.
func New(cfg Config, logger *logging.Logger) (Store, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryStore(logger), nil
	case "chromem":
		return NewChromemStore(cfg.Chromem, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
