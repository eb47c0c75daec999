package collections

import (
	"fmt"
	"strings"

	"github.com/yungbote/exampaper-backend/internal/platform/chroma"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/qdrant"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

type ProviderConfig struct {
	Provider string
	Chroma   chroma.Config
	Qdrant   qdrant.Config
}

type BootstrapError struct {
	Provider string
	Cause    error
}

func (e *BootstrapError) Error() string {
	if e == nil {
		return "vector store bootstrap failed"
	}
	return fmt.Sprintf("vector store bootstrap failed (provider=%s): %v", e.Provider, e.Cause)
}

func (e *BootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewStore builds the backend named by VECTOR_STORE_PROVIDER.
func NewStore(log *logger.Logger, cfg ProviderConfig) (vectorstore.Store, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = chroma.ProviderName
	}
	var (
		store vectorstore.Store
		err   error
	)
	switch provider {
	case chroma.ProviderName:
		store, err = chroma.NewStore(log, cfg.Chroma)
	case qdrant.ProviderName:
		store, err = qdrant.NewStore(log, cfg.Qdrant)
	case vectorstore.ProviderMemory:
		store = vectorstore.NewMemory()
	default:
		err = fmt.Errorf("unsupported VECTOR_STORE_PROVIDER %q (want chroma, qdrant or memory)", cfg.Provider)
	}
	if err != nil {
		return nil, &BootstrapError{Provider: provider, Cause: err}
	}
	return store, nil
}
