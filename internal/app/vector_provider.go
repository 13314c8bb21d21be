package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/recall-backend/internal/platform/envutil"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/platform/qdrant"
	"github.com/yungbote/recall-backend/internal/vector"
)

// newVectorIndex selects the ANN backend. VECTOR_PROVIDER=qdrant (default
// when QDRANT_URL is set) uses the Qdrant adapter; "memory" keeps everything
// in-process, which is only suitable for tests and local hacking.
func newVectorIndex(log *logger.Logger) (vector.Index, error) {
	provider := strings.ToLower(envutil.Str("VECTOR_PROVIDER", ""))
	if provider == "" {
		if envutil.Str("QDRANT_URL", "") != "" {
			provider = "qdrant"
		} else {
			provider = "memory"
		}
	}

	switch provider {
	case "qdrant":
		cfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("qdrant config: %w", err)
		}
		idx, err := qdrant.NewIndex(log, cfg)
		if err != nil {
			return nil, fmt.Errorf("qdrant init: %w", err)
		}
		return idx, nil
	case "memory":
		log.Warn("Using in-process vector index; data will not survive a restart")
		return vector.NewMemIndex(envutil.Int("EMBEDDING_DIM", 1536)), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_PROVIDER %q", provider)
	}
}
