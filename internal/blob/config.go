package blob

import (
	"fmt"

	"freelance-tracker/internal/config"
)

// FromConfig builds the Store selected by BLOB_BACKEND.
func FromConfig(cfg *config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendLocal:
		return NewLocal(cfg.UploadDir, cfg.BaseURL)
	case config.BlobBackendSupabase:
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
