package domain

import (
	"context"
	"time"
)

// Retriever defines the interface for similarity search over the reference
// corpus. Implementations may return fewer than k passages; an empty result
// means "no context", not an error.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
}

// LanguageModel defines the interface for a synchronous completion call.
// The returned text is raw model output and must never be assumed to contain
// well-formed JSON.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CatalogSource defines the interface for loading the product catalog.
// The catalog is read once at resolver construction and treated as an
// immutable snapshot afterwards.
type CatalogSource interface {
	Load(ctx context.Context) ([]CatalogItem, error)
}

// Geocoder defines the interface for forward-geocoding a delivery address to
// a resolved community name.
type Geocoder interface {
	ResolveCommunity(ctx context.Context, address string) (string, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
