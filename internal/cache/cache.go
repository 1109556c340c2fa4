package cache

import (
	"context"
	"time"

	"megamart/backend/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context, key string) (*domain.CatalogSnapshot, bool, error)
	Set(ctx context.Context, key string, value *domain.CatalogSnapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) (*domain.CatalogSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ *domain.CatalogSnapshot, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Delete(_ context.Context, _ string) error {
	return nil
}
