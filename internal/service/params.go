package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"incasso-core/internal/domain"
)

const paramsCacheTTL = 10 * time.Minute

type ParamsRepo interface {
	Params(ctx context.Context, tenantID int64) (*domain.TenantParameters, error)
}

type ParamsCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// ParamsService serves tenant billing parameters with a short redis cache in
// front of the database. The cache is an optimization only: every error on
// the cache path falls through to the repository.
type ParamsService struct {
	repo  ParamsRepo
	cache ParamsCache
	log   zerolog.Logger
}

func NewParamsService(repo ParamsRepo, cache ParamsCache, log zerolog.Logger) *ParamsService {
	return &ParamsService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func paramsCacheKey(tenantID int64) string {
	return fmt.Sprintf("tenant_params:%d", tenantID)
}

func (s *ParamsService) Params(ctx context.Context, tenantID int64) (*domain.TenantParameters, error) {
	key := paramsCacheKey(tenantID)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var params domain.TenantParameters
			if err := json.Unmarshal([]byte(raw), &params); err == nil {
				return &params, nil
			}
			// Stale or corrupt entry, drop it and reload.
			s.cache.Del(ctx, key)
		}
	}

	params, err := s.repo.Params(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(params); err == nil {
			if err := s.cache.Set(ctx, key, raw, paramsCacheTTL); err != nil {
				s.log.Warn().Err(err).Int64("tenant_id", tenantID).Msg("params cache write failed")
			}
		}
	}

	return params, nil
}

// Invalidate drops the cached entry, to be called after parameter updates.
func (s *ParamsService) Invalidate(ctx context.Context, tenantID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, paramsCacheKey(tenantID)); err != nil {
		s.log.Warn().Err(err).Int64("tenant_id", tenantID).Msg("params cache invalidation failed")
	}
}
