package repository

import (
	"context"
	"time"

	domrepo "FinScope/internal/domain/repository"
	"FinScope/pkg/cache"
	"FinScope/pkg/logger"
)

// CacheLocker implements RunLocker on the cache's SET NX lock.
type CacheLocker struct {
	cache cache.Service
	l     *logger.Logger
}

var _ domrepo.RunLocker = (*CacheLocker)(nil)

func NewCacheLocker(c cache.Service, l *logger.Logger) *CacheLocker {
	if l == nil {
		l = logger.Nop()
	}
	return &CacheLocker{cache: c, l: l}
}

func (k *CacheLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	key = cache.Key("lock", key)
	ok, err := k.cache.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domrepo.ErrLocked
	}
	return func() {
		// the caller's context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := k.cache.Unlock(ctx, key); err != nil {
			k.l.Warn("lock release failed", logger.String("key", key), logger.Error(err))
		}
	}, nil
}
