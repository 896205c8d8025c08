package directory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/logger"
)

const (
	engineKeyPrefix   = "engine:"
	enginesAllKey     = "engines:all"
	companyKeyPrefix  = "company:"
	settingsKeyPrefix = "settings:"
)

// CacheStats reports lookup effectiveness of a cached Directory.
type CacheStats struct {
	Hits   int64
	Misses int64
	Items  int
}

// cachedDirectory holds the shared cache behind the per-collaborator decorators.
// Only successful lookups are cached; errors, including not found, always
// reach the backing collaborator.
type cachedDirectory struct {
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
	log    logger.Logger
}

// Cached wraps the engine, company and notification settings collaborators
// of d with a TTL cache. A ttl of zero or less returns d unchanged. Monitors
// are never cached: an approval policy change or a deleted monitor must take
// effect on the next ingestion, and new monitors appear in reports at once.
func Cached(d *Directory, ttl time.Duration) (*Directory, func() CacheStats) {
	if ttl <= 0 {
		return d, func() CacheStats { return CacheStats{} }
	}
	cd := &cachedDirectory{
		cache: cache.New(ttl, ttl*2),
		log:   logger.Global().Module("directory"),
	}
	cd.log.Debug("directory cache enabled", logger.Duration("ttl", ttl))

	wrapped := &Directory{
		Monitors:  d.Monitors,
		Engines:   &cachedEngines{cachedDirectory: cd, next: d.Engines},
		Companies: &cachedCompanies{cachedDirectory: cd, next: d.Companies},
		Settings:  &cachedSettings{cachedDirectory: cd, next: d.Settings},
	}
	return wrapped, cd.stats
}

func (c *cachedDirectory) stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.cache.ItemCount(),
	}
}

// lookup returns the cached value for key or loads and caches it.
func lookup[T any](ctx context.Context, c *cachedDirectory, key string, load func(context.Context) (T, error)) (T, error) {
	if cached, found := c.cache.Get(key); found {
		if v, ok := cached.(T); ok {
			c.hits.Add(1)
			return v, nil
		}
	}
	c.misses.Add(1)

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}

type cachedEngines struct {
	*cachedDirectory
	next EngineCatalog
}

func (e *cachedEngines) Get(ctx context.Context, id string) (*entities.Engine, error) {
	return lookup(ctx, e.cachedDirectory, engineKeyPrefix+id, func(ctx context.Context) (*entities.Engine, error) {
		return e.next.Get(ctx, id)
	})
}

func (e *cachedEngines) ListAll(ctx context.Context) ([]*entities.Engine, error) {
	return lookup(ctx, e.cachedDirectory, enginesAllKey, e.next.ListAll)
}

type cachedCompanies struct {
	*cachedDirectory
	next CompanyDirectory
}

func (c *cachedCompanies) GetByCode(ctx context.Context, companyCode string) (*entities.Company, error) {
	return lookup(ctx, c.cachedDirectory, companyKeyPrefix+companyCode, func(ctx context.Context) (*entities.Company, error) {
		return c.next.GetByCode(ctx, companyCode)
	})
}

type cachedSettings struct {
	*cachedDirectory
	next NotificationSettings
}

func (s *cachedSettings) GetByCompany(ctx context.Context, companyCode string) (*entities.NotificationSetting, error) {
	return lookup(ctx, s.cachedDirectory, settingsKeyPrefix+companyCode, func(ctx context.Context) (*entities.NotificationSetting, error) {
		return s.next.GetByCompany(ctx, companyCode)
	})
}
