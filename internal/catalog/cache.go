package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/saleminimum-backend/pkg/redis"
)

const (
	kindProduct = "product"
	kindUnit    = "unit"

	defaultCacheTTL = 5 * time.Minute
)

// CachedReader fronts a Reader with Redis. Concurrent misses for the same key
// share one load. Cache failures fall through to the wrapped Reader.
type CachedReader struct {
	next  Reader
	store pkgredis.CatalogStore
	ttl   time.Duration
	logg  *logger.Logger
	group singleflight.Group
}

// NewCachedReader wraps next with the Redis-backed cache.
func NewCachedReader(next Reader, store pkgredis.CatalogStore, ttl time.Duration, logg *logger.Logger) (*CachedReader, error) {
	if next == nil {
		return nil, errors.New("catalog reader required")
	}
	if store == nil {
		return nil, errors.New("catalog cache store required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedReader{next: next, store: store, ttl: ttl, logg: logg}, nil
}

func (c *CachedReader) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := c.load(ctx, kindProduct, id, &product, func(ctx context.Context) (any, error) {
		return c.next.FindProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *CachedReader) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	err := c.load(ctx, kindUnit, id, &unit, func(ctx context.Context) (any, error) {
		return c.next.FindUnit(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (c *CachedReader) load(ctx context.Context, kind string, id uuid.UUID, dest any, fetch func(context.Context) (any, error)) error {
	key := c.store.CatalogKey(kind, id.String())

	if raw, err := c.store.Get(ctx, key); err == nil && raw != "" {
		if decodeErr := json.Unmarshal([]byte(raw), dest); decodeErr == nil {
			return nil
		}
		c.logg.Warn(c.logg.WithField(ctx, "cache_key", key), "discarding undecodable catalog cache entry")
	} else if err != nil && !errors.Is(err, pkgredis.Nil) {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "catalog cache read failed")
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		record, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		if setErr := c.store.Set(ctx, key, string(payload), c.ttl); setErr != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": setErr.Error()}), "catalog cache write failed")
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}
