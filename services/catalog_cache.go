package services

import (
	"context"
	"sync"
	"time"

	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"go.uber.org/zap"
)

type CatalogSource interface {
	GetCatalog(ctx context.Context) ([]models.Product, error)
}

// CatalogCache holds the last catalog snapshot. It is a read model for
// intent resolution only; policy decisions always go to the store.
type CatalogCache struct {
	source  CatalogSource
	maxAge  time.Duration
	logger  *zap.Logger
	metrics MetricsRecorder
	now     func() time.Time

	mu        sync.RWMutex
	products  []models.Product
	fetchedAt time.Time
	stale     bool
}

// NewCatalogCache builds an empty cache. maxAge <= 0 means a snapshot
// is reused until Invalidate.
func NewCatalogCache(source CatalogSource, maxAge time.Duration, metrics MetricsRecorder, logger *zap.Logger) *CatalogCache {
	return &CatalogCache{
		source:  source,
		maxAge:  maxAge,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Snapshot returns the cached catalog, refreshing it first when empty,
// invalidated or older than maxAge. If the refresh fails but an older
// snapshot exists, the older one is served.
func (c *CatalogCache) Snapshot(ctx context.Context) ([]models.Product, error) {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && !c.stale && (c.maxAge <= 0 || c.now().Sub(c.fetchedAt) < c.maxAge)
	products := c.products
	c.mu.RUnlock()

	if fresh {
		return append([]models.Product(nil), products...), nil
	}

	if err := c.Refresh(ctx); err != nil {
		if products != nil {
			c.logger.Warn("catalog refresh failed, serving previous snapshot", zap.Error(err))
			return append([]models.Product(nil), products...), nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Product(nil), c.products...), nil
}

func (c *CatalogCache) Refresh(ctx context.Context) error {
	products, err := c.source.GetCatalog(ctx)
	if err != nil {
		return apperrors.CollaboratorUnavailable("inventory store", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	c.mu.Lock()
	c.products = products
	c.fetchedAt = c.now()
	c.stale = false
	c.mu.Unlock()

	c.logger.Debug("catalog refreshed", zap.Int("products", len(products)))
	recordCount(ctx, c.metrics, MetricCatalogRefreshes, nil)
	return nil
}

// Invalidate marks the snapshot stale; the next Snapshot refetches.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}
