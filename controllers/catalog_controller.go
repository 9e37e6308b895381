package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/logger"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/services"
	"go.uber.org/zap"
)

// CatalogReader is the catalog cache seen from HTTP.
type CatalogReader interface {
	Refresh(ctx context.Context) error
	Snapshot(ctx context.Context) ([]models.Product, error)
}

type CatalogController struct {
	catalog CatalogReader
	orders  services.OrderLister
	logger  *zap.Logger
}

func NewCatalogController(catalog CatalogReader, orders services.OrderLister, logger *zap.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, orders: orders, logger: logger}
}

// ListMedicines handles GET /medicines. It refreshes the cache first and
// falls back to the last snapshot when the store is unreachable.
func (cc *CatalogController) ListMedicines(c *gin.Context) {
	ctx := c.Request.Context()
	if err := cc.catalog.Refresh(ctx); err != nil {
		logger.For(c, cc.logger).Warn("catalog refresh failed", zap.Error(err))
	}
	products, err := cc.catalog.Snapshot(ctx)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": products, "count": len(products)})
}

// ListOrders handles GET /orders.
func (cc *CatalogController) ListOrders(c *gin.Context) {
	orders, err := cc.orders.ListOrders(c.Request.Context())
	if err != nil {
		logger.For(c, cc.logger).Error("failed to list orders", zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("inventory store", err))
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}
