package consumer

import (
	"context"
	"encoding/json"
	"errors"

	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"go.uber.org/zap"
)

// Event types that change what the catalog looks like.
const (
	EventCatalogUpdated = "catalog_updated"
	EventStockChanged   = "stock_changed"
	EventOrderCommitted = "order_committed"
)

type CatalogInvalidator interface {
	Invalidate()
	Refresh(ctx context.Context) error
}

type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

type catalogEvent struct {
	EventType   string `json:"event_type"`
	ProductName string `json:"product_name"`
}

// CatalogEventsConsumer keeps the catalog cache coherent with changes
// made elsewhere: restocks, seeding, and orders committed by other
// replicas.
type CatalogEventsConsumer struct {
	poller  Poller
	catalog CatalogInvalidator
	logger  *zap.Logger
}

func NewCatalogEventsConsumer(poller Poller, catalog CatalogInvalidator, logger *zap.Logger) *CatalogEventsConsumer {
	return &CatalogEventsConsumer{poller: poller, catalog: catalog, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *CatalogEventsConsumer) Start(ctx context.Context) {
	c.logger.Info("starting catalog events consumer")
	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("catalog events polling stopped", zap.Error(err))
	}
}

// HandleMessage never asks for redelivery of a malformed message; the
// cache just stays as it is.
func (c *CatalogEventsConsumer) HandleMessage(ctx context.Context, body string) error {
	// Unwrap the SNS envelope when the queue is subscribed to a topic.
	var snsEnvelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &snsEnvelope); err == nil && snsEnvelope.Message != "" {
		body = snsEnvelope.Message
	}

	var evt catalogEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("invalid catalog event", zap.Error(err))
		return nil
	}

	switch evt.EventType {
	case EventCatalogUpdated, EventStockChanged, EventOrderCommitted:
	default:
		c.logger.Debug("ignoring event", zap.String("event_type", evt.EventType))
		return nil
	}

	c.catalog.Invalidate()
	if err := c.catalog.Refresh(ctx); err != nil {
		// Invalidated already, the next read refetches.
		c.logger.Warn("catalog refresh after event failed",
			zap.String("event_type", evt.EventType),
			zap.Error(err),
		)
		return nil
	}
	c.logger.Info("catalog refreshed from event",
		zap.String("event_type", evt.EventType),
		zap.String("product", evt.ProductName),
	)
	return nil
}
