package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/persist"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	pkgerrors "github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/logger"
)

// FeedMessage is the wire shape of one supplier feed batch. The producer has
// already parsed the supplier's file format; the engine only sees normalized
// records. FullFeed marks complete catalogs, where a missing SKU means the
// supplier delisted it.
type FeedMessage struct {
	SupplierID   string       `json:"supplierId,omitempty"`
	SupplierCode string       `json:"supplierCode,omitempty"`
	FullFeed     bool         `json:"fullFeed,omitempty"`
	Records      []FeedRecord `json:"records"`
}

// FeedRecord mirrors catalog.ProductRecord with wire tags.
type FeedRecord struct {
	SupplierSKU  string              `json:"sku"`
	Name         string              `json:"name"`
	Manufacturer string              `json:"manufacturer"`
	CategoryPath string              `json:"categoryPath,omitempty"`
	GTIN         string              `json:"gtin,omitempty"`
	MPN          string              `json:"mpn,omitempty"`
	Price        decimal.Decimal     `json:"price"`
	InStock      bool                `json:"inStock"`
	Description  string              `json:"description,omitempty"`
	Attributes   types.AttributeMap  `json:"attributes,omitempty"`
	ImageURLs    []string            `json:"imageUrls,omitempty"`
	Bundle       types.VariantBundle `json:"bundle,omitempty"`
}

func (r FeedRecord) toProductRecord() catalog.ProductRecord {
	return catalog.ProductRecord{
		SupplierSKU:  r.SupplierSKU,
		Name:         r.Name,
		Manufacturer: r.Manufacturer,
		CategoryPath: r.CategoryPath,
		GTIN:         r.GTIN,
		MPN:          r.MPN,
		Price:        r.Price,
		InStock:      r.InStock,
		Description:  r.Description,
		Attributes:   r.Attributes,
		ImageURLs:    r.ImageURLs,
		Bundle:       r.Bundle,
	}
}

type supplierResolver interface {
	SupplierByCode(ctx context.Context, code string) (*models.Supplier, error)
}

type batchRunner interface {
	PersistBatch(ctx context.Context, records []catalog.ProductRecord, supplierID uuid.UUID) (persist.BatchStats, error)
	DeactivateMissing(ctx context.Context, supplierID, sessionID uuid.UUID) (int64, error)
}

// Consumer pulls supplier feed batches from Pub/Sub and drives them through
// the persistence orchestrator.
type Consumer struct {
	batcher      batchRunner
	suppliers    supplierResolver
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the feed subscription.
func NewConsumer(batcher batchRunner, suppliers supplierResolver, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if batcher == nil {
		return nil, errors.New("batch runner is required")
	}
	if suppliers == nil {
		return nil, errors.New("supplier resolver is required")
	}
	if subscription == nil {
		return nil, errors.New("feed subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		batcher:      batcher,
		suppliers:    suppliers,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes feed messages until the context is canceled or the
// subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msgID string, data []byte) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msgID)

	var feed FeedMessage
	if err := json.Unmarshal(data, &feed); err != nil {
		fields := map[string]any{
			"payload_len":     len(data),
			"payload_preview": previewBytes(data, 800),
		}
		c.logg.Error(c.logg.WithFields(logCtx, fields), "failed to unmarshal feed message", err)
		return processResult{ack: true}
	}
	if len(feed.Records) == 0 {
		c.logg.Info(logCtx, "feed message carries no records")
		return processResult{ack: true}
	}

	supplierID, err := c.resolveSupplier(logCtx, feed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, errUnidentifiedSupplier) {
			c.logg.Error(logCtx, "feed message names no known supplier", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "supplier resolution failed", err)
		return processResult{nack: true}
	}

	records := make([]catalog.ProductRecord, 0, len(feed.Records))
	for _, r := range feed.Records {
		records = append(records, r.toProductRecord())
	}

	stats, batchErr := c.batcher.PersistBatch(logCtx, records, supplierID)
	if batchErr != nil && stats.Total() == stats.Errors {
		// Nothing landed; a systemic failure (DB down) is worth a redelivery.
		if pkgerrors.IsRetryable(batchErr) {
			c.logg.Error(logCtx, "feed batch failed entirely", batchErr)
			return processResult{nack: true}
		}
	}

	if feed.FullFeed {
		deactivated, err := c.batcher.DeactivateMissing(logCtx, supplierID, stats.SessionID)
		if err != nil {
			c.logg.Error(logCtx, "failed to deactivate missing offers", err)
		} else if deactivated > 0 {
			c.logg.Info(c.logg.WithField(logCtx, "deactivated", deactivated), "delisted offers missing from full feed")
		}
	}

	fields := map[string]any{
		"session_id": stats.SessionID.String(),
		"records":    len(records),
		"created":    stats.Created,
		"updated":    stats.Updated,
		"matched":    stats.Matched,
		"errors":     stats.Errors,
	}
	c.logg.Info(c.logg.WithFields(logCtx, fields), "feed batch processed")
	return processResult{ack: true}
}

var errUnidentifiedSupplier = errors.New("feed message carries neither supplierId nor supplierCode")

func (c *Consumer) resolveSupplier(ctx context.Context, feed FeedMessage) (uuid.UUID, error) {
	if id := strings.TrimSpace(feed.SupplierID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, errUnidentifiedSupplier
		}
		return parsed, nil
	}
	code := strings.TrimSpace(feed.SupplierCode)
	if code == "" {
		return uuid.Nil, errUnidentifiedSupplier
	}
	supplier, err := c.suppliers.SupplierByCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	return supplier.ID, nil
}

func previewBytes(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
