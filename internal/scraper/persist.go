package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/metrics"
)

// GatewayConfig controls persistence key shapes and eventing.
type GatewayConfig struct {
	// Prefix is prepended to every cloud object key.
	Prefix string
	// Topic, when set, enables a record-persisted event per written row.
	Topic string
}

// Gateway persists one extracted record: image upload, snapshot write, cloud
// snapshot upload, and an insert-if-absent into the records table. The first
// three steps are fail-soft; a relational failure is returned to the caller
// because silently dropping rows would let the run "succeed" while losing
// data.
type Gateway struct {
	images    ImageFetcher
	staging   BlobStore
	cloud     BlobStore
	records   RecordStore
	publisher Publisher
	cfg       GatewayConfig
	logger    *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewGateway creates a Gateway. staging and publisher may be nil; those steps
// are then skipped.
func NewGateway(
	images ImageFetcher,
	staging BlobStore,
	cloud BlobStore,
	records RecordStore,
	publisher Publisher,
	cfg GatewayConfig,
	logger *zap.Logger,
) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		images:    images,
		staging:   staging,
		cloud:     cloud,
		records:   records,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Persist runs the persistence steps for one record and reports whether a new
// row was written. The returned record carries the image storage URL when the
// upload succeeded.
func (g *Gateway) Persist(ctx context.Context, rec RecipeRecord) (RecipeRecord, bool, error) {
	rec = g.uploadImage(ctx, rec)
	g.writeSnapshots(ctx, rec)

	g.ensureOnce.Do(func() {
		g.ensureErr = g.records.EnsureTable(ctx)
	})
	if g.ensureErr != nil {
		return rec, false, fmt.Errorf("ensure records table: %w", g.ensureErr)
	}

	inserted, err := g.records.InsertIfAbsent(ctx, rec)
	if err != nil {
		return rec, false, fmt.Errorf("insert record %s: %w", rec.RecipeURL, err)
	}
	if inserted {
		metrics.ObserveRecord("written")
		g.publishPersisted(ctx, rec)
	} else {
		metrics.ObserveRecord("skipped")
		g.logger.Debug("record already present", zap.String("url", rec.RecipeURL))
	}
	return rec, inserted, nil
}

// uploadImage fetches the source image and uploads it under a SKU-derived
// key. Any failure, including an absent SKU or image URL, leaves
// ImageStorageURL empty and the record continues through the pipeline.
func (g *Gateway) uploadImage(ctx context.Context, rec RecipeRecord) RecipeRecord {
	if rec.ImageURL == "" || rec.SKU == "" || g.images == nil || g.cloud == nil {
		metrics.ObserveImageUpload("skipped")
		return rec
	}
	data, err := g.images.Bytes(ctx, rec.ImageURL)
	if err != nil {
		metrics.ObserveImageUpload("failed")
		g.logger.Warn("image fetch failed",
			zap.String("url", rec.RecipeURL), zap.String("image", rec.ImageURL), zap.Error(err))
		return rec
	}
	key := g.objectKey(rec.SKU + "_image.jpg")
	stored, err := g.cloud.PutObject(ctx, key, "image/jpeg", bytes.NewReader(data))
	if err != nil {
		metrics.ObserveImageUpload("failed")
		g.logger.Warn("image upload failed",
			zap.String("url", rec.RecipeURL), zap.String("key", key), zap.Error(err))
		return rec
	}
	metrics.ObserveImageUpload("ok")
	rec.ImageStorageURL = stored
	return rec
}

// writeSnapshots serializes the record and writes it to the staging store
// (recovery trail for a failed relational write) and then the cloud store.
// Both writes are keyed by SKU; with no SKU the step is skipped.
func (g *Gateway) writeSnapshots(ctx context.Context, rec RecipeRecord) {
	if rec.SKU == "" {
		g.logger.Debug("snapshot skipped, record has no sku", zap.String("url", rec.RecipeURL))
		return
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		g.logger.Warn("snapshot marshal failed", zap.String("url", rec.RecipeURL), zap.Error(err))
		return
	}
	if g.staging != nil {
		path := rec.SKU + "/data.json"
		if _, err := g.staging.PutObject(ctx, path, "application/json", bytes.NewReader(doc)); err != nil {
			g.logger.Warn("staging snapshot failed",
				zap.String("url", rec.RecipeURL), zap.String("path", path), zap.Error(err))
		}
	}
	if g.cloud != nil {
		key := g.objectKey(rec.SKU + "_data.json")
		if _, err := g.cloud.PutObject(ctx, key, "application/json", bytes.NewReader(doc)); err != nil {
			g.logger.Warn("cloud snapshot failed",
				zap.String("url", rec.RecipeURL), zap.String("key", key), zap.Error(err))
		}
	}
}

func (g *Gateway) publishPersisted(ctx context.Context, rec RecipeRecord) {
	if g.publisher == nil || g.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"recipe_url": rec.RecipeURL,
		"uuid":       rec.UUID,
		"sku":        rec.SKU,
	}
	if _, err := g.publisher.Publish(ctx, g.cfg.Topic, payload); err != nil {
		g.logger.Warn("persisted event publish failed", zap.String("url", rec.RecipeURL), zap.Error(err))
	}
}

func (g *Gateway) objectKey(name string) string {
	if g.cfg.Prefix == "" {
		return name
	}
	return g.cfg.Prefix + "/" + name
}
