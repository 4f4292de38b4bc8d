package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cvbuilder/config"
	"cvbuilder/models"
)

// BackfillService walks publications that carry a DOI but are missing
// bibliographic fields and enriches them from the registry. It sleeps a
// configured delay between lookups as rate-limit courtesy.
type BackfillService struct {
	Config   *config.Config
	DB       *gorm.DB
	Metadata *MetadataService
	Logger   *zap.Logger
}

// NewBackfillService creates a new backfill service.
func NewBackfillService(cfg *config.Config, db *gorm.DB, metadata *MetadataService, logger *zap.Logger) *BackfillService {
	return &BackfillService{
		Config:   cfg,
		DB:       db,
		Metadata: metadata,
		Logger:   logger,
	}
}

// Run enriches every candidate publication once. It returns the number of
// publications updated; individual lookup failures are logged and skipped.
func (b *BackfillService) Run(ctx context.Context) (int, error) {
	var pubs []models.Publication
	err := b.DB.
		Where("doi <> ''").
		Where("title = '' OR authors = '' OR journal = '' OR citation = ''").
		Order("id asc").
		Find(&pubs).Error
	if err != nil {
		b.Logger.Error("Failed to list publications for backfill", zap.Error(err))
		return 0, err
	}

	b.Logger.Info("Starting metadata backfill", zap.Int("candidates", len(pubs)))

	updated := 0
	for i := range pubs {
		select {
		case <-ctx.Done():
			b.Logger.Warn("Backfill cancelled", zap.Int("updated", updated))
			return updated, ctx.Err()
		default:
		}

		pub := &pubs[i]
		if !b.Metadata.Enrich(pub) {
			continue
		}
		if err := b.DB.Save(pub).Error; err != nil {
			b.Logger.Error("Failed to save enriched publication",
				zap.Uint("id", pub.ID), zap.Error(err))
			continue
		}
		updated++
		b.Logger.Info("Publication enriched", zap.Uint("id", pub.ID), zap.String("doi", pub.DOI))

		if b.Config.BackfillDelay > 0 && i < len(pubs)-1 {
			time.Sleep(b.Config.BackfillDelay)
		}
	}

	b.Logger.Info("Metadata backfill completed", zap.Int("updated", updated))
	return updated, nil
}
