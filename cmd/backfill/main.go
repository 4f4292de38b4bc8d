package main

import (
	"context"
	"log"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cvbuilder/config"
	"cvbuilder/providers/crosscite"
	"cvbuilder/providers/crossref"
	"cvbuilder/services"
)

// One-shot publication metadata backfill. Fills empty bibliographic
// fields for every stored publication that has a DOI, then exits.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	metadata := &services.MetadataService{
		Registry:  crossref.NewFetcher(cfg, logger),
		Formatter: crosscite.NewFetcher(cfg, logger),
		Logger:    logger,
	}

	backfill := &services.BackfillService{
		Config:   cfg,
		DB:       db,
		Metadata: metadata,
		Logger:   logger,
	}

	updated, err := backfill.Run(context.Background())
	if err != nil {
		logger.Fatal("Backfill failed", zap.Error(err))
	}
	logger.Info("Backfill completed", zap.Int("updated", updated))
}
