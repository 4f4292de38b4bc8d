package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cvbuilder/config"
	"cvbuilder/models"
	"cvbuilder/providers"
)

func newBackfillService(t *testing.T, db *gorm.DB, registry providers.Registry) *BackfillService {
	t.Helper()
	metadata := NewMetadataService(registry, &fakeFormatter{citation: "formatted"}, zap.NewNop())
	return NewBackfillService(&config.Config{}, db, metadata, zap.NewNop())
}

func TestBackfillEnrichesIncompletePublications(t *testing.T) {
	db := newTestDB(t)

	incomplete := models.Publication{UserID: "u", DOI: "10.1/a"}
	complete := models.Publication{
		UserID: "u", DOI: "10.1/b",
		Title: "T", Authors: "A", Journal: "J", Citation: "C",
	}
	noDOI := models.Publication{UserID: "u", Title: ""}
	require.NoError(t, db.Create(&incomplete).Error)
	require.NoError(t, db.Create(&complete).Error)
	require.NoError(t, db.Create(&noDOI).Error)

	svc := newBackfillService(t, db, &fakeRegistry{meta: &providers.Metadata{
		Title: "Fetched Title", Authors: "Fetched Authors", Journal: "Fetched Journal",
	}})

	updated, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var got models.Publication
	require.NoError(t, db.First(&got, incomplete.ID).Error)
	assert.Equal(t, "Fetched Title", got.Title)
	assert.Equal(t, "formatted", got.Citation)

	// The already complete record is untouched.
	got = models.Publication{}
	require.NoError(t, db.First(&got, complete.ID).Error)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Citation)
}

func TestBackfillSkipsFailedLookups(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Publication{UserID: "u", DOI: "10.1/a"}).Error)

	svc := newBackfillService(t, db, &fakeRegistry{meta: nil})

	updated, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestBackfillHonorsCancellation(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Publication{UserID: "u", DOI: "10.1/x"}).Error)
	}

	svc := newBackfillService(t, db, &fakeRegistry{meta: &providers.Metadata{Title: "T"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updated, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, updated)
}
