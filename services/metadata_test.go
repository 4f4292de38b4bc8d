package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cvbuilder/models"
	"cvbuilder/providers"
)

func TestFetchAttachesCitation(t *testing.T) {
	m := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{Title: "A Paper", Journal: "Nature"}},
		&fakeFormatter{citation: "Doe (2020). A Paper. Nature."},
		zap.NewNop(),
	)

	meta := m.Fetch("10.1/x")
	require.NotNil(t, meta)
	assert.Equal(t, "A Paper", meta.Title)
	assert.Equal(t, "Doe (2020). A Paper. Nature.", meta.Citation)
}

func TestFetchDegradesToNil(t *testing.T) {
	logger := zap.NewNop()

	// Empty DOI.
	m := NewMetadataService(&fakeRegistry{}, &fakeFormatter{}, logger)
	assert.Nil(t, m.Fetch(""))

	// Registry error.
	m = NewMetadataService(&fakeRegistry{err: errors.New("boom")}, &fakeFormatter{}, logger)
	assert.Nil(t, m.Fetch("10.1/x"))

	// Unknown DOI.
	m = NewMetadataService(&fakeRegistry{}, &fakeFormatter{}, logger)
	assert.Nil(t, m.Fetch("10.1/x"))
}

func TestFetchCitationFailureKeepsMetadata(t *testing.T) {
	m := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{Title: "A Paper"}},
		&fakeFormatter{citation: ""},
		zap.NewNop(),
	)

	meta := m.Fetch("10.1/x")
	require.NotNil(t, meta)
	assert.Equal(t, "A Paper", meta.Title)
	assert.Empty(t, meta.Citation)
}

func TestEnrichFillsOnlyEmptyFields(t *testing.T) {
	m := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{
			Title:   "Registry Title",
			Authors: "Registry Authors",
			Journal: "Registry Journal",
			Year:    intPtr(2020),
			Volume:  "12",
			Issue:   "3",
			Pages:   "45-67",
		}},
		&fakeFormatter{citation: "Registry Citation"},
		zap.NewNop(),
	)

	pub := models.Publication{
		DOI:   "10.1/x",
		Title: "Hand-entered Title",
		Year:  intPtr(1999),
	}

	changed := m.Enrich(&pub)
	assert.True(t, changed)

	// Existing values survive.
	assert.Equal(t, "Hand-entered Title", pub.Title)
	assert.Equal(t, 1999, *pub.Year)

	// Empty fields are filled.
	assert.Equal(t, "Registry Authors", pub.Authors)
	assert.Equal(t, "Registry Journal", pub.Journal)
	assert.Equal(t, "12", pub.Volume)
	assert.Equal(t, "3", pub.Issue)
	assert.Equal(t, "45-67", pub.Pages)
	assert.Equal(t, "Registry Citation", pub.Citation)
}

func TestEnrichNoChanges(t *testing.T) {
	m := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{Title: "Same"}},
		&fakeFormatter{},
		zap.NewNop(),
	)

	pub := models.Publication{DOI: "10.1/x", Title: "Existing"}
	assert.False(t, m.Enrich(&pub))
	assert.Equal(t, "Existing", pub.Title)
}

func TestEnrichWithoutDOI(t *testing.T) {
	m := NewMetadataService(&fakeRegistry{}, &fakeFormatter{}, zap.NewNop())
	pub := models.Publication{Title: "No DOI"}
	assert.False(t, m.Enrich(&pub))
}

func TestEnrichLookupFailureLeavesPublicationUntouched(t *testing.T) {
	m := NewMetadataService(
		&fakeRegistry{err: errors.New("network down")},
		&fakeFormatter{},
		zap.NewNop(),
	)

	pub := models.Publication{DOI: "10.1/x"}
	assert.False(t, m.Enrich(&pub))
	assert.Empty(t, pub.Title)
}
