package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"cvbuilder/models"
	"cvbuilder/providers"
)

type fakeRegistry struct {
	meta *providers.Metadata
	err  error
}

func (f *fakeRegistry) Lookup(doi string) (*providers.Metadata, error) {
	return f.meta, f.err
}

func (f *fakeRegistry) Name() string { return "fake" }

type fakeFormatter struct {
	citation string
}

func (f *fakeFormatter) FormatCitation(doi string) string { return f.citation }

func intPtr(v int) *int { return &v }

func TestComposeName(t *testing.T) {
	assert.Equal(t, "Jane Q. Doe", composeName("Jane", "Q", "Doe"))
	assert.Equal(t, "Jane Q. Doe", composeName("Jane", "Q.", "Doe"))
	assert.Equal(t, "Jane Doe", composeName("Jane", "", "Doe"))
	assert.Equal(t, "Doe", composeName("", "", "Doe"))
	assert.Equal(t, "", composeName("", "", ""))
}

func TestYearRange(t *testing.T) {
	assert.Equal(t, "2020 - 2022", yearRange(2020, intPtr(2022)))
	assert.Equal(t, "2020 - present", yearRange(2020, nil))
}

func TestEducationRows(t *testing.T) {
	a := NewAssembler(nil, zap.NewNop())

	rows := a.educationRows([]models.Education{
		{SchoolName: "MIT", Location: "Cambridge, MA", DegreeType: "PhD", GradYear: 2018, FieldOfStudy: "Biology"},
		{SchoolName: "State U", Location: "Springfield", DegreeType: "BS", GradYear: 0, FieldOfStudy: "Chemistry"},
	})

	lines := strings.Split(strings.TrimRight(rows, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, `MIT, Cambridge, MA & PhD & 2018 & Biology \\`, lines[0])

	// Zero graduation year renders an empty cell.
	assert.Equal(t, `State U, Springfield & BS &  & Chemistry \\`, lines[1])
}

func TestAppointmentRows(t *testing.T) {
	a := NewAssembler(nil, zap.NewNop())

	rows := a.appointmentRows([]models.ProfessionalExperience{
		{Title: "Professor", Institution: "MIT", StartYear: 2020},
		{Title: "Postdoc", Institution: "State U", StartYear: 2016, EndYear: intPtr(2020)},
	})

	assert.Contains(t, rows, `2020 - present & Professor, MIT \\`)
	assert.Contains(t, rows, `2016 - 2020 & Postdoc, State U \\`)
}

func TestCitationLinePrecedence(t *testing.T) {
	metadata := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{Title: "A Paper"}},
		&fakeFormatter{citation: "Doe, J. (2020). A Paper."},
		zap.NewNop(),
	)
	a := NewAssembler(metadata, zap.NewNop())

	// Stored citation wins over everything.
	assert.Equal(t, "stored citation",
		a.citationLine(&models.Publication{Citation: "stored citation", DOI: "10.1/x"}))

	// No stored citation: the registry-formatted citation is used.
	assert.Equal(t, "Doe, J. (2020). A Paper.",
		a.citationLine(&models.Publication{DOI: "10.1/x"}))

	// No citation anywhere: bare DOI reference.
	noCitation := NewMetadataService(
		&fakeRegistry{meta: &providers.Metadata{Title: "A Paper"}},
		&fakeFormatter{},
		zap.NewNop(),
	)
	a = NewAssembler(noCitation, zap.NewNop())
	assert.Equal(t, "DOI: 10.1/x", a.citationLine(&models.Publication{DOI: "10.1/x"}))

	// No DOI at all: empty line.
	assert.Equal(t, "", a.citationLine(&models.Publication{}))
}

func TestCitationLineWithoutMetadataService(t *testing.T) {
	a := NewAssembler(nil, zap.NewNop())
	assert.Equal(t, "DOI: 10.1/x", a.citationLine(&models.Publication{DOI: "10.1/x"}))
}

func TestPublicationItemsOrderAndEscaping(t *testing.T) {
	a := NewAssembler(nil, zap.NewNop())

	items := a.publicationItems([]models.Publication{
		{Citation: "Second & Third (2021)"},
		{Citation: "First (2019)"},
	})

	lines := strings.Split(strings.TrimRight(items, "\n"), "\n")
	assert.Len(t, lines, 2)

	// Input order is preserved and citations are sanitized.
	assert.Equal(t, `\item Second \& Third (2021)`, lines[0])
	assert.Equal(t, `\item First (2019)`, lines[1])
}

func TestAssembleProducesAllPlaceholders(t *testing.T) {
	a := NewAssembler(nil, zap.NewNop())

	fields := a.Assemble(AssemblerInput{
		Summary:   "My research focuses on 100% reproducibility",
		FirstName: "Jane",
		LastName:  "Doe",
		Title:     "Associate Professor",
	})

	for _, name := range PlaceholderNames {
		_, ok := fields[name]
		assert.True(t, ok, "missing field %s", name)
	}
	assert.Equal(t, "Jane Doe", fields[FieldName])
	assert.Equal(t, `My research focuses on 100\% reproducibility`, fields[FieldSummary])
}
