package services

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cvbuilder/models"
)

// Fields is the flat placeholder→value mapping the template renderer
// substitutes. No business logic runs after this stage.
type Fields map[string]string

// Template placeholder names. Fixed contract with templates/biosketch.tex;
// changing one side requires changing the other in lockstep.
const (
	FieldName         = "NAME"
	FieldTitle        = "TITLE"
	FieldSummary      = "SUMMARY"
	FieldEducation    = "EDUCATION"
	FieldAppointments = "APPOINTMENTS"
	FieldRelatedPubs  = "RELATED_PUBLICATIONS"
	FieldOtherPubs    = "OTHER_PUBLICATIONS"
)

// PlaceholderNames lists every placeholder the assembler produces.
var PlaceholderNames = []string{
	FieldName,
	FieldTitle,
	FieldSummary,
	FieldEducation,
	FieldAppointments,
	FieldRelatedPubs,
	FieldOtherPubs,
}

// AssemblerInput carries the resolved, ordered entities a biosketch is built
// from. Publication slices are in caller-selected order; that order is the
// precedence signal and survives into the document.
type AssemblerInput struct {
	RelatedPublications []models.Publication
	OtherPublications   []models.Publication
	Educations          []models.Education
	Experiences         []models.ProfessionalExperience

	Summary       string
	FirstName     string
	MiddleInitial string
	LastName      string
	Title         string
}

// Assembler turns resolved entities into the flat template field set. When a
// selected publication has a DOI but no stored citation it asks the metadata
// service for one opportunistically; the result is used for this document
// only, never persisted.
type Assembler struct {
	Metadata *MetadataService
	Logger   *zap.Logger
}

// NewAssembler creates a new assembler. Metadata may be nil; then the DOI
// fallback line is used directly.
func NewAssembler(metadata *MetadataService, logger *zap.Logger) *Assembler {
	return &Assembler{Metadata: metadata, Logger: logger}
}

// Assemble produces the template field set.
func (a *Assembler) Assemble(in AssemblerInput) Fields {
	return Fields{
		FieldName:         composeName(in.FirstName, in.MiddleInitial, in.LastName),
		FieldTitle:        EscapeLaTeX(in.Title),
		FieldSummary:      EscapeLaTeX(in.Summary),
		FieldEducation:    a.educationRows(in.Educations),
		FieldAppointments: a.appointmentRows(in.Experiences),
		FieldRelatedPubs:  a.publicationItems(in.RelatedPublications),
		FieldOtherPubs:    a.publicationItems(in.OtherPublications),
	}
}

// composeName joins the optional name parts into a display name. Missing
// parts vanish rather than leaving placeholder tokens.
func composeName(first, middle, last string) string {
	parts := make([]string, 0, 3)
	if first != "" {
		parts = append(parts, EscapeLaTeX(first))
	}
	if middle != "" {
		mi := EscapeLaTeX(middle)
		if !strings.HasSuffix(mi, ".") {
			mi += "."
		}
		parts = append(parts, mi)
	}
	if last != "" {
		parts = append(parts, EscapeLaTeX(last))
	}
	return strings.Join(parts, " ")
}

// educationRows formats one table row per degree. A zero graduation year
// renders as an empty cell, never as a literal placeholder.
func (a *Assembler) educationRows(educations []models.Education) string {
	var b strings.Builder
	for _, edu := range educations {
		year := ""
		if edu.GradYear != 0 {
			year = strconv.Itoa(edu.GradYear)
		}
		fmt.Fprintf(&b, "%s, %s & %s & %s & %s \\\\\n",
			EscapeLaTeX(edu.SchoolName),
			EscapeLaTeX(edu.Location),
			EscapeLaTeX(edu.DegreeType),
			year,
			EscapeLaTeX(edu.FieldOfStudy),
		)
	}
	return b.String()
}

// appointmentRows formats one row per position, newest first as given.
func (a *Assembler) appointmentRows(experiences []models.ProfessionalExperience) string {
	var b strings.Builder
	for _, exp := range experiences {
		fmt.Fprintf(&b, "%s & %s, %s \\\\\n",
			EscapeLaTeX(yearRange(exp.StartYear, exp.EndYear)),
			EscapeLaTeX(exp.Title),
			EscapeLaTeX(exp.Institution),
		)
	}
	return b.String()
}

// yearRange renders "<start> - <end>" or "<start> - present" for an ongoing
// position.
func yearRange(start int, end *int) string {
	if end != nil {
		return fmt.Sprintf("%d - %d", start, *end)
	}
	return fmt.Sprintf("%d - present", start)
}

// publicationItems renders one list item per publication, in the order
// given. The citation line is composed first and sanitized afterwards so the
// "DOI: " fallback prefix is not itself escaped.
func (a *Assembler) publicationItems(pubs []models.Publication) string {
	var b strings.Builder
	for i := range pubs {
		b.WriteString("\\item ")
		b.WriteString(EscapeLaTeX(a.citationLine(&pubs[i])))
		b.WriteString("\n")
	}
	return b.String()
}

// citationLine resolves the display citation for a publication: the stored
// citation wins, then an opportunistic registry lookup, then a bare DOI
// reference, then empty.
func (a *Assembler) citationLine(pub *models.Publication) string {
	if pub.Citation != "" {
		return pub.Citation
	}
	if pub.DOI == "" {
		return ""
	}
	if a.Metadata != nil {
		if meta := a.Metadata.Fetch(pub.DOI); meta != nil && meta.Citation != "" {
			return meta.Citation
		}
	}
	return "DOI: " + pub.DOI
}
