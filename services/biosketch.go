package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cvbuilder/models"
)

// PublicationListSize is the fixed length of each publication selection in a
// biosketch request. It is a hard constraint: shorter or longer lists are
// rejected, never truncated or padded.
const PublicationListSize = 5

// BiosketchRequest is the transient generation request body. Either
// PersonalStatementID or Summary must be present; when both are, the
// personal statement wins.
type BiosketchRequest struct {
	RelatedPublicationIDs []uint `json:"related_publication_ids"`
	OtherPublicationIDs   []uint `json:"other_publication_ids"`
	PersonalStatementID   *uint  `json:"personal_statement_id"`
	Summary               string `json:"summary"`
	Format                string `json:"format"`
	FirstName             string `json:"first_name"`
	MiddleInitial         string `json:"middle_initial"`
	LastName              string `json:"last_name"`
	Title                 string `json:"title"`
}

// Document is a generated biosketch ready to stream to the caller. Nothing
// is persisted; the bytes are discarded after the response.
type Document struct {
	Bytes       []byte
	ContentType string
	Filename    string
}

// DocumentRenderer produces source markup from an assembled field set.
type DocumentRenderer interface {
	Render(fields Fields) string
}

// DocumentCompiler turns source markup into document bytes.
type DocumentCompiler interface {
	Compile(ctx context.Context, source string, format Format) ([]byte, error)
}

// BiosketchService orchestrates biosketch generation: validate, resolve the
// selection against the caller's own records, assemble, render, compile.
// Every failure is mapped into the pipeline error taxonomy before it leaves
// this service.
type BiosketchService struct {
	DB        *gorm.DB
	Assembler *Assembler
	Renderer  DocumentRenderer
	Compiler  DocumentCompiler
	Logger    *zap.Logger
}

// NewBiosketchService creates a new biosketch service.
func NewBiosketchService(db *gorm.DB, assembler *Assembler, renderer DocumentRenderer, compiler DocumentCompiler, logger *zap.Logger) *BiosketchService {
	return &BiosketchService{
		DB:        db,
		Assembler: assembler,
		Renderer:  renderer,
		Compiler:  compiler,
		Logger:    logger,
	}
}

// Generate runs the full pipeline for one request on behalf of userID.
func (s *BiosketchService) Generate(ctx context.Context, userID string, req *BiosketchRequest) (*Document, error) {
	format, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	summary, err := s.resolveSummary(userID, req)
	if err != nil {
		return nil, err
	}

	related, err := s.resolvePublications(userID, req.RelatedPublicationIDs, "related")
	if err != nil {
		return nil, err
	}
	other, err := s.resolvePublications(userID, req.OtherPublicationIDs, "other")
	if err != nil {
		return nil, err
	}

	var educations []models.Education
	if err := s.DB.Where("user_id = ?", userID).Order("grad_year desc").Find(&educations).Error; err != nil {
		return nil, s.storeFailure("could not load education records", err)
	}
	var experiences []models.ProfessionalExperience
	if err := s.DB.Where("user_id = ?", userID).Order("start_year desc").Find(&experiences).Error; err != nil {
		return nil, s.storeFailure("could not load professional experience records", err)
	}

	fields := s.Assembler.Assemble(AssemblerInput{
		RelatedPublications: related,
		OtherPublications:   other,
		Educations:          educations,
		Experiences:         experiences,
		Summary:             summary,
		FirstName:           req.FirstName,
		MiddleInitial:       req.MiddleInitial,
		LastName:            req.LastName,
		Title:               req.Title,
	})

	source := s.Renderer.Render(fields)

	data, err := s.Compiler.Compile(ctx, source, format)
	if err != nil {
		return nil, reclassify(err)
	}

	return &Document{
		Bytes:       data,
		ContentType: format.ContentType(),
		Filename:    format.Filename(),
	}, nil
}

// validate checks the request shape: list lengths, disjointness, a summary
// source, and a known format.
func (s *BiosketchService) validate(req *BiosketchRequest) (Format, error) {
	format, ok := ParseFormat(req.Format)
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("unsupported format %q: must be pdf, latex or html", req.Format)}
	}
	if len(req.RelatedPublicationIDs) != PublicationListSize {
		return "", &ValidationError{Message: fmt.Sprintf("related_publication_ids must contain exactly %d ids, got %d", PublicationListSize, len(req.RelatedPublicationIDs))}
	}
	if len(req.OtherPublicationIDs) != PublicationListSize {
		return "", &ValidationError{Message: fmt.Sprintf("other_publication_ids must contain exactly %d ids, got %d", PublicationListSize, len(req.OtherPublicationIDs))}
	}
	seen := make(map[uint]bool, PublicationListSize)
	for _, id := range req.RelatedPublicationIDs {
		seen[id] = true
	}
	for _, id := range req.OtherPublicationIDs {
		if seen[id] {
			return "", &ValidationError{Message: fmt.Sprintf("publication %d appears in both lists; the lists must be disjoint", id)}
		}
	}
	if req.PersonalStatementID == nil && req.Summary == "" {
		return "", &ValidationError{Message: "either personal_statement_id or summary is required"}
	}
	return format, nil
}

// resolveSummary picks the document summary source. A referenced personal
// statement takes precedence over an inline summary and must belong to the
// caller.
func (s *BiosketchService) resolveSummary(userID string, req *BiosketchRequest) (string, error) {
	if req.PersonalStatementID == nil {
		return req.Summary, nil
	}
	var ps models.PersonalStatement
	err := s.DB.Where("id = ? AND user_id = ?", *req.PersonalStatementID, userID).First(&ps).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &ResolutionError{Message: "personal statement not found or not yours"}
	}
	if err != nil {
		return "", s.storeFailure("could not load personal statement", err)
	}
	return ps.Content, nil
}

// resolvePublications looks up one selection list scoped to the caller and
// re-expands the matched rows into the caller's original order. The keyed
// lookup deduplicates, so a duplicated, foreign, or deleted id always shows
// up as a count mismatch here.
func (s *BiosketchService) resolvePublications(userID string, ids []uint, listName string) ([]models.Publication, error) {
	var rows []models.Publication
	if err := s.DB.Where("user_id = ? AND id IN ?", userID, ids).Find(&rows).Error; err != nil {
		return nil, s.storeFailure("could not load publications", err)
	}
	if len(rows) != PublicationListSize {
		return nil, &ResolutionError{
			Message: fmt.Sprintf("the %s publication list matched %d of %d publications; each id must reference one of your publications exactly once",
				listName, len(rows), PublicationListSize),
		}
	}

	byID := make(map[uint]models.Publication, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]models.Publication, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

// storeFailure logs a record-store error and wraps it as a generic
// generation failure without leaking internals.
func (s *BiosketchService) storeFailure(msg string, err error) error {
	s.Logger.Error(msg, zap.Error(err))
	return &GenerationError{
		Message: msg,
		Hint:    "try again; if the problem persists check database connectivity",
		Cause:   err,
	}
}

// reclassify maps an arbitrary pipeline error into the taxonomy, passing
// already-classified errors through unchanged.
func reclassify(err error) error {
	switch err.(type) {
	case *ValidationError, *ResolutionError, *ToolchainMissingError, *CompilationError, *EmptyOutputError, *GenerationError:
		return err
	default:
		return &GenerationError{
			Message: "biosketch generation failed",
			Hint:    "ensure the typesetting toolchain is installed",
			Cause:   err,
		}
	}
}
