// Package lookup finds individual student records by national ID and
// resolves their one-time enrollment-sheet download URLs.
package lookup

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
	"github.com/edwingoed13/c3pr3-2025-2/internal/portal"
)

// directDocumentFields are the identifier keys tried directly on a record,
// and again under its nested "persona" object. The portal has used each of
// them across versions.
var directDocumentFields = []string{"dni", "documento", "numero_documento", "cedula"}

// documentExtractor is one pure extraction strategy yielding the candidate
// document numbers a record carries in that strategy's shape.
type documentExtractor func(models.Record) []string

// documentExtractors is the ordered strategy list tried per record; the
// first strategy yielding a matching candidate decides.
var documentExtractors = []documentExtractor{
	extractDirect,
	extractEnrollment,
	extractPerson,
}

// extractDirect reads candidates from the top-level identifier fields.
func extractDirect(r models.Record) []string {
	var candidates []string
	for _, field := range directDocumentFields {
		if v, ok := r.FieldString(field); ok {
			candidates = append(candidates, v)
		}
	}
	return candidates
}

// extractEnrollment reads the document from the nested "estudiante" object.
func extractEnrollment(r models.Record) []string {
	nested, ok := r.Nested("estudiante")
	if !ok {
		return nil
	}
	if v, ok := nested.FieldString("nro_documento"); ok {
		return []string{v}
	}
	return nil
}

// extractPerson reads candidates from the nested "persona" object.
func extractPerson(r models.Record) []string {
	nested, ok := r.Nested("persona")
	if !ok {
		return nil
	}
	return extractDirect(nested)
}

// FindByDocument returns the first record whose document number matches the
// trimmed dni, or nil when no record matches.
func FindByDocument(records []models.Record, dni string) models.Record {
	dni = strings.TrimSpace(dni)

	for _, record := range records {
		if record == nil {
			continue
		}
		for _, extract := range documentExtractors {
			if matchesAny(extract(record), dni) {
				return record
			}
		}
	}

	return nil
}

// matchesAny reports whether any candidate equals the wanted document.
func matchesAny(candidates []string, dni string) bool {
	for _, candidate := range candidates {
		if candidate == dni {
			return true
		}
	}
	return false
}

// Service resolves enrollment-sheet downloads for matched records.
type Service struct {
	cfg     *config.PortalConfig
	fetcher *portal.Fetcher
	logger  *logrus.Logger
}

// NewService creates a lookup Service bound to the portal fetcher.
func NewService(cfg *config.PortalConfig, fetcher *portal.Fetcher, logger *logrus.Logger) *Service {
	return &Service{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ResolveDownload extracts the record's own identifier, resolves its
// one-time token through the portal, and composes the download URL.
func (s *Service) ResolveDownload(ctx context.Context, record models.Record) (*models.EnrollmentSheetResponse, error) {
	recordID, err := record.ID()
	if err != nil {
		return nil, err
	}

	s.logger.WithField("record_id", recordID).Info("Resolving enrollment sheet download")

	token, err := s.fetcher.FetchDownloadToken(ctx, recordID)
	if err != nil {
		return nil, err
	}

	return &models.EnrollmentSheetResponse{
		DownloadURL: s.cfg.DownloadURL(token),
		Student:     record,
		Token:       token,
	}, nil
}
