package patient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// DocumentFormat selects the shape identity documents must have. A clinic
// configures one format and every patient record is held to it.
type DocumentFormat string

const (
	// DocumentDigits accepts national identity numbers: digits only.
	DocumentDigits DocumentFormat = "digits"
	// DocumentAlphanumeric accepts passport style identifiers.
	DocumentAlphanumeric DocumentFormat = "alphanumeric"
)

// ParseDocumentFormat converts a configuration string into a format.
func ParseDocumentFormat(s string) (DocumentFormat, error) {
	switch DocumentFormat(s) {
	case DocumentDigits:
		return DocumentDigits, nil
	case DocumentAlphanumeric:
		return DocumentAlphanumeric, nil
	}
	return "", fmt.Errorf("unknown document format %q", s)
}

var documentPatterns = map[DocumentFormat]*regexp.Regexp{
	DocumentDigits:       regexp.MustCompile(`^[0-9]{6,12}$`),
	DocumentAlphanumeric: regexp.MustCompile(`^[A-Za-z0-9-]{4,20}$`),
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service owns patient registration and the medical history sheet.
type Service struct {
	repo    Repository
	format  DocumentFormat
	country string
}

// NewService creates the patient service. country is the ISO 3166-1 region
// phone numbers are validated against.
func NewService(repo Repository, format DocumentFormat, country string) *Service {
	return &Service{repo: repo, format: format, country: country}
}

func (s *Service) validate(p *Patient) error {
	p.Document = strings.TrimSpace(p.Document)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)

	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}
	if !documentPatterns[s.format].MatchString(p.Document) {
		return fmt.Errorf("document %q does not match the %s format", p.Document, s.format)
	}
	if p.Email != nil && *p.Email != "" && !emailPattern.MatchString(*p.Email) {
		return fmt.Errorf("invalid email address: %s", *p.Email)
	}
	if p.Phone != nil && *p.Phone != "" {
		normalized, err := s.normalizePhone(*p.Phone)
		if err != nil {
			return err
		}
		p.Phone = &normalized
	}
	return nil
}

// normalizePhone validates the number against the clinic's country and
// stores it in E.164 so the same patient cannot register twice under
// differently formatted copies of one number.
func (s *Service) normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, s.country)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %v", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("phone number %q is not valid for region %s", raw, s.country)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	existing, err := s.repo.GetByDocument(ctx, p.Document)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrDuplicateDocument
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByDocument(ctx context.Context, document string) (*Patient, error) {
	return s.repo.GetByDocument(ctx, strings.TrimSpace(document))
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	existing, err := s.repo.GetByDocument(ctx, p.Document)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != p.ID {
		return ErrDuplicateDocument
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Find lists patients, filtered by the free-text query when one is given.
func (s *Service) Find(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.repo.List(ctx, limit, offset)
	}
	return s.repo.Search(ctx, q, limit, offset)
}

// History returns the patient's anamnesis sheet, empty when none was
// recorded yet. The patient must exist.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.GetHistory(ctx, patientID)
}

// SaveHistory replaces the patient's sheet whole.
func (s *Service) SaveHistory(ctx context.Context, patientID uuid.UUID, h *MedicalHistory) error {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return err
	}
	h.PatientID = patientID
	h.UpdatedAt = time.Now().UTC()
	return s.repo.SaveHistory(ctx, h)
}
