package periodontics

import (
	"context"

	"github.com/google/uuid"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// Service owns periodontogram load, mutation and save. Mutating calls
// hydrate a working grid, apply the validated change, then persist the
// whole grid in one transactional replace.
type Service struct {
	repo   Repository
	scheme fdi.Scheme
	layout Layout
}

// NewService creates the periodontics service bound to the clinic's
// configured dentition scheme and site layout.
func NewService(repo Repository, scheme fdi.Scheme, layout Layout) *Service {
	return &Service{repo: repo, scheme: scheme, layout: layout}
}

// Scheme returns the dentition scheme grids are built over.
func (s *Service) Scheme() fdi.Scheme { return s.scheme }

// SiteLayout returns the active site vocabulary.
func (s *Service) SiteLayout() Layout { return s.layout }

// Load hydrates the patient's grid from stored rows. A patient with no
// rows gets a fresh all-default grid; rows that no longer fit the active
// scheme or layout are skipped.
func (s *Service) Load(ctx context.Context, patientID uuid.UUID) (*Grid, error) {
	if patientID == uuid.Nil {
		return nil, ErrNoPatient
	}

	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, &StoreError{Op: "load periodontogram", Err: err}
	}

	grid := NewGrid(s.scheme, s.layout)
	grid.Load(records)
	return grid, nil
}

// Save persists the grid, replacing every stored row for the patient.
func (s *Service) Save(ctx context.Context, patientID uuid.UUID, grid *Grid) error {
	if patientID == uuid.Nil {
		return ErrNoPatient
	}
	if err := s.repo.ReplaceForPatient(ctx, patientID, grid.All()); err != nil {
		return &StoreError{Op: "save periodontogram", Err: err}
	}
	return nil
}

// Record applies one site's submitted values and persists the grid. The
// input is validated before anything is written; a rejected input leaves
// the stored grid untouched.
func (s *Service) Record(ctx context.Context, patientID uuid.UUID, tooth, site string, in Input) (Measurement, error) {
	grid, err := s.Load(ctx, patientID)
	if err != nil {
		return Measurement{}, err
	}
	m, err := grid.SetMeasurement(tooth, site, in)
	if err != nil {
		return Measurement{}, err
	}
	if err := s.Save(ctx, patientID, grid); err != nil {
		return Measurement{}, err
	}
	return m, nil
}

// ClearTooth resets every site of one tooth to defaults and persists.
func (s *Service) ClearTooth(ctx context.Context, patientID uuid.UUID, tooth string) (*Grid, error) {
	grid, err := s.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := grid.Clear(tooth); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, patientID, grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// ClearAll resets the whole grid and persists.
func (s *Service) ClearAll(ctx context.Context, patientID uuid.UUID) (*Grid, error) {
	grid, err := s.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	grid.ClearAll()
	if err := s.Save(ctx, patientID, grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// Replace validates a full set of typed measurements through a fresh grid
// and persists it. Unlike Load this path is strict: a record outside the
// scheme or layout rejects the whole replace.
func (s *Service) Replace(ctx context.Context, patientID uuid.UUID, records []Measurement) (*Grid, error) {
	if patientID == uuid.Nil {
		return nil, ErrNoPatient
	}
	grid := NewGrid(s.scheme, s.layout)
	for _, m := range records {
		if err := grid.Put(m); err != nil {
			return nil, err
		}
	}
	if err := s.Save(ctx, patientID, grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// Metrics computes the whole-mouth aggregates for the patient's grid.
func (s *Service) Metrics(ctx context.Context, patientID uuid.UUID) (Metrics, error) {
	grid, err := s.Load(ctx, patientID)
	if err != nil {
		return Metrics{}, err
	}
	return grid.Metrics(), nil
}

// Export renders the patient's grid as a portable document.
func (s *Service) Export(ctx context.Context, patientID uuid.UUID) (*Document, error) {
	grid, err := s.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return grid.Export(patientID), nil
}

// Import replaces the document's patient's grid with the document
// contents. Entries for unknown teeth or sites are skipped, matching
// documents produced under a different scheme or layout.
func (s *Service) Import(ctx context.Context, doc *Document) (*Grid, error) {
	if doc == nil || doc.Patient == uuid.Nil {
		return nil, ErrNoPatient
	}
	grid := NewGrid(s.scheme, s.layout)
	if err := grid.ApplyDocument(doc); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, doc.Patient, grid); err != nil {
		return nil, err
	}
	return grid, nil
}
