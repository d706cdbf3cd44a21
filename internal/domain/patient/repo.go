package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByDocument(ctx context.Context, document string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)

	// GetHistory returns an empty sheet when the patient has none yet.
	GetHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error)
	SaveHistory(ctx context.Context, h *MedicalHistory) error
}
