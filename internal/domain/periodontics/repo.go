package periodontics

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists periodontal measurements. A patient's rows are always
// written as one atomic replacement; partial updates never happen.
type Repository interface {
	// ListByPatient returns every stored row for the patient, empty when
	// none exist.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Measurement, error)
	// ReplaceForPatient deletes the patient's rows and inserts the given
	// ones inside a single transaction.
	ReplaceForPatient(ctx context.Context, patientID uuid.UUID, records []Measurement) error
}
