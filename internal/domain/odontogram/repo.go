package odontogram

import (
	"context"

	"github.com/google/uuid"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// Repository persists odontogram snapshots. One snapshot is kept per
// patient and scheme; saving replaces the previous one.
type Repository interface {
	// LoadSnapshot returns the stored snapshot, or an empty one when the
	// patient has never saved a chart for the scheme.
	LoadSnapshot(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme) (Snapshot, error)
	// SaveSnapshot stores the snapshot, replacing any prior one for the
	// same patient and scheme.
	SaveSnapshot(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme, snap Snapshot) error
}
