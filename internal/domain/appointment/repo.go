package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByPatient returns the patient's appointments newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)

	// ListByDay returns every appointment scheduled inside the day that
	// contains the given instant, in agenda order.
	ListByDay(ctx context.Context, day time.Time) ([]*Appointment, error)
}
