package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointments table: one agenda entry for one
// patient. There is a single chair, so no practitioner column.
type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Reason      string    `db:"reason" json:"reason"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)
