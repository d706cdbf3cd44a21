package treatment

import (
	"time"

	"github.com/google/uuid"
)

// Treatment maps to the treatments table: one row per procedure performed,
// forming the patient's clinical log.
type Treatment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	PerformedOn  time.Time `db:"performed_on" json:"performed_on"`
	Description  string    `db:"description" json:"description"`
	Observations *string   `db:"observations" json:"observations,omitempty"`
	Cost         float64   `db:"cost" json:"cost"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
