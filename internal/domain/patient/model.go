package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Every clinical record in the system
// hangs off one of these rows.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Document  string     `db:"document" json:"document"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Address   *string    `db:"address" json:"address,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// MedicalHistory is the patient's anamnesis sheet. It is stored as one
// document per patient and replaced whole on save. Extra carries the
// questionnaire answers that have no fixed column, pregnancy or
// anticoagulant flags among them.
type MedicalHistory struct {
	PatientID   uuid.UUID              `json:"patient_id"`
	Conditions  []string               `json:"conditions,omitempty"`
	Medications []string               `json:"medications,omitempty"`
	Allergies   []string               `json:"allergies,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
