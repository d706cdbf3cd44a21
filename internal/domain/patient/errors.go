package patient

import "errors"

var (
	// ErrNotFound is returned when no patient matches the given id or
	// document.
	ErrNotFound = errors.New("patient not found")

	// ErrDuplicateDocument is returned when a create or update would leave
	// two patients sharing one document number.
	ErrDuplicateDocument = errors.New("a patient with this document already exists")
)
