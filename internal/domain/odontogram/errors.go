package odontogram

import "errors"

// ErrNoPatient signals a chart operation invoked without an active patient.
var ErrNoPatient = errors.New("no patient selected")

// StoreError wraps a persistence failure so the presentation boundary can
// distinguish it from validation problems.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }
