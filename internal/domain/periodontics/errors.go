package periodontics

import (
	"errors"
	"fmt"
)

// ErrNoPatient signals a grid operation invoked without an active patient.
var ErrNoPatient = errors.New("no patient selected")

// InvalidMeasurementError names the tooth, site and field whose submitted
// value could not be accepted.
type InvalidMeasurementError struct {
	Tooth string
	Site  string
	Field string
	Value string
}

func (e *InvalidMeasurementError) Error() string {
	return fmt.Sprintf("tooth %s site %s: invalid %s value %q", e.Tooth, e.Site, e.Field, e.Value)
}

// StoreError wraps a persistence failure so the presentation boundary can
// distinguish it from validation problems.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }
