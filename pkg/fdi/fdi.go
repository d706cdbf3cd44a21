// Package fdi provides the FDI World Dental Federation two-digit tooth
// numbering vocabulary shared by the odontogram and periodontogram. Tooth
// codes are fixed per dentition scheme; they are referenced, never created.
package fdi

import "fmt"

// Scheme identifies a dentition set.
type Scheme string

const (
	// SchemePermanent is the adult dentition (32 teeth, codes 11-48).
	SchemePermanent Scheme = "permanent"
	// SchemePrimary is the deciduous dentition (20 teeth, codes 51-85).
	SchemePrimary Scheme = "primary"
)

// ParseScheme converts a string into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemePermanent:
		return SchemePermanent, nil
	case SchemePrimary:
		return SchemePrimary, nil
	}
	return "", fmt.Errorf("unknown dentition scheme %q", s)
}

// Rows are stored in chart render order: upper right to left across the
// midline, then lower right to left.
var (
	permanentUpper = []string{"18", "17", "16", "15", "14", "13", "12", "11", "21", "22", "23", "24", "25", "26", "27", "28"}
	permanentLower = []string{"48", "47", "46", "45", "44", "43", "42", "41", "31", "32", "33", "34", "35", "36", "37", "38"}
	primaryUpper   = []string{"55", "54", "53", "52", "51", "61", "62", "63", "64", "65"}
	primaryLower   = []string{"85", "84", "83", "82", "81", "71", "72", "73", "74", "75"}

	permanentSet = toSet(permanentUpper, permanentLower)
	primarySet   = toSet(primaryUpper, primaryLower)
)

func toSet(rows ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, row := range rows {
		for _, tooth := range row {
			set[tooth] = true
		}
	}
	return set
}

// UpperRow returns the upper-arch tooth codes for the scheme in render order.
func UpperRow(s Scheme) []string {
	if s == SchemePrimary {
		return append([]string(nil), primaryUpper...)
	}
	return append([]string(nil), permanentUpper...)
}

// LowerRow returns the lower-arch tooth codes for the scheme in render order.
func LowerRow(s Scheme) []string {
	if s == SchemePrimary {
		return append([]string(nil), primaryLower...)
	}
	return append([]string(nil), permanentLower...)
}

// Teeth returns every tooth code of the scheme, upper row then lower row.
func Teeth(s Scheme) []string {
	return append(UpperRow(s), LowerRow(s)...)
}

// Valid reports whether tooth belongs to the scheme.
func Valid(s Scheme, tooth string) bool {
	if s == SchemePrimary {
		return primarySet[tooth]
	}
	return permanentSet[tooth]
}

// InvalidToothError reports a tooth code outside the active scheme, for
// example a primary-tooth code while charting the permanent dentition.
type InvalidToothError struct {
	Scheme Scheme
	Tooth  string
}

func (e *InvalidToothError) Error() string {
	return fmt.Sprintf("tooth %q is not part of the %s dentition", e.Tooth, e.Scheme)
}

// Check returns an InvalidToothError when tooth is outside the scheme.
func Check(s Scheme, tooth string) error {
	if !Valid(s, tooth) {
		return &InvalidToothError{Scheme: s, Tooth: tooth}
	}
	return nil
}
