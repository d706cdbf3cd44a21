package odontogram

import (
	"fmt"
	"strings"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// Status is the clinical state recorded for one tooth surface.
type Status string

const (
	StatusHealthy    Status = "Healthy"
	StatusDecayed    Status = "Decayed"
	StatusRestored   Status = "Restored"
	StatusMissing    Status = "Missing"
	StatusImplant    Status = "Implant"
	StatusCrown      Status = "Crown"
	StatusEndodontic Status = "EndodonticTreated"
	StatusExtraction Status = "ExtractionIndicated"
)

// cycleOrder is the single-click rotation. Extended statuses are assigned
// explicitly and are not part of the rotation; cycling from one of them
// restarts at Healthy.
var cycleOrder = [5]Status{StatusHealthy, StatusDecayed, StatusRestored, StatusMissing, StatusImplant}

var coreStatuses = map[Status]bool{
	StatusHealthy:  true,
	StatusDecayed:  true,
	StatusRestored: true,
	StatusMissing:  true,
	StatusImplant:  true,
}

var extendedOnlyStatuses = map[Status]bool{
	StatusCrown:      true,
	StatusEndodontic: true,
	StatusExtraction: true,
}

// CycleOrder returns the click rotation in order.
func CycleOrder() []Status {
	return append([]Status(nil), cycleOrder[:]...)
}

// Statuses returns the accepted status vocabulary. With extended enabled the
// crown, endodontic and extraction-indicated states are included.
func Statuses(extended bool) []Status {
	out := CycleOrder()
	if extended {
		out = append(out, StatusCrown, StatusEndodontic, StatusExtraction)
	}
	return out
}

// ParseStatus resolves a status name against the accepted vocabulary.
func ParseStatus(s string, extended bool) (Status, error) {
	st := Status(s)
	if coreStatuses[st] {
		return st, nil
	}
	if extended && extendedOnlyStatuses[st] {
		return st, nil
	}
	return "", fmt.Errorf("unknown tooth status %q", s)
}

// Surface is one of the five charted tooth faces.
type Surface string

const (
	SurfaceOcclusal Surface = "O"
	SurfaceMesial   Surface = "M"
	SurfaceDistal   Surface = "D"
	SurfaceBuccal   Surface = "B"
	SurfaceLingual  Surface = "L"
)

var surfaceOrder = [5]Surface{SurfaceOcclusal, SurfaceMesial, SurfaceDistal, SurfaceBuccal, SurfaceLingual}

var validSurfaces = map[Surface]bool{
	SurfaceOcclusal: true,
	SurfaceMesial:   true,
	SurfaceDistal:   true,
	SurfaceBuccal:   true,
	SurfaceLingual:  true,
}

// Surfaces returns the charted surfaces in display order.
func Surfaces() []Surface {
	return append([]Surface(nil), surfaceOrder[:]...)
}

// ParseSurface resolves a surface code. The vestibular and palatal spellings
// used by the alternate chart layout normalize to buccal and lingual.
func ParseSurface(s string) (Surface, error) {
	switch Surface(strings.ToUpper(s)) {
	case SurfaceOcclusal, SurfaceMesial, SurfaceDistal, SurfaceBuccal, SurfaceLingual:
		return Surface(strings.ToUpper(s)), nil
	case "V":
		return SurfaceBuccal, nil
	case "P":
		return SurfaceLingual, nil
	}
	return "", fmt.Errorf("unknown tooth surface %q", s)
}

// Snapshot is the serialized chart: tooth code to surface to status name.
// Surfaces at their Healthy default are never materialized, so an empty
// snapshot and an all-healthy chart are the same state.
type Snapshot map[string]map[Surface]Status

// Chart holds the per-surface status of every tooth in one dentition scheme
// for one patient. It is the in-memory working copy; persistence happens
// only through an explicit whole-snapshot save.
type Chart struct {
	scheme   fdi.Scheme
	extended bool
	entries  map[string]map[Surface]Status
}

// NewChart returns an all-healthy chart for the scheme. When extended is
// true the crown, endodontic and extraction-indicated statuses are accepted
// by Set and Load.
func NewChart(scheme fdi.Scheme, extended bool) *Chart {
	return &Chart{
		scheme:   scheme,
		extended: extended,
		entries:  make(map[string]map[Surface]Status),
	}
}

// Scheme returns the dentition scheme the chart was built for.
func (c *Chart) Scheme() fdi.Scheme { return c.scheme }

// Status returns the current status of a surface. Surfaces never explicitly
// set read as Healthy.
func (c *Chart) Status(tooth string, surface Surface) (Status, error) {
	if err := fdi.Check(c.scheme, tooth); err != nil {
		return "", err
	}
	if m := c.entries[tooth]; m != nil {
		if st, ok := m[surface]; ok {
			return st, nil
		}
	}
	return StatusHealthy, nil
}

// Cycle advances a surface to the next status in the click rotation and
// returns the new status.
func (c *Chart) Cycle(tooth string, surface Surface) (Status, error) {
	cur, err := c.Status(tooth, surface)
	if err != nil {
		return "", err
	}
	next := nextInCycle(cur)
	if err := c.Set(tooth, surface, next); err != nil {
		return "", err
	}
	return next, nil
}

func nextInCycle(cur Status) Status {
	for i, st := range cycleOrder {
		if st == cur {
			return cycleOrder[(i+1)%len(cycleOrder)]
		}
	}
	return StatusHealthy
}

// Set assigns a status to one surface. Setting Healthy removes the stored
// entry, keeping the snapshot free of default values.
func (c *Chart) Set(tooth string, surface Surface, status Status) error {
	if err := fdi.Check(c.scheme, tooth); err != nil {
		return err
	}
	if !validSurfaces[surface] {
		return fmt.Errorf("unknown tooth surface %q", surface)
	}
	if !coreStatuses[status] && !(c.extended && extendedOnlyStatuses[status]) {
		return fmt.Errorf("unknown tooth status %q", status)
	}

	if status == StatusHealthy {
		if m := c.entries[tooth]; m != nil {
			delete(m, surface)
			if len(m) == 0 {
				delete(c.entries, tooth)
			}
		}
		return nil
	}

	m := c.entries[tooth]
	if m == nil {
		m = make(map[Surface]Status)
		c.entries[tooth] = m
	}
	m[surface] = status
	return nil
}

// ApplyToTooth assigns one status to every surface of a tooth.
func (c *Chart) ApplyToTooth(tooth string, status Status) error {
	if err := fdi.Check(c.scheme, tooth); err != nil {
		return err
	}
	if !coreStatuses[status] && !(c.extended && extendedOnlyStatuses[status]) {
		return fmt.Errorf("unknown tooth status %q", status)
	}
	for _, surface := range surfaceOrder {
		if err := c.Set(tooth, surface, status); err != nil {
			return err
		}
	}
	return nil
}

// ClearTooth resets every surface of a tooth to Healthy.
func (c *Chart) ClearTooth(tooth string) error {
	if err := fdi.Check(c.scheme, tooth); err != nil {
		return err
	}
	delete(c.entries, tooth)
	return nil
}

// ToothState returns the effective status of all five surfaces of a tooth,
// Healthy included, for repainting.
func (c *Chart) ToothState(tooth string) (map[Surface]Status, error) {
	if err := fdi.Check(c.scheme, tooth); err != nil {
		return nil, err
	}
	state := make(map[Surface]Status, len(surfaceOrder))
	for _, surface := range surfaceOrder {
		st, _ := c.Status(tooth, surface)
		state[surface] = st
	}
	return state, nil
}

// Snapshot serializes the chart. Only non-Healthy surfaces appear; the
// round trip through Load is lossless for every set entry.
func (c *Chart) Snapshot() Snapshot {
	snap := make(Snapshot, len(c.entries))
	for tooth, m := range c.entries {
		cp := make(map[Surface]Status, len(m))
		for surface, st := range m {
			cp[surface] = st
		}
		snap[tooth] = cp
	}
	return snap
}

// Load replaces the working copy with the snapshot contents. Tooth codes,
// surfaces and status names are validated strictly; on any failure the
// chart keeps its prior state.
func (c *Chart) Load(snap Snapshot) error {
	entries := make(map[string]map[Surface]Status, len(snap))
	for tooth, m := range snap {
		if err := fdi.Check(c.scheme, tooth); err != nil {
			return err
		}
		for surface, status := range m {
			if !validSurfaces[surface] {
				return fmt.Errorf("tooth %s: unknown surface %q", tooth, surface)
			}
			if !coreStatuses[status] && !(c.extended && extendedOnlyStatuses[status]) {
				return fmt.Errorf("tooth %s: unknown status %q", tooth, status)
			}
			if status == StatusHealthy {
				continue
			}
			dst := entries[tooth]
			if dst == nil {
				dst = make(map[Surface]Status)
				entries[tooth] = dst
			}
			dst[surface] = status
		}
	}
	c.entries = entries
	return nil
}
