package odontogram

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// OpKind names a chart operation requested by the presentation layer.
type OpKind string

const (
	OpCycle      OpKind = "cycle"
	OpSet        OpKind = "set"
	OpApplyTooth OpKind = "apply_tooth"
	OpClearTooth OpKind = "clear_tooth"
)

// Operation is one chart mutation: a click (cycle), an explicit assignment,
// a whole-tooth apply, or a tooth clear.
type Operation struct {
	Kind    OpKind `json:"op"`
	Tooth   string `json:"tooth"`
	Surface string `json:"surface,omitempty"`
	Status  string `json:"status,omitempty"`
}

// OpResult carries the post-operation state of the touched tooth so the
// caller can repaint it without re-reading the whole chart.
type OpResult struct {
	Tooth    string             `json:"tooth"`
	Surfaces map[Surface]Status `json:"surfaces"`
}

// Service owns chart load, mutation and save. Every mutating call runs the
// full flow: hydrate working copy, apply the validated mutation, persist the
// whole snapshot atomically.
type Service struct {
	repo     Repository
	extended bool
}

// NewService creates the odontogram service. extended enables the crown,
// endodontic and extraction-indicated statuses.
func NewService(repo Repository, extended bool) *Service {
	return &Service{repo: repo, extended: extended}
}

// ExtendedStatuses reports whether the extended status vocabulary is active.
func (s *Service) ExtendedStatuses() bool { return s.extended }

// Load hydrates the patient's chart for the scheme, or returns a fresh
// all-healthy chart when nothing was saved yet.
func (s *Service) Load(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme) (*Chart, error) {
	if patientID == uuid.Nil {
		return nil, ErrNoPatient
	}

	snap, err := s.repo.LoadSnapshot(ctx, patientID, scheme)
	if err != nil {
		return nil, &StoreError{Op: "load odontogram", Err: err}
	}

	chart := NewChart(scheme, s.extended)
	if len(snap) > 0 {
		if err := chart.Load(snap); err != nil {
			return nil, fmt.Errorf("hydrate odontogram: %w", err)
		}
	}
	return chart, nil
}

// Save persists the chart snapshot, replacing the prior one for the same
// patient and scheme.
func (s *Service) Save(ctx context.Context, patientID uuid.UUID, chart *Chart) error {
	if patientID == uuid.Nil {
		return ErrNoPatient
	}
	if err := s.repo.SaveSnapshot(ctx, patientID, chart.Scheme(), chart.Snapshot()); err != nil {
		return &StoreError{Op: "save odontogram", Err: err}
	}
	return nil
}

// Replace validates a client-supplied snapshot through a fresh chart and
// persists it.
func (s *Service) Replace(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme, snap Snapshot) (*Chart, error) {
	if patientID == uuid.Nil {
		return nil, ErrNoPatient
	}
	chart := NewChart(scheme, s.extended)
	if err := chart.Load(snap); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, patientID, chart); err != nil {
		return nil, err
	}
	return chart, nil
}

// Apply runs one chart operation end to end: load, mutate, save. The
// mutation is validated before anything persists; a rejected operation
// leaves the stored snapshot untouched.
func (s *Service) Apply(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme, op Operation) (*OpResult, error) {
	chart, err := s.Load(ctx, patientID, scheme)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case OpCycle:
		surface, err := ParseSurface(op.Surface)
		if err != nil {
			return nil, err
		}
		if _, err := chart.Cycle(op.Tooth, surface); err != nil {
			return nil, err
		}
	case OpSet:
		surface, err := ParseSurface(op.Surface)
		if err != nil {
			return nil, err
		}
		status, err := ParseStatus(op.Status, s.extended)
		if err != nil {
			return nil, err
		}
		if err := chart.Set(op.Tooth, surface, status); err != nil {
			return nil, err
		}
	case OpApplyTooth:
		status, err := ParseStatus(op.Status, s.extended)
		if err != nil {
			return nil, err
		}
		if err := chart.ApplyToTooth(op.Tooth, status); err != nil {
			return nil, err
		}
	case OpClearTooth:
		if err := chart.ClearTooth(op.Tooth); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown chart operation %q", op.Kind)
	}

	if err := s.Save(ctx, patientID, chart); err != nil {
		return nil, err
	}

	state, err := chart.ToothState(op.Tooth)
	if err != nil {
		return nil, err
	}
	return &OpResult{Tooth: op.Tooth, Surfaces: state}, nil
}
