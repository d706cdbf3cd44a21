package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.store {
		if a.PatientID == patientID {
			cp := *a
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.After(items[j].ScheduledAt) })
	return items, len(items), nil
}

func (m *mockAppointmentRepo) ListByDay(_ context.Context, day time.Time) ([]*Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var items []*Appointment
	for _, a := range m.store {
		if !a.ScheduledAt.Before(start) && a.ScheduledAt.Before(end) {
			cp := *a
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ScheduledAt.Before(items[j].ScheduledAt) })
	return items, nil
}

func newTestService() (*Service, *mockAppointmentRepo) {
	repo := newMockAppointmentRepo()
	return NewService(repo), repo
}

func TestCreate_DefaultsToScheduled(t *testing.T) {
	svc, _ := newTestService()
	a := &Appointment{
		PatientID:   uuid.New(),
		ScheduledAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Reason:      "control",
	}
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Fatalf("expected default status scheduled, got %s", a.Status)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	when := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	for _, a := range []*Appointment{
		{ScheduledAt: when, Reason: "control"},
		{PatientID: uuid.New(), Reason: "control"},
		{PatientID: uuid.New(), ScheduledAt: when, Reason: "  "},
		{PatientID: uuid.New(), ScheduledAt: when, Reason: "control", Status: "waiting"},
	} {
		if err := svc.Create(context.Background(), a); err == nil {
			t.Fatalf("appointment %+v should have been rejected", a)
		}
	}
}

func TestSetStatus(t *testing.T) {
	svc, _ := newTestService()
	a := &Appointment{
		PatientID:   uuid.New(),
		ScheduledAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Reason:      "extraction",
	}
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.SetStatus(context.Background(), a.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
	if updated.Reason != "extraction" {
		t.Fatal("status change should not touch the rest of the entry")
	}

	if _, err := svc.SetStatus(context.Background(), a.ID, "noshow"); err == nil {
		t.Fatal("unknown status should be rejected")
	}
	if _, err := svc.SetStatus(context.Background(), uuid.New(), StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAgenda_OnlyThatDay(t *testing.T) {
	svc, _ := newTestService()
	patientID := uuid.New()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{
		day.Add(9 * time.Hour),
		day.Add(15 * time.Hour),
		day.AddDate(0, 0, 1).Add(9 * time.Hour),
	} {
		a := &Appointment{PatientID: patientID, ScheduledAt: at, Reason: "control"}
		if err := svc.Create(context.Background(), a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, err := svc.Agenda(context.Background(), day.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 appointments on the day, got %d", len(items))
	}
	if !items[0].ScheduledAt.Before(items[1].ScheduledAt) {
		t.Fatal("agenda should be in time order")
	}
}

func TestListByPatient_NewestFirst(t *testing.T) {
	svc, _ := newTestService()
	patientID := uuid.New()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		a := &Appointment{PatientID: patientID, ScheduledAt: base.AddDate(0, 0, i), Reason: "control"}
		if err := svc.Create(context.Background(), a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.ListByPatient(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 appointments, got %d", total)
	}
	if !items[0].ScheduledAt.After(items[1].ScheduledAt) {
		t.Fatal("expected newest first")
	}
}
