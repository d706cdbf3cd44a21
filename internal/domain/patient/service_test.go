package patient

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockPatientRepo struct {
	patients  map[uuid.UUID]*Patient
	histories map[uuid.UUID]*MedicalHistory
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients:  make(map[uuid.UUID]*Patient),
		histories: make(map[uuid.UUID]*MedicalHistory),
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByDocument(_ context.Context, document string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Document == document {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(m.patients), nil
}

func (m *mockPatientRepo) Search(_ context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	q = strings.ToLower(q)
	var items []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.FirstName), q) ||
			strings.Contains(strings.ToLower(p.LastName), q) ||
			strings.Contains(strings.ToLower(p.Document), q) {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) GetHistory(_ context.Context, patientID uuid.UUID) (*MedicalHistory, error) {
	h, ok := m.histories[patientID]
	if !ok {
		return &MedicalHistory{PatientID: patientID}, nil
	}
	cp := *h
	return &cp, nil
}

func (m *mockPatientRepo) SaveHistory(_ context.Context, h *MedicalHistory) error {
	cp := *h
	m.histories[h.PatientID] = &cp
	return nil
}

func newTestService() (*Service, *mockPatientRepo) {
	repo := newMockPatientRepo()
	return NewService(repo, DocumentDigits, "US"), repo
}

func strPtr(s string) *string { return &s }

func TestCreate_NormalizesPhone(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{
		Document:  "30123456",
		FirstName: "Ana",
		LastName:  "Suarez",
		Phone:     strPtr("(650) 253-0000"),
	}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Phone == nil || *p.Phone != "+16502530000" {
		t.Fatalf("phone should be stored in E.164, got %v", p.Phone)
	}
	if p.ID == uuid.Nil {
		t.Fatal("create should assign an id")
	}
}

func TestCreate_RejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{
		Document:  "30123456",
		FirstName: "Ana",
		LastName:  "Suarez",
		Phone:     strPtr("123"),
	}
	if err := svc.Create(context.Background(), p); err == nil {
		t.Fatal("a number too short for the region should be rejected")
	}
}

func TestCreate_DocumentFormat(t *testing.T) {
	digits, _ := newTestService()
	bad := &Patient{Document: "AB-1234", FirstName: "Ana", LastName: "Suarez"}
	if err := digits.Create(context.Background(), bad); err == nil {
		t.Fatal("letters should not pass the digits format")
	}
	short := &Patient{Document: "123", FirstName: "Ana", LastName: "Suarez"}
	if err := digits.Create(context.Background(), short); err == nil {
		t.Fatal("a three digit document should be rejected")
	}

	alnum := NewService(newMockPatientRepo(), DocumentAlphanumeric, "US")
	passport := &Patient{Document: "AB-1234", FirstName: "Ana", LastName: "Suarez"}
	if err := alnum.Create(context.Background(), passport); err != nil {
		t.Fatalf("alphanumeric format should accept passport ids: %v", err)
	}
}

func TestCreate_DuplicateDocument(t *testing.T) {
	svc, _ := newTestService()
	first := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := &Patient{Document: "30123456", FirstName: "Beto", LastName: "Rivas"}
	if err := svc.Create(context.Background(), second); !errors.Is(err, ErrDuplicateDocument) {
		t.Fatalf("expected ErrDuplicateDocument, got %v", err)
	}
}

func TestCreate_RequiresNames(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{Document: "30123456", FirstName: "  ", LastName: "Suarez"}
	if err := svc.Create(context.Background(), p); err == nil {
		t.Fatal("blank first name should be rejected")
	}
}

func TestCreate_RejectsInvalidEmail(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez", Email: strPtr("not-an-email")}
	if err := svc.Create(context.Background(), p); err == nil {
		t.Fatal("malformed email should be rejected")
	}
}

func TestUpdate_KeepingOwnDocument(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.LastName = "Suarez Paz"
	if err := svc.Update(context.Background(), p); err != nil {
		t.Fatalf("updating without changing the document should pass: %v", err)
	}
}

func TestUpdate_DocumentTakenByAnother(t *testing.T) {
	svc, _ := newTestService()
	ana := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	beto := &Patient{Document: "28999888", FirstName: "Beto", LastName: "Rivas"}
	for _, p := range []*Patient{ana, beto} {
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	beto.Document = ana.Document
	if err := svc.Update(context.Background(), beto); !errors.Is(err, ErrDuplicateDocument) {
		t.Fatalf("expected ErrDuplicateDocument, got %v", err)
	}
}

func TestFind_BlankQueryLists(t *testing.T) {
	svc, _ := newTestService()
	for _, doc := range []string{"30123456", "28999888"} {
		p := &Patient{Document: doc, FirstName: "Ana", LastName: "Suarez"}
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.Find(context.Background(), "  ", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected both patients, got %d/%d", len(items), total)
	}
}

func TestFind_SearchByDocumentFragment(t *testing.T) {
	svc, _ := newTestService()
	ana := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	beto := &Patient{Document: "28999888", FirstName: "Beto", LastName: "Rivas"}
	for _, p := range []*Patient{ana, beto} {
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.Find(context.Background(), "3012", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].Document != "30123456" {
		t.Fatalf("expected only the matching patient, got %d results", total)
	}
}

func TestHistory_RequiresPatient(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.History(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistory_EmptyUntilSaved(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := svc.History(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Conditions) != 0 || len(h.Extra) != 0 {
		t.Fatalf("expected an empty sheet, got %+v", h)
	}
}

func TestSaveHistory_ReplacesWhole(t *testing.T) {
	svc, _ := newTestService()
	p := &Patient{Document: "30123456", FirstName: "Ana", LastName: "Suarez"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := &MedicalHistory{
		Conditions: []string{"asthma"},
		Allergies:  []string{"penicillin"},
		Extra:      map[string]interface{}{"anticoagulants": true},
	}
	if err := svc.SaveHistory(context.Background(), p.ID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := &MedicalHistory{
		Conditions: []string{"asthma", "diabetes"},
		Extra:      map[string]interface{}{"diabetes": true},
	}
	if err := svc.SaveHistory(context.Background(), p.ID, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := svc.History(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Allergies) != 0 {
		t.Fatal("save replaces the sheet, allergies from the first save should be gone")
	}
	if h.Extra["diabetes"] != true || h.Extra["anticoagulants"] != nil {
		t.Fatalf("extras should come from the latest save, got %+v", h.Extra)
	}
	if h.UpdatedAt.IsZero() {
		t.Fatal("save should stamp the sheet")
	}
}

func TestSaveHistory_RequiresPatient(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SaveHistory(context.Background(), uuid.New(), &MedicalHistory{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
