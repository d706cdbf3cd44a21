package periodontics

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

func TestNewGrid_CompleteByConstruction(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if g.SiteCount() != 192 {
		t.Fatalf("expected 32 teeth x 6 sites = 192 cells, got %d", g.SiteCount())
	}

	m, err := g.Measurement("16", "MB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 0 || m.GingivalMargin != 0 || m.Mobility != 0 {
		t.Fatalf("fresh cell should be zeroed, got %+v", m)
	}
	if m.AttachmentLevel.Valid {
		t.Fatal("fresh cell attachment level should be N/A")
	}
	if m.Bleeding || m.Suppuration {
		t.Fatal("fresh cell flags should be false")
	}
}

func TestNewGrid_TwoFaceLayout(t *testing.T) {
	g := NewGrid(fdi.SchemePrimary, LayoutTwoFace)
	if g.SiteCount() != 40 {
		t.Fatalf("expected 20 teeth x 2 sites = 40 cells, got %d", g.SiteCount())
	}
	if _, err := g.Measurement("55", "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Measurement("55", "MB"); err == nil {
		t.Fatal("MB should not exist in the two face layout")
	}
}

func TestSetMeasurement_DerivedAttachment(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	m, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "3.5", GingivalMargin: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.AttachmentLevel.Valid {
		t.Fatal("attachment level should stay N/A when not submitted")
	}
	if got := m.EffectiveAttachment(); got != 2.5 {
		t.Fatalf("derived attachment: expected 3.5 - 1 = 2.5, got %v", got)
	}
}

func TestSetMeasurement_ExplicitAttachmentWins(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	m, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "6", GingivalMargin: "1", AttachmentLevel: "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.AttachmentLevel.Valid || m.AttachmentLevel.MM != 2 {
		t.Fatalf("expected explicit attachment 2, got %+v", m.AttachmentLevel)
	}
	if got := m.EffectiveAttachment(); got != 2 {
		t.Fatalf("explicit reading should win over derivation, got %v", got)
	}
}

func TestSetMeasurement_EmptyFieldsDefault(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	m, err := g.SetMeasurement("21", "L", Input{Bleeding: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 0 || m.GingivalMargin != 0 || m.Mobility != 0 {
		t.Fatalf("empty numeric inputs should default to zero, got %+v", m)
	}
	if m.AttachmentLevel.Valid {
		t.Fatal("empty attachment input should stay N/A")
	}
	if !m.Bleeding {
		t.Fatal("bleeding flag lost")
	}
}

func TestSetMeasurement_ErrorNamesToothAndField(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	_, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "-1"})
	if err == nil {
		t.Fatal("negative probing depth should be rejected")
	}
	var invalid *InvalidMeasurementError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMeasurementError, got %T", err)
	}
	if invalid.Tooth != "16" || invalid.Site != "B" || invalid.Field != "ps" {
		t.Fatalf("error should name the offending cell and field, got %+v", invalid)
	}
}

func TestSetMeasurement_RejectsMalformedNumber(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	for _, in := range []Input{
		{ProbingDepth: "abc"},
		{GingivalMargin: "1..2"},
		{AttachmentLevel: "deep"},
		{ProbingDepth: "NaN"},
	} {
		if _, err := g.SetMeasurement("16", "B", in); err == nil {
			t.Fatalf("input %+v should have been rejected", in)
		}
	}
}

func TestSetMeasurement_MobilityRange(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if _, err := g.SetMeasurement("16", "B", Input{Mobility: "3"}); err != nil {
		t.Fatalf("mobility 3 is the top of the scale: %v", err)
	}
	for _, bad := range []string{"4", "-1", "two"} {
		if _, err := g.SetMeasurement("16", "B", Input{Mobility: bad}); err == nil {
			t.Fatalf("mobility %q should have been rejected", bad)
		}
	}
}

func TestSetMeasurement_InvalidLeavesCellUntouched(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if _, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "4", Bleeding: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "5", Mobility: "9"}); err == nil {
		t.Fatal("expected rejection")
	}

	m, err := g.Measurement("16", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 4 || !m.Bleeding {
		t.Fatalf("rejected input must not partially apply, got %+v", m)
	}
}

func TestSetMeasurement_UnknownSite(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if _, err := g.SetMeasurement("16", "XX", Input{}); err == nil {
		t.Fatal("unknown site should be rejected")
	}
}

func TestSetMeasurement_UnknownTooth(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	_, err := g.SetMeasurement("99", "B", Input{})
	var toothErr *fdi.InvalidToothError
	if !errors.As(err, &toothErr) {
		t.Fatalf("expected InvalidToothError, got %v", err)
	}
}

func TestMMValue_JSONDistinguishesNAFromZero(t *testing.T) {
	na, err := json.Marshal(NA())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(na) != `"N/A"` {
		t.Fatalf("N/A should marshal to the literal string, got %s", na)
	}

	zero, err := json.Marshal(MM(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(zero) != "0" {
		t.Fatalf("an explicit zero is a number, got %s", zero)
	}

	var v MMValue
	if err := json.Unmarshal([]byte(`"N/A"`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Valid {
		t.Fatal(`"N/A" should decode to the sentinel`)
	}
	if err := json.Unmarshal([]byte(`null`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Valid {
		t.Fatal("null should decode to the sentinel")
	}
	if err := json.Unmarshal([]byte(`2.5`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Valid || v.MM != 2.5 {
		t.Fatalf("expected 2.5, got %+v", v)
	}
	if err := json.Unmarshal([]byte(`"deep"`), &v); err == nil {
		t.Fatal("garbage should not decode")
	}
}

func TestClear_RestoresDefaults(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if _, err := g.SetMeasurement("16", "B", Input{ProbingDepth: "5", AttachmentLevel: "3", Bleeding: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Clear("16"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := g.Measurement("16", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 0 || m.Bleeding {
		t.Fatalf("clear should zero the cell, got %+v", m)
	}
	if m.AttachmentLevel.Valid {
		t.Fatal("cleared attachment level is N/A, not zero")
	}
}

func TestClearAll(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	for _, tooth := range []string{"16", "31", "48"} {
		if _, err := g.SetMeasurement(tooth, "B", Input{ProbingDepth: "4"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	g.ClearAll()
	for _, m := range g.All() {
		if m.ProbingDepth != 0 {
			t.Fatalf("cell %s/%s survived ClearAll", m.Tooth, m.Site)
		}
	}
}

func TestAll_ChartOrder(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	all := g.All()
	if len(all) != 192 {
		t.Fatalf("expected 192 cells, got %d", len(all))
	}
	if all[0].Tooth != "18" || all[0].Site != "MB" {
		t.Fatalf("first cell should be 18/MB, got %s/%s", all[0].Tooth, all[0].Site)
	}
	last := all[len(all)-1]
	if last.Tooth != "38" || last.Site != "DL" {
		t.Fatalf("last cell should be 38/DL, got %s/%s", last.Tooth, last.Site)
	}
}

func TestLoad_SkipsRowsOutsideSchemeOrLayout(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutTwoFace)
	g.Load([]Measurement{
		{Tooth: "16", Site: "B", ProbingDepth: 4},
		{Tooth: "55", Site: "B", ProbingDepth: 9},  // primary tooth
		{Tooth: "16", Site: "MB", ProbingDepth: 9}, // six site layout
	})

	m, err := g.Measurement("16", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 4 {
		t.Fatalf("valid row should load, got %+v", m)
	}
	for _, cell := range g.All() {
		if cell.ProbingDepth == 9 {
			t.Fatalf("row outside scheme or layout leaked in at %s/%s", cell.Tooth, cell.Site)
		}
	}
}

func TestMetrics_FreshGridCountsDefaults(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	m := g.Metrics()
	if m.SiteCount != 192 {
		t.Fatalf("expected 192 sites, got %d", m.SiteCount)
	}
	if m.MeanProbingDepth == nil || *m.MeanProbingDepth != 0 {
		t.Fatalf("fresh grid mean ps should be 0, got %v", m.MeanProbingDepth)
	}
	if m.MeanAttachmentLevel == nil || *m.MeanAttachmentLevel != 0 {
		t.Fatalf("fresh grid mean ni should be 0, got %v", m.MeanAttachmentLevel)
	}
	if m.BleedingPercent == nil || *m.BleedingPercent != 0 {
		t.Fatalf("fresh grid bleeding should be 0%%, got %v", m.BleedingPercent)
	}
	if m.PlaquePercent != nil {
		t.Fatal("plaque is never computed")
	}
}

func TestMetrics_Aggregates(t *testing.T) {
	g := NewGrid(fdi.SchemePrimary, LayoutTwoFace)
	if _, err := g.SetMeasurement("55", "B", Input{ProbingDepth: "4", GingivalMargin: "1", Bleeding: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.SetMeasurement("55", "L", Input{ProbingDepth: "2", AttachmentLevel: "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := g.Metrics()
	if m.SiteCount != 40 {
		t.Fatalf("expected 40 sites, got %d", m.SiteCount)
	}
	// 55/B contributes its derived 4 - 1 = 3; 55/L its explicit 2.
	if *m.MeanProbingDepth != 0.15 {
		t.Fatalf("mean ps: expected 6/40 = 0.15, got %v", *m.MeanProbingDepth)
	}
	if *m.MeanAttachmentLevel != 0.13 {
		t.Fatalf("mean ni: expected 5/40 rounded = 0.13, got %v", *m.MeanAttachmentLevel)
	}
	if *m.BleedingPercent != 2.5 {
		t.Fatalf("bleeding: expected 1/40 = 2.5%%, got %v", *m.BleedingPercent)
	}
}

func TestMetrics_JSONWithoutData(t *testing.T) {
	data, err := json.Marshal(Metrics{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"mean_ps", "mean_ni", "bleeding_pct", "plaque_pct"} {
		if out[key] != "N/A" {
			t.Fatalf("%s without data should render as N/A, got %v", key, out[key])
		}
	}
	if out["site_count"] != float64(0) {
		t.Fatalf("site_count should be 0, got %v", out["site_count"])
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	patientID := uuid.New()
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	// Gingival margin, mobility and note live at tooth level in the
	// document, so the charting form keeps them uniform across sites.
	perSite := map[string]Input{
		"MB": {ProbingDepth: "4", Bleeding: true},
		"B":  {ProbingDepth: "3"},
		"DB": {ProbingDepth: "3.5"},
		"ML": {ProbingDepth: "5", Suppuration: true},
		"L":  {ProbingDepth: "2", AttachmentLevel: "2.5"},
		"DL": {ProbingDepth: "3"},
	}
	for site, in := range perSite {
		in.GingivalMargin = "1"
		in.Mobility = "2"
		in.Note = "watch"
		if _, err := g.SetMeasurement("16", site, in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := g.SetMeasurement("31", "B", Input{ProbingDepth: "6"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := g.Export(patientID)
	if doc.Patient != patientID {
		t.Fatalf("document should carry the patient, got %s", doc.Patient)
	}
	if len(doc.Entries) != 32 {
		t.Fatalf("export covers every tooth, got %d entries", len(doc.Entries))
	}

	// Round trip through the wire encoding.
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if err := fresh.ApplyDocument(&decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(g.All(), fresh.All()) {
		t.Fatal("export then import should reproduce the grid")
	}
}

func TestApplyDocument_SkipsUnknownToothAndSite(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	doc := &Document{
		Patient: uuid.New(),
		Entries: []DocumentEntry{
			{Tooth: "99", Sites: []DocumentSite{{Site: "B", PS: 9}}},
			{Tooth: "16", Sites: []DocumentSite{
				{Site: "ZZ", PS: 9},
				{Site: "B", PS: 4},
			}},
		},
	}
	if err := g.ApplyDocument(doc); err != nil {
		t.Fatalf("unknown codes should be skipped, not fail: %v", err)
	}

	m, err := g.Measurement("16", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ProbingDepth != 4 {
		t.Fatalf("known site should have applied, got %+v", m)
	}
	for _, cell := range g.All() {
		if cell.ProbingDepth == 9 {
			t.Fatalf("skipped entry leaked in at %s/%s", cell.Tooth, cell.Site)
		}
	}
}

func TestPut_RejectsOutOfRange(t *testing.T) {
	g := NewGrid(fdi.SchemePermanent, LayoutSixSite)
	if err := g.Put(Measurement{Tooth: "16", Site: "B", ProbingDepth: -2}); err == nil {
		t.Fatal("negative probing depth should be rejected")
	}
	if err := g.Put(Measurement{Tooth: "16", Site: "B", Mobility: 4}); err == nil {
		t.Fatal("mobility above 3 should be rejected")
	}
	if err := g.Put(Measurement{Tooth: "16", Site: "B", ProbingDepth: 3, AttachmentLevel: NA()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
