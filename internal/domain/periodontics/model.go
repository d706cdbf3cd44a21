package periodontics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// Layout selects the site vocabulary charted around each tooth. The two
// layouts share one record type; only the site list differs.
type Layout string

const (
	// LayoutSixSite probes six positions per tooth.
	LayoutSixSite Layout = "six_site"
	// LayoutTwoFace records one buccal and one lingual reading per tooth.
	LayoutTwoFace Layout = "two_face"
)

var (
	sixSiteOrder = []string{"MB", "B", "DB", "ML", "L", "DL"}
	twoFaceOrder = []string{"B", "L"}
)

// ParseLayout converts a string into a Layout.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutSixSite:
		return LayoutSixSite, nil
	case LayoutTwoFace:
		return LayoutTwoFace, nil
	}
	return "", fmt.Errorf("unknown periodontal layout %q", s)
}

// Sites returns the site codes of a layout in chart order.
func Sites(l Layout) []string {
	if l == LayoutTwoFace {
		return append([]string(nil), twoFaceOrder...)
	}
	return append([]string(nil), sixSiteOrder...)
}

func validSite(l Layout, site string) bool {
	for _, s := range Sites(l) {
		if s == site {
			return true
		}
	}
	return false
}

// MMValue is a millimeter reading that keeps "no reading taken" (N/A) apart
// from an explicit zero. It marshals to the literal string "N/A" when no
// reading exists and to a plain number otherwise.
type MMValue struct {
	Valid bool
	MM    float64
}

// MM wraps an explicit reading.
func MM(v float64) MMValue { return MMValue{Valid: true, MM: v} }

// NA is the no-reading sentinel.
func NA() MMValue { return MMValue{} }

func (v MMValue) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.FormatFloat(v.MM, 'f', -1, 64)), nil
}

func (v *MMValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"N/A"`)) {
		*v = NA()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("millimeter value %s is neither a number nor \"N/A\"", data)
	}
	*v = MM(f)
	return nil
}

// Measurement is the clinical record of one periodontal site.
type Measurement struct {
	Tooth           string  `db:"tooth" json:"tooth"`
	Site            string  `db:"site" json:"site"`
	ProbingDepth    float64 `db:"ps" json:"ps"`
	GingivalMargin  float64 `db:"mg" json:"mg"`
	AttachmentLevel MMValue `db:"ni" json:"ni"`
	Bleeding        bool    `db:"bleeding" json:"bleeding"`
	Suppuration     bool    `db:"suppuration" json:"suppuration"`
	Mobility        int     `db:"mobility" json:"mobility"`
	Furcation       string  `db:"furcation" json:"furcation,omitempty"`
	Note            string  `db:"note" json:"note,omitempty"`
}

// EffectiveAttachment returns the attachment level used clinically: the
// explicit reading when one exists, otherwise probing depth minus gingival
// margin.
func (m *Measurement) EffectiveAttachment() float64 {
	if m.AttachmentLevel.Valid {
		return m.AttachmentLevel.MM
	}
	return m.ProbingDepth - m.GingivalMargin
}

func defaultMeasurement(tooth, site string) *Measurement {
	return &Measurement{Tooth: tooth, Site: site, AttachmentLevel: NA()}
}

// Input carries the raw text a form submits for one site. Numeric fields
// stay strings here so validation can name the offending tooth and field;
// an empty string means the field was left at its default.
type Input struct {
	ProbingDepth    string `json:"ps"`
	GingivalMargin  string `json:"mg"`
	AttachmentLevel string `json:"ni"`
	Mobility        string `json:"mov"`
	Bleeding        bool   `json:"bleeding"`
	Suppuration     bool   `json:"suppuration"`
	Furcation       string `json:"furcation"`
	Note            string `json:"note"`
}

// Grid holds the working copy of one patient's periodontogram: every
// tooth of the scheme crossed with every site of the layout, complete by
// construction. Cells never appear or disappear; they only change value.
type Grid struct {
	scheme fdi.Scheme
	layout Layout
	cells  map[string]map[string]*Measurement
}

// NewGrid builds a grid with every cell at its defaults: depths zero,
// attachment level N/A, flags false, mobility zero.
func NewGrid(scheme fdi.Scheme, layout Layout) *Grid {
	g := &Grid{
		scheme: scheme,
		layout: layout,
		cells:  make(map[string]map[string]*Measurement),
	}
	for _, tooth := range fdi.Teeth(scheme) {
		row := make(map[string]*Measurement)
		for _, site := range Sites(layout) {
			row[site] = defaultMeasurement(tooth, site)
		}
		g.cells[tooth] = row
	}
	return g
}

// Scheme returns the dentition scheme the grid covers.
func (g *Grid) Scheme() fdi.Scheme { return g.scheme }

// Layout returns the active site vocabulary.
func (g *Grid) Layout() Layout { return g.layout }

// SiteCount returns the number of cells in the grid.
func (g *Grid) SiteCount() int {
	return len(fdi.Teeth(g.scheme)) * len(Sites(g.layout))
}

func (g *Grid) cell(tooth, site string) (*Measurement, error) {
	if err := fdi.Check(g.scheme, tooth); err != nil {
		return nil, err
	}
	if !validSite(g.layout, site) {
		return nil, fmt.Errorf("unknown site %q for layout %s", site, g.layout)
	}
	return g.cells[tooth][site], nil
}

// Measurement returns a copy of one cell.
func (g *Grid) Measurement(tooth, site string) (Measurement, error) {
	m, err := g.cell(tooth, site)
	if err != nil {
		return Measurement{}, err
	}
	return *m, nil
}

// SetMeasurement validates the submitted fields and replaces one cell.
// Validation completes before anything is applied, so a rejected input
// leaves the cell exactly as it was.
func (g *Grid) SetMeasurement(tooth, site string, in Input) (Measurement, error) {
	cur, err := g.cell(tooth, site)
	if err != nil {
		return Measurement{}, err
	}

	ps, err := parseMM(tooth, site, "ps", in.ProbingDepth)
	if err != nil {
		return Measurement{}, err
	}
	if ps < 0 {
		return Measurement{}, &InvalidMeasurementError{Tooth: tooth, Site: site, Field: "ps", Value: in.ProbingDepth}
	}
	mg, err := parseMM(tooth, site, "mg", in.GingivalMargin)
	if err != nil {
		return Measurement{}, err
	}
	ni, err := parseNI(tooth, site, in.AttachmentLevel)
	if err != nil {
		return Measurement{}, err
	}
	mov, err := parseMobility(tooth, site, in.Mobility)
	if err != nil {
		return Measurement{}, err
	}

	*cur = Measurement{
		Tooth:           tooth,
		Site:            site,
		ProbingDepth:    ps,
		GingivalMargin:  mg,
		AttachmentLevel: ni,
		Bleeding:        in.Bleeding,
		Suppuration:     in.Suppuration,
		Mobility:        mov,
		Furcation:       strings.TrimSpace(in.Furcation),
		Note:            strings.TrimSpace(in.Note),
	}
	return *cur, nil
}

func parseMM(tooth, site, field, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidMeasurementError{Tooth: tooth, Site: site, Field: field, Value: value}
	}
	return f, nil
}

func parseNI(tooth, site, value string) (MMValue, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return NA(), nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return NA(), &InvalidMeasurementError{Tooth: tooth, Site: site, Field: "ni", Value: value}
	}
	return MM(f), nil
}

func parseMobility(tooth, site, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 3 {
		return 0, &InvalidMeasurementError{Tooth: tooth, Site: site, Field: "mov", Value: value}
	}
	return n, nil
}

// Put stores an already-typed measurement after membership and range
// checks. It serves bulk replaces where values arrive parsed.
func (g *Grid) Put(m Measurement) error {
	cur, err := g.cell(m.Tooth, m.Site)
	if err != nil {
		return err
	}
	if m.ProbingDepth < 0 || math.IsNaN(m.ProbingDepth) || math.IsInf(m.ProbingDepth, 0) {
		return &InvalidMeasurementError{Tooth: m.Tooth, Site: m.Site, Field: "ps", Value: strconv.FormatFloat(m.ProbingDepth, 'f', -1, 64)}
	}
	if m.Mobility < 0 || m.Mobility > 3 {
		return &InvalidMeasurementError{Tooth: m.Tooth, Site: m.Site, Field: "mov", Value: strconv.Itoa(m.Mobility)}
	}
	*cur = m
	return nil
}

// Clear resets every site of one tooth to the defaults. N/A attachment
// levels stay N/A, not zero.
func (g *Grid) Clear(tooth string) error {
	if err := fdi.Check(g.scheme, tooth); err != nil {
		return err
	}
	for _, site := range Sites(g.layout) {
		g.cells[tooth][site] = defaultMeasurement(tooth, site)
	}
	return nil
}

// ClearAll resets the whole grid to defaults.
func (g *Grid) ClearAll() {
	for _, tooth := range fdi.Teeth(g.scheme) {
		g.Clear(tooth)
	}
}

// All returns a copy of every cell in chart order: teeth in row order,
// sites in layout order. The slice always covers the full grid.
func (g *Grid) All() []Measurement {
	out := make([]Measurement, 0, g.SiteCount())
	for _, tooth := range fdi.Teeth(g.scheme) {
		for _, site := range Sites(g.layout) {
			out = append(out, *g.cells[tooth][site])
		}
	}
	return out
}

// Load hydrates the grid from stored rows. Rows for teeth outside the
// scheme or sites outside the active layout are skipped so a layout change
// does not strand old data behind an error.
func (g *Grid) Load(records []Measurement) {
	for _, m := range records {
		if !fdi.Valid(g.scheme, m.Tooth) || !validSite(g.layout, m.Site) {
			continue
		}
		cp := m
		g.cells[m.Tooth][m.Site] = &cp
	}
}

// Metrics are the whole-mouth aggregates shown above the grid. A metric
// without data renders as "N/A"; plaque is never computed here.
type Metrics struct {
	SiteCount           int
	MeanProbingDepth    *float64
	MeanAttachmentLevel *float64
	BleedingPercent     *float64
	PlaquePercent       *float64
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"site_count":   m.SiteCount,
		"mean_ps":      metricValue(m.MeanProbingDepth),
		"mean_ni":      metricValue(m.MeanAttachmentLevel),
		"bleeding_pct": metricValue(m.BleedingPercent),
		"plaque_pct":   metricValue(m.PlaquePercent),
	}
	return json.Marshal(out)
}

func metricValue(v *float64) interface{} {
	if v == nil {
		return "N/A"
	}
	return *v
}

// Metrics aggregates every cell of the grid: untouched cells count with
// their defaults, and N/A attachment levels contribute their derived
// ps - mg value rather than being excluded.
func (g *Grid) Metrics() Metrics {
	count := g.SiteCount()
	m := Metrics{SiteCount: count}
	if count == 0 {
		return m
	}

	var sumPS, sumNI float64
	bleeding := 0
	for _, tooth := range fdi.Teeth(g.scheme) {
		for _, site := range Sites(g.layout) {
			cell := g.cells[tooth][site]
			sumPS += cell.ProbingDepth
			sumNI += cell.EffectiveAttachment()
			if cell.Bleeding {
				bleeding++
			}
		}
	}

	meanPS := round2(sumPS / float64(count))
	meanNI := round2(sumNI / float64(count))
	bleedPct := round2(100 * float64(bleeding) / float64(count))
	m.MeanProbingDepth = &meanPS
	m.MeanAttachmentLevel = &meanNI
	m.BleedingPercent = &bleedPct
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
