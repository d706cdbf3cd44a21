package periodontics

import (
	"github.com/google/uuid"

	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

// Document is the interchange format for a whole periodontogram. Gingival
// margin, mobility and note ride at tooth level, matching the charting
// form; per-site readings nest under each tooth.
type Document struct {
	Patient uuid.UUID       `json:"patient"`
	Entries []DocumentEntry `json:"entries"`
}

// DocumentEntry carries one tooth of the document.
type DocumentEntry struct {
	Tooth    string         `json:"tooth"`
	MG       float64        `json:"mg"`
	Mobility int            `json:"mov"`
	Note     string         `json:"note"`
	Sites    []DocumentSite `json:"sites"`
}

// DocumentSite carries one probed site of a tooth.
type DocumentSite struct {
	Site        string  `json:"site"`
	PS          float64 `json:"ps"`
	NI          MMValue `json:"ni"`
	Bleeding    bool    `json:"bleeding"`
	Suppuration bool    `json:"suppuration"`
}

// Export serializes the full grid. Tooth-level fields are read from the
// tooth's first site, where the charting form keeps them uniform.
func (g *Grid) Export(patientID uuid.UUID) *Document {
	doc := &Document{Patient: patientID}
	sites := Sites(g.layout)
	for _, tooth := range fdi.Teeth(g.scheme) {
		first := g.cells[tooth][sites[0]]
		entry := DocumentEntry{
			Tooth:    tooth,
			MG:       first.GingivalMargin,
			Mobility: first.Mobility,
			Note:     first.Note,
		}
		for _, site := range sites {
			cell := g.cells[tooth][site]
			entry.Sites = append(entry.Sites, DocumentSite{
				Site:        site,
				PS:          cell.ProbingDepth,
				NI:          cell.AttachmentLevel,
				Bleeding:    cell.Bleeding,
				Suppuration: cell.Suppuration,
			})
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc
}

// ApplyDocument merges a document into the grid tooth by tooth. Unknown
// tooth codes and unknown site names are skipped without failing the rest
// of the document; tooth-level fields spread to every site of the tooth.
func (g *Grid) ApplyDocument(doc *Document) error {
	for _, entry := range doc.Entries {
		if !fdi.Valid(g.scheme, entry.Tooth) {
			continue
		}
		for _, site := range entry.Sites {
			if !validSite(g.layout, site.Site) {
				continue
			}
			cell := g.cells[entry.Tooth][site.Site]
			next := Measurement{
				Tooth:           entry.Tooth,
				Site:            site.Site,
				ProbingDepth:    site.PS,
				GingivalMargin:  entry.MG,
				AttachmentLevel: site.NI,
				Bleeding:        site.Bleeding,
				Suppuration:     site.Suppuration,
				Mobility:        entry.Mobility,
				Furcation:       cell.Furcation,
				Note:            entry.Note,
			}
			if err := g.Put(next); err != nil {
				return err
			}
		}
	}
	return nil
}
