package model

// Document is the parse result for a single file.
type Document struct {
	FullText  string             `json:"full_text"`
	Pages     []*Page            `json:"pages"`
	TimingsMS map[string]float64 `json:"timings_ms"`
	Metrics   map[string]any     `json:"metrics"`
}

// NewDocument creates an empty document. Pages is non-nil so that an empty
// result serializes as [] rather than null.
func NewDocument() *Document {
	return &Document{
		Pages:     make([]*Page, 0),
		TimingsMS: make(map[string]float64),
		Metrics:   make(map[string]any),
	}
}

// AddPage appends a page with the next index and returns it.
func (d *Document) AddPage(text string, elements ...Element) *Page {
	p := &Page{
		Index:    len(d.Pages),
		Text:     text,
		Elements: elements,
	}
	d.Pages = append(d.Pages, p)
	return p
}

// PageCount returns the total number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// IsEmpty reports whether the document has no text and no pages.
func (d *Document) IsEmpty() bool {
	return d.FullText == "" && len(d.Pages) == 0
}

// Elements returns every element of the given type across all pages.
func (d *Document) Elements(t ElementType) []Element {
	var out []Element
	for _, p := range d.Pages {
		for _, e := range p.Elements {
			if e.Type == t {
				out = append(out, e)
			}
		}
	}
	return out
}
