package model

// Page is one ordered unit of extracted content.
type Page struct {
	Index    int       `json:"index"`
	Text     string    `json:"text"`
	Elements []Element `json:"elements,omitempty"`
}

// AddElement adds an element to the page
func (p *Page) AddElement(elem Element) {
	p.Elements = append(p.Elements, elem)
}

// BodyPage is a page as produced by an extractor, before indexes are
// assigned.
type BodyPage struct {
	Text     string
	Elements []Element
}
