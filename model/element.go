package model

// ElementType identifies the variant of a page element.
type ElementType string

const (
	ElementTableHTML    ElementType = "table_html"
	ElementImageOCR     ElementType = "image_ocr"
	ElementImageCaption ElementType = "image_caption"
	ElementFields       ElementType = "fields"
)

func (et ElementType) String() string { return string(et) }

// Element is a structured sub-element attached to a page.
type Element struct {
	Type        ElementType `json:"type"`
	Description string      `json:"description"`
	Model       string      `json:"model,omitempty"`
}

// TableHTML returns a table element holding rendered HTML.
func TableHTML(html string) Element {
	return Element{Type: ElementTableHTML, Description: html}
}

// ImageOCR returns an element holding text recognized in an embedded image.
func ImageOCR(text string) Element {
	return Element{Type: ElementImageOCR, Description: text}
}

// ImageCaption returns a caption element produced by the named model.
func ImageCaption(text, model string) Element {
	return Element{Type: ElementImageCaption, Description: text, Model: model}
}

// Fields returns an element holding a JSON object of extracted fields.
func Fields(jsonMap string) Element {
	return Element{Type: ElementFields, Description: jsonMap}
}
