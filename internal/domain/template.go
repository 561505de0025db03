package domain

// SectionType distinguishes generated text from image slots in a template.
type SectionType string

const (
	SectionText  SectionType = "text"
	SectionImage SectionType = "image"
)

// Section is one ordered slot of a structured description template.
type Section struct {
	Type     SectionType `json:"type"`
	Name     string      `json:"name"`
	Prompt   string      `json:"prompt,omitempty"`
	Optional bool        `json:"optional,omitempty"`
}

// Template is read-only reference data. A template with sections is
// structured; one carrying only Prompt is a legacy free-form template.
type Template struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	Prompt    string    `json:"prompt,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
}

// Structured reports whether the template carries an explicit section list.
func (t Template) Structured() bool {
	return len(t.Sections) > 0
}
