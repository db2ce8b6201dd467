package entity

// Reference is the canonical form of one cited source document. The backend
// has shipped reference metadata both as a keyed object and as an array; the
// mapper package converts either shape into this struct.
type Reference struct {
	FileId   string
	CaseType string
	Score    float64
	Date     string
	Url      string
	Summary  string
	Text     string
}
