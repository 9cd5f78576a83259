package dicom

// PersonName is the PS3.18 JSON representation of a PN value: up to three
// component groups, each in caret-delimited DICOM form.
type PersonName struct {
	Alphabetic  string `json:"Alphabetic,omitempty"`
	Ideographic string `json:"Ideographic,omitempty"`
	Phonetic    string `json:"Phonetic,omitempty"`
}

// Flat returns the value used for matching. Per PS3.18 the alphabetic group
// is the primary representation.
func (p PersonName) Flat() string {
	if p.Alphabetic != "" {
		return p.Alphabetic
	}
	if p.Ideographic != "" {
		return p.Ideographic
	}
	return p.Phonetic
}
