package models

// Trope is one named literary pattern from the corpus. Immutable after load.
type Trope struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TropeSampleSource tags how a TropeSample was drawn.
type TropeSampleSource string

const (
	TropeSampleRandom TropeSampleSource = "random"
	TropeSampleSearch TropeSampleSource = "search"
	TropeSampleMedia  TropeSampleSource = "media"
)

// TropeSample is an ordered draw of tropes plus its provenance. Used for
// prompt injection and as a pool for dice fate modifiers.
type TropeSample struct {
	Tropes []Trope           `json:"tropes"`
	Source TropeSampleSource `json:"source"`
}
