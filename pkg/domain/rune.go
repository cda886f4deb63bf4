package domain

import "fmt"

// Orientation is the state of a drawn rune.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// ParseOrientation accepts "upright"/"reversed" and their one-letter forms.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "upright", "u", "up":
		return Upright, nil
	case "reversed", "r", "rev":
		return Reversed, nil
	}
	return "", fmt.Errorf("invalid orientation %q", s)
}

// Rune is a catalog entry. Immutable once loaded.
type Rune struct {
	Name             string   `json:"name" yaml:"name"`
	Symbol           string   `json:"symbol" yaml:"symbol"`
	Keywords         []string `json:"keywords" yaml:"keywords"`
	Meaning          string   `json:"meaning" yaml:"meaning"`
	ReversedKeywords []string `json:"reversed_keywords,omitempty" yaml:"reversed_keywords"`
	ReversedMeaning  string   `json:"reversed_meaning" yaml:"reversed_meaning"`
}

// Reversible reports whether the rune reads differently when reversed.
// Symmetric runes (Gebo, Isa, ...) carry the same meaning both ways.
func (r Rune) Reversible() bool {
	return r.Meaning != r.ReversedMeaning
}

// MeaningFor returns the meaning matching the orientation.
func (r Rune) MeaningFor(o Orientation) string {
	if o == Reversed {
		return r.ReversedMeaning
	}
	return r.Meaning
}

// KeywordsFor returns the keywords matching the orientation.
func (r Rune) KeywordsFor(o Orientation) []string {
	if o == Reversed && len(r.ReversedKeywords) > 0 {
		return r.ReversedKeywords
	}
	return r.Keywords
}

// Spread is a named layout. RuneCount may be zero (completes immediately).
type Spread struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	RuneCount   int    `json:"rune_count" yaml:"rune_count"`
}

// SelectedRune is a rune placed in the spread. Its index in a selection
// slice is its position within the spread.
type SelectedRune struct {
	RuneName    string      `json:"rune_name"`
	Orientation Orientation `json:"orientation"`
}

func (s SelectedRune) String() string {
	return fmt.Sprintf("%s (%s)", s.RuneName, s.Orientation)
}
