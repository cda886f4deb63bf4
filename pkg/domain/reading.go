package domain

import (
	"slices"
	"strings"
	"time"
)

// Placeholder texts used when the interpreter cannot be reached.
const (
	PlaceholderSummary     = "An error occurred while interpreting the runes. Please check your API key and network connection, then try again."
	PlaceholderRuneSummary = "Could not retrieve interpretation."
	PlaceholderQuestion    = "How can you approach this situation with a fresh perspective?"

	PlaceholderAnalysisSummary = "There was an issue connecting to the analysis service. Please check your API key and try again."
	PlaceholderAnalysisTheme   = "Could not analyze patterns due to an error."
)

// RuneInterpretation is the interpreter's reading of one drawn rune.
type RuneInterpretation struct {
	RuneName    string      `json:"rune_name" validate:"required"`
	Orientation Orientation `json:"orientation"`
	Summary     string      `json:"summary" validate:"required"`
}

// Interpretation is the structured narrative returned for a set of selections.
// IndividualRunes is matched to selections by name, never by position.
type Interpretation struct {
	IndividualRunes []RuneInterpretation `json:"individual_runes" validate:"dive"`
	Summary         string               `json:"summary" validate:"required"`
	Questions       []string             `json:"questions"`

	// Degraded marks the placeholder substituted after a gateway failure.
	Degraded bool `json:"degraded,omitempty"`
}

// DegradedInterpretation builds the stand-in rendered when the interpreter fails.
func DegradedInterpretation(runes []SelectedRune) Interpretation {
	individual := make([]RuneInterpretation, len(runes))
	for i, r := range runes {
		individual[i] = RuneInterpretation{
			RuneName:    r.RuneName,
			Orientation: r.Orientation,
			Summary:     PlaceholderRuneSummary,
		}
	}
	return Interpretation{
		IndividualRunes: individual,
		Summary:         PlaceholderSummary,
		Questions:       []string{PlaceholderQuestion},
		Degraded:        true,
	}
}

// Clone returns a deep copy.
func (i Interpretation) Clone() Interpretation {
	out := i
	out.IndividualRunes = append([]RuneInterpretation(nil), i.IndividualRunes...)
	out.Questions = append([]string(nil), i.Questions...)
	return out
}

// ReadingRecord is a completed reading as persisted in history.
type ReadingRecord struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Spread         Spread         `json:"spread"`
	Runes          []SelectedRune `json:"runes"`
	Interpretation Interpretation `json:"interpretation"`
}

// FrequentRune is one entry of a pattern analysis.
type FrequentRune struct {
	RuneName       string `json:"rune_name" validate:"required"`
	Count          int    `json:"count" validate:"gte=0"`
	Interpretation string `json:"interpretation"`
}

// PatternAnalysis summarizes recurring patterns across the reading history.
type PatternAnalysis struct {
	FrequentRunes   []FrequentRune `json:"frequent_runes" validate:"dive"`
	RecurringThemes []string       `json:"recurring_themes"`
	OverallSummary  string         `json:"overall_summary" validate:"required"`
	Degraded        bool           `json:"degraded,omitempty"`
}

// DegradedAnalysis is returned when the analysis gateway fails.
func DegradedAnalysis() PatternAnalysis {
	return PatternAnalysis{
		FrequentRunes:   []FrequentRune{},
		RecurringThemes: []string{PlaceholderAnalysisTheme},
		OverallSummary:  PlaceholderAnalysisSummary,
		Degraded:        true,
	}
}

// SortNewestFirst orders records by CreatedAt descending, breaking ties by ID.
func SortNewestFirst(records []ReadingRecord) {
	slices.SortStableFunc(records, func(a, b ReadingRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

// Clone returns a deep copy of the record.
func (r ReadingRecord) Clone() ReadingRecord {
	out := r
	out.Runes = slices.Clone(r.Runes)
	out.Interpretation = r.Interpretation.Clone()
	return out
}
