package session

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ReconciledRune pairs a selection with its interpretation summary.
type ReconciledRune struct {
	domain.SelectedRune
	Summary string `json:"summary"`

	// Matched is false when the interpretation had no entry for the rune.
	Matched bool `json:"matched"`
}

// Reconcile matches selections against the interpretation by rune name, never
// by index: interpreters may reorder their output. Unmatched selections get a
// placeholder summary.
func Reconcile(selections []domain.SelectedRune, interp domain.Interpretation) []ReconciledRune {
	byName := make(map[string]string, len(interp.IndividualRunes))
	for _, ir := range interp.IndividualRunes {
		key := strings.ToLower(strings.TrimSpace(ir.RuneName))
		if _, seen := byName[key]; !seen {
			byName[key] = ir.Summary
		}
	}

	out := make([]ReconciledRune, len(selections))
	for i, sel := range selections {
		summary, ok := byName[strings.ToLower(sel.RuneName)]
		if !ok || summary == "" {
			summary, ok = domain.PlaceholderRuneSummary, false
		}
		out[i] = ReconciledRune{SelectedRune: sel, Summary: summary, Matched: ok}
	}
	return out
}

// Align rewrites the per-rune entries of interp in selection order, with the
// selection's canonical name and orientation. An interpretation without
// questions gets the placeholder question.
func Align(selections []domain.SelectedRune, interp domain.Interpretation) domain.Interpretation {
	out := interp.Clone()
	if len(out.Questions) == 0 {
		out.Questions = []string{domain.PlaceholderQuestion}
	}
	rec := Reconcile(selections, interp)
	out.IndividualRunes = make([]domain.RuneInterpretation, len(rec))
	for i, r := range rec {
		out.IndividualRunes[i] = domain.RuneInterpretation{
			RuneName:    r.RuneName,
			Orientation: r.Orientation,
			Summary:     r.Summary,
		}
	}
	return out
}

// ValidateInterpretation checks an interpreter response against the request:
// required fields present, one entry per requested rune, same set of names.
func ValidateInterpretation(req ports.InterpretationRequest, interp domain.Interpretation) error {
	if err := validate.Struct(interp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedInterpretation, err)
	}
	if len(interp.IndividualRunes) != len(req.Runes) {
		return fmt.Errorf("%w: got %d rune entries, want %d",
			domain.ErrMalformedInterpretation, len(interp.IndividualRunes), len(req.Runes))
	}

	want := make(map[string]bool, len(req.Runes))
	for _, r := range req.Runes {
		want[strings.ToLower(r.RuneName)] = true
	}
	for _, ir := range interp.IndividualRunes {
		key := strings.ToLower(strings.TrimSpace(ir.RuneName))
		if !want[key] {
			return fmt.Errorf("%w: unexpected or repeated rune %q", domain.ErrMalformedInterpretation, ir.RuneName)
		}
		delete(want, key)
	}
	return nil
}
