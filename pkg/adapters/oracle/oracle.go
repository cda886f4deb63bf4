// Package oracle is an offline interpreter that composes readings from the
// catalog's own meanings. It needs no network and is deterministic, so the
// CLI falls back to it when no API key is configured.
package oracle

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
)

// positions names the slots of the built-in multi-rune spreads.
var positions = map[int][]string{
	3: {"What was", "What is", "What shall be"},
	5: {"The situation", "The challenge", "The path", "What to embrace", "The outcome"},
}

// Oracle implements ports.Interpreter and ports.PatternAnalyzer.
type Oracle struct {
	catalog *catalog.Catalog
}

// New creates an Oracle reading from cat. A nil catalog uses the built-ins.
func New(cat *catalog.Catalog) *Oracle {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Oracle{catalog: cat}
}

// Interpret builds one summary per rune and a narrative stitched from their
// keywords.
func (o *Oracle) Interpret(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Interpretation{}, err
	}

	slots := positions[len(req.Runes)]
	out := domain.Interpretation{
		IndividualRunes: make([]domain.RuneInterpretation, 0, len(req.Runes)),
	}

	var themes []string
	reversed := 0
	for i, sel := range req.Runes {
		r, err := o.catalog.Rune(sel.RuneName)
		if err != nil {
			return domain.Interpretation{}, err
		}
		summary := r.MeaningFor(sel.Orientation)
		if i < len(slots) {
			summary = slots[i] + ": " + summary
		}
		out.IndividualRunes = append(out.IndividualRunes, domain.RuneInterpretation{
			RuneName:    r.Name,
			Orientation: sel.Orientation,
			Summary:     summary,
		})
		if kw := r.KeywordsFor(sel.Orientation); len(kw) > 0 {
			themes = append(themes, kw[0])
		}
		if sel.Orientation == domain.Reversed {
			reversed++
		}
	}

	out.Summary = narrative(req.Spread, themes, reversed, len(req.Runes))
	out.Questions = questions(themes)
	return out, nil
}

// Analyze counts rune appearances and names the themes of the most frequent ones.
func (o *Oracle) Analyze(ctx context.Context, records []domain.ReadingRecord) (domain.PatternAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return domain.PatternAnalysis{}, err
	}

	type tally struct {
		name            string
		count, reversed int
	}
	counts := map[string]*tally{}
	total, reversed := 0, 0
	for _, rec := range records {
		for _, sel := range rec.Runes {
			t, ok := counts[sel.RuneName]
			if !ok {
				t = &tally{name: sel.RuneName}
				counts[sel.RuneName] = t
			}
			t.count++
			total++
			if sel.Orientation == domain.Reversed {
				t.reversed++
				reversed++
			}
		}
	}

	ranked := make([]*tally, 0, len(counts))
	for _, t := range counts {
		ranked = append(ranked, t)
	}
	slices.SortFunc(ranked, func(a, b *tally) int {
		return cmp.Or(cmp.Compare(b.count, a.count), cmp.Compare(a.name, b.name))
	})

	analysis := domain.PatternAnalysis{
		FrequentRunes:   []domain.FrequentRune{},
		RecurringThemes: []string{},
	}
	for _, t := range ranked {
		if t.count < 2 || len(analysis.FrequentRunes) == 3 {
			break
		}
		r, err := o.catalog.Rune(t.name)
		if err != nil {
			continue
		}
		note := r.Meaning
		if t.reversed*2 > t.count {
			note = "Mostly reversed. " + r.ReversedMeaning
		}
		analysis.FrequentRunes = append(analysis.FrequentRunes, domain.FrequentRune{
			RuneName:       r.Name,
			Count:          t.count,
			Interpretation: note,
		})
		analysis.RecurringThemes = append(analysis.RecurringThemes,
			fmt.Sprintf("%s keeps returning: %s.", r.Name, strings.Join(r.Keywords, ", ")))
	}
	if total > 0 && reversed*3 >= total {
		analysis.RecurringThemes = append(analysis.RecurringThemes,
			"Many runes fell reversed, which points to blockages still waiting to be worked through.")
	}
	if len(analysis.RecurringThemes) == 0 {
		analysis.RecurringThemes = append(analysis.RecurringThemes, "No rune has repeated yet; your readings range widely.")
	}

	analysis.OverallSummary = fmt.Sprintf("Across %d readings you drew %d runes, %d of them reversed.",
		len(records), total, reversed)
	if len(analysis.FrequentRunes) > 0 {
		analysis.OverallSummary += fmt.Sprintf(" %s appears most often and is worth sitting with.",
			analysis.FrequentRunes[0].RuneName)
	}
	return analysis, nil
}

func narrative(spread string, themes []string, reversed, n int) string {
	if n == 0 {
		return fmt.Sprintf("The %s spread holds no runes; the silence itself is the answer.", spread)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s reading speaks of %s.", spread, joinThemes(themes))
	switch {
	case reversed == 0:
		b.WriteString(" Every rune fell upright: the way ahead is open.")
	case reversed*2 > n:
		b.WriteString(" Most runes fell reversed: something stands in the way and asks to be faced first.")
	default:
		b.WriteString(" Some runes fell reversed: progress comes with friction worth understanding.")
	}
	return b.String()
}

func questions(themes []string) []string {
	qs := make([]string, 0, 3)
	for _, t := range themes {
		if len(qs) == 3 {
			break
		}
		qs = append(qs, fmt.Sprintf("Where does %s show up in your life right now?", t))
	}
	if len(qs) == 0 {
		qs = append(qs, domain.PlaceholderQuestion)
	}
	return qs
}

func joinThemes(themes []string) string {
	switch len(themes) {
	case 0:
		return "quiet change"
	case 1:
		return themes[0]
	default:
		return strings.Join(themes[:len(themes)-1], ", ") + " and " + themes[len(themes)-1]
	}
}
