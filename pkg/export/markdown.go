// Package export renders persisted readings as Markdown, HTML or styled
// terminal text. Every function here is a pure function of its input.
package export

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/session"
)

// JournalTitle heads a full history export.
const JournalTitle = "Runecast Reading Journal"

// DateLayout is how reading timestamps are printed.
const DateLayout = "January 2, 2006 15:04 MST"

// Markdown renders one reading as a Markdown section.
func Markdown(rec domain.ReadingRecord) string {
	var b strings.Builder
	writeRecord(&b, rec, "##")
	return b.String()
}

// HistoryMarkdown renders a whole journal, in the order given.
func HistoryMarkdown(records []domain.ReadingRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", JournalTitle)
	if len(records) == 0 {
		b.WriteString("_Your journal is empty._\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d readings.\n\n", len(records))
	for i, rec := range records {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		writeRecord(&b, rec, "##")
	}
	return b.String()
}

func writeRecord(b *strings.Builder, rec domain.ReadingRecord, level string) {
	fmt.Fprintf(b, "%s %s\n\n", level, rec.CreatedAt.Format(DateLayout))
	fmt.Fprintf(b, "**Spread:** %s", rec.Spread.Name)
	if rec.Spread.Description != "" {
		fmt.Fprintf(b, " (%s)", rec.Spread.Description)
	}
	b.WriteString("\n\n")

	if len(rec.Runes) > 0 {
		fmt.Fprintf(b, "%s# Runes\n\n", level)
		for i, r := range session.Reconcile(rec.Runes, rec.Interpretation) {
			fmt.Fprintf(b, "%d. **%s** (%s): %s\n", i+1, r.RuneName, r.Orientation, oneLine(r.Summary))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "%s# Interpretation\n\n", level)
	b.WriteString(strings.TrimSpace(rec.Interpretation.Summary))
	b.WriteString("\n\n")

	if len(rec.Interpretation.Questions) > 0 {
		fmt.Fprintf(b, "%s# Questions for Reflection\n\n", level)
		for _, q := range rec.Interpretation.Questions {
			fmt.Fprintf(b, "- %s\n", oneLine(q))
		}
		b.WriteString("\n")
	}
}

// AnalysisMarkdown renders a pattern analysis.
func AnalysisMarkdown(a domain.PatternAnalysis) string {
	var b strings.Builder
	b.WriteString("# Pattern Analysis\n\n")
	b.WriteString("## Overall Summary\n\n")
	b.WriteString(strings.TrimSpace(a.OverallSummary))
	b.WriteString("\n\n")

	if len(a.RecurringThemes) > 0 {
		b.WriteString("## Recurring Themes\n\n")
		for _, t := range a.RecurringThemes {
			fmt.Fprintf(&b, "- %s\n", oneLine(t))
		}
		b.WriteString("\n")
	}
	if len(a.FrequentRunes) > 0 {
		b.WriteString("## Frequent Runes\n\n")
		for _, fr := range a.FrequentRunes {
			fmt.Fprintf(&b, "- **%s** (pulled %d %s): %s\n", fr.RuneName, fr.Count, plural(fr.Count, "time", "times"), oneLine(fr.Interpretation))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
