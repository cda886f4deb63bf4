package tui

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	idWidth     = 8
	dateWidth   = 17
	spreadWidth = 18
	minRunes    = 10
)

// HistoryTable lays out records one per line, as given, within width columns.
func HistoryTable(records []domain.ReadingRecord, width int) string {
	if len(records) == 0 {
		return Muted("No readings yet.")
	}

	runesWidth := width - idWidth - dateWidth - spreadWidth - 6
	if runesWidth < minRunes {
		runesWidth = minRunes
	}

	header := padRight("ID", idWidth) + "  " + padRight("Date", dateWidth) + "  " +
		padRight("Spread", spreadWidth) + "  " + "Runes"
	lines := []string{headerStyle.Render(header)}
	for _, rec := range records {
		names := make([]string, len(rec.Runes))
		for i, r := range rec.Runes {
			names[i] = r.String()
		}
		line := padRight(truncate(rec.ID, idWidth), idWidth) + "  " +
			padRight(rec.CreatedAt.Local().Format("2006-01-02 15:04"), dateWidth) + "  " +
			padRight(truncate(rec.Spread.Name, spreadWidth), spreadWidth) + "  " +
			truncate(strings.Join(names, ", "), runesWidth)
		if rec.Interpretation.Degraded {
			line += " " + Warning("!")
		}
		lines = append(lines, line)
	}
	lines = append(lines, Muted(fmt.Sprintf("── %d readings ──", len(records))))
	return strings.Join(lines, "\n")
}

// StatsTable renders the rune and spread frequencies side by side.
func StatsTable(st history.Stats) string {
	if st.Total == 0 {
		return Muted("No readings yet.")
	}

	runes := []string{headerStyle.Render(padRight("Rune", 12) + "  Total  Up  Rev")}
	for _, r := range st.Runes {
		runes = append(runes, fmt.Sprintf("%s  %5d  %2d  %3d", padRight(r.Name, 12), r.Count, r.Upright, r.Reversed))
	}
	spreads := []string{headerStyle.Render(padRight("Spread", spreadWidth) + "  Total")}
	for _, s := range st.Spreads {
		spreads = append(spreads, fmt.Sprintf("%s  %5d", padRight(truncate(s.Name, spreadWidth), spreadWidth), s.Count))
	}

	summary := fmt.Sprintf("%d readings between %s and %s",
		st.Total, st.First.Local().Format("Jan 2, 2006"), st.Last.Local().Format("Jan 2, 2006"))
	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(runes, "\n"), "    ", strings.Join(spreads, "\n"))
	return Title(summary) + "\n\n" + columns
}

// RuneGrid lists runes with their symbols, numbered from 1, in the given
// number of columns.
func RuneGrid(runes []domain.Rune, columns int) string {
	if columns < 1 {
		columns = 1
	}
	cells := make([]string, len(runes))
	for i, r := range runes {
		cells[i] = padRight(fmt.Sprintf("%2d. %s %s", i+1, r.Symbol, r.Name), 18)
	}

	var rows []string
	for i := 0; i < len(cells); i += columns {
		end := min(i+columns, len(cells))
		rows = append(rows, strings.TrimRight(strings.Join(cells[i:end], " "), " "))
	}
	return strings.Join(rows, "\n")
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
