package tui

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/view"
)

// Tabs renders the navigation bar with the active tab highlighted.
func Tabs(active view.Tab) string {
	parts := make([]string, len(view.Tabs))
	for i, t := range view.Tabs {
		label := strings.ToUpper(string(t[:1])) + string(t[1:])
		if t == active {
			parts[i] = titleStyle.Render("[" + label + "]")
		} else {
			parts[i] = mutedStyle.Render(" " + label + " ")
		}
	}
	return strings.Join(parts, " ")
}

// Prompt describes what the screen is waiting for.
func Prompt(s view.Screen, snap *domain.Session) string {
	switch s.Kind {
	case view.KindSelectMode:
		return "Choose a mode: physical (you draw real runes) or virtual."
	case view.KindSelectSpread:
		return "Choose a spread."
	case view.KindSelectRunes:
		if s.OrientationPrompt {
			return fmt.Sprintf("Was %s drawn upright or reversed?", s.PendingRune)
		}
		if snap != nil && snap.Mode == domain.ModeVirtual {
			return fmt.Sprintf("Press enter to draw (%d left).", s.Remaining)
		}
		return fmt.Sprintf("Which rune did you draw? (%d left)", s.Remaining)
	case view.KindLoading:
		return "Consulting the runes..."
	case view.KindResult:
		if snap != nil && snap.Status == domain.StatusFailed {
			return Warning("The interpretation failed. Retry or discard.")
		}
		return "Save this reading to your journal, or discard it."
	case view.KindHistoryEmpty:
		return "Your journal is empty."
	case view.KindHistoryList:
		return "Your past readings."
	case view.KindAnalysisLocked:
		return fmt.Sprintf("Record %d more %s to unlock pattern analysis.",
			s.ReadingsNeeded, pluralize(s.ReadingsNeeded, "reading", "readings"))
	case view.KindAnalysis:
		return "Look for patterns across your journal."
	case view.KindSettings:
		return "Adjust how long readings are kept."
	case view.KindAbout:
		return "Runecast: Elder Futhark readings with an interpretation companion."
	}
	return ""
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
