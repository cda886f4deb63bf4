// Package view decides what a front-end should display. It is a pure
// projection of the session snapshot and the history size; it never mutates
// anything and holds no business rules of its own.
package view

import (
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/history"
)

// Tab is a top-level navigation tab.
type Tab string

const (
	TabHome     Tab = "home"
	TabHistory  Tab = "history"
	TabAnalysis Tab = "analysis"
	TabSettings Tab = "settings"
	TabAbout    Tab = "about"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabHome, TabHistory, TabAnalysis, TabSettings, TabAbout}

// ParseTab resolves a tab name, case-insensitively. Empty means home.
func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabHome, nil
	}
	for _, t := range Tabs {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Kind names a screen.
type Kind string

const (
	KindSelectMode     Kind = "select_mode"
	KindSelectSpread   Kind = "select_spread"
	KindSelectRunes    Kind = "select_runes"
	KindLoading        Kind = "loading"
	KindResult         Kind = "result"
	KindHistoryEmpty   Kind = "history_empty"
	KindHistoryList    Kind = "history_list"
	KindAnalysisLocked Kind = "analysis_locked"
	KindAnalysis       Kind = "analysis"
	KindSettings       Kind = "settings"
	KindAbout          Kind = "about"
)

// Screen is what to render.
type Screen struct {
	Tab  Tab  `json:"tab"`
	Kind Kind `json:"kind"`

	// OrientationPrompt overlays the rune grid while a physical draw awaits
	// its orientation.
	OrientationPrompt bool   `json:"orientation_prompt,omitempty"`
	PendingRune       string `json:"pending_rune,omitempty"`

	// Remaining is the number of runes still to draw on select_runes.
	Remaining int `json:"remaining,omitempty"`

	// ReadingsNeeded is how many more readings unlock analysis.
	ReadingsNeeded int `json:"readings_needed,omitempty"`
}

// Route projects the inputs onto a screen. A nil snapshot is treated as a
// fresh session.
func Route(s *domain.Session, tab Tab, historyCount int) Screen {
	switch tab {
	case TabHistory:
		if historyCount == 0 {
			return Screen{Tab: tab, Kind: KindHistoryEmpty}
		}
		return Screen{Tab: tab, Kind: KindHistoryList}
	case TabAnalysis:
		if !history.AnalysisReady(historyCount) {
			return Screen{Tab: tab, Kind: KindAnalysisLocked,
				ReadingsNeeded: domain.MinReadingsForAnalysis - historyCount}
		}
		return Screen{Tab: tab, Kind: KindAnalysis}
	case TabSettings:
		return Screen{Tab: tab, Kind: KindSettings}
	case TabAbout:
		return Screen{Tab: tab, Kind: KindAbout}
	}

	home := Screen{Tab: TabHome, Kind: KindSelectMode}
	if s == nil {
		return home
	}
	switch s.Status {
	case domain.StatusCompleting:
		home.Kind = KindLoading
	case domain.StatusInterpreted, domain.StatusFailed:
		home.Kind = KindResult
	case domain.StatusCollecting:
		home.Kind = KindSelectRunes
		home.Remaining = s.Remaining()
		if s.Pending != nil {
			home.OrientationPrompt = true
			home.PendingRune = s.Pending.Name
		}
	case domain.StatusModeChosen:
		home.Kind = KindSelectSpread
	}
	return home
}
